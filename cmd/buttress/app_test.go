package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/buttress/pkg/geom"
	"github.com/chazu/buttress/pkg/gridpattern"
	"github.com/chazu/buttress/pkg/slicer"
	"github.com/chazu/buttress/pkg/support"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(overlay string) *App {
	return NewApp(nil, 0.1, []byte(overlay), quietLogger())
}

func readExample(t *testing.T, name string) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "..", "examples", name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(src)
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// TestE2EOverhangExample runs script -> scene -> layers -> support, the
// same path the command takes, without touching the file system.
func TestE2EOverhangExample(t *testing.T) {
	app := newTestApp("")
	jobs, err := app.LoadScene(context.Background(), readExample(t, "overhang.lisp"))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Object.Name != "tab" {
		t.Fatalf("jobs = %+v, want one object named tab", jobs)
	}
	if jobs[0].Config.ThresholdAngle != 45 || jobs[0].Config.XYDistance != 0.4 {
		t.Errorf("script settings not carried: %+v", jobs[0].Config)
	}

	res, err := app.Generate(context.Background(), jobs[0])
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	tops := res.ByType(support.TopContact)
	if len(tops) == 0 {
		t.Fatal("expected top contact layers under the tab")
	}
	for _, l := range res.Layers {
		if l.PrintZ > 4+geom.Epsilon {
			t.Errorf("%s layer at %v is above the tab underside", l.Type, l.PrintZ)
		}
	}
}

func TestE2EBridgeExample(t *testing.T) {
	app := newTestApp("")
	jobs, err := app.LoadScene(context.Background(), readExample(t, "bridge.lisp"))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	obj := jobs[0].Object
	if !obj.HasEnforcers() || !obj.HasBlockers() {
		t.Error("annotations were not sliced")
	}
	if jobs[0].Config.Style != gridpattern.StyleSnug || !jobs[0].Config.BridgeNoSupport {
		t.Errorf("script settings not carried: %+v", jobs[0].Config)
	}
	if _, err := app.Generate(context.Background(), jobs[0]); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestE2EEmptySource(t *testing.T) {
	_, err := newTestApp("").LoadScene(context.Background(), "")
	if !errors.Is(err, slicer.ErrNoObjects) {
		t.Fatalf("err = %v, want ErrNoObjects", err)
	}
}

func TestE2ESyntaxError(t *testing.T) {
	_, err := newTestApp("").LoadScene(context.Background(), `(object "a" (box 1 1 1)`)
	if err == nil || !strings.HasPrefix(err.Error(), "script:") {
		t.Fatalf("err = %v, want a script error", err)
	}
}

func TestE2EConfigOverlay(t *testing.T) {
	app := newTestApp(`{"xy_distance": 1, "style": "snug"}`)
	jobs, err := app.LoadScene(context.Background(), readExample(t, "overhang.lisp"))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	cfg := jobs[0].Config
	if cfg.XYDistance != 1 || cfg.Style != gridpattern.StyleSnug {
		t.Errorf("overlay not applied: %+v", cfg)
	}
	if cfg.ThresholdAngle != 45 {
		t.Errorf("overlay dropped the script's threshold angle: %v", cfg.ThresholdAngle)
	}
}

func TestE2EBadOverlay(t *testing.T) {
	_, err := newTestApp(`{"colour": 1}`).LoadScene(context.Background(), readExample(t, "overhang.lisp"))
	if err == nil || !strings.Contains(err.Error(), "colour") {
		t.Fatalf("err = %v, want an unknown field error", err)
	}
}

func TestE2ELoadLayers(t *testing.T) {
	src := `object "step"
layer 0.2 height 0.2 { slice { contour (0,0) (2,0) (2,2) (0,2) } }
layer 0.4 height 0.2 { slice { contour (0,0) (8,0) (8,2) (0,2) } }
`
	jobs, err := newTestApp(`{"threshold_angle": 10}`).LoadLayers("step.layers", strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadLayers: %v", err)
	}
	if jobs[0].Object.LayerCount() != 2 || jobs[0].Config.ThresholdAngle != 10 {
		t.Fatalf("job = %+v", jobs[0])
	}
}
