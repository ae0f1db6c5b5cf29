package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func exampleOptions(t *testing.T) (options, string) {
	t.Helper()
	dir := t.TempDir()
	return options{
		scene: filepath.Join("..", "..", "examples", "overhang.lisp"),
		out:   filepath.Join(dir, "support.txt"),
		pdf:   filepath.Join(dir, "preview.pdf"),
		pixel: 0.1,
	}, dir
}

func TestRunWritesOutputs(t *testing.T) {
	opts, _ := exampleOptions(t)
	if err := run(context.Background(), opts, &bytes.Buffer{}, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := os.ReadFile(opts.out)
	if err != nil {
		t.Fatalf("support output: %v", err)
	}
	if !strings.HasPrefix(string(out), "# object \"tab\"\n") || !strings.Contains(string(out), "support top-contact") {
		t.Errorf("unexpected support output:\n%s", out)
	}
	pdf, err := os.ReadFile(opts.pdf)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Error("preview is not a PDF")
	}
}

func TestRunToStdout(t *testing.T) {
	opts, _ := exampleOptions(t)
	opts.out, opts.pdf = "", ""
	var stdout bytes.Buffer
	if err := run(context.Background(), opts, &stdout, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "support ") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunCancelledWritesNothing(t *testing.T) {
	opts, dir := exampleOptions(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := run(ctx, opts, &bytes.Buffer{}, quietLogger()); err == nil {
		t.Fatal("expected an error from a cancelled run")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("cancelled run left %d files behind", len(entries))
	}
}

func TestRunFlagErrors(t *testing.T) {
	tests := []struct {
		name string
		opts options
		want string
	}{
		{"no input", options{pixel: 0.1}, "exactly one"},
		{"both inputs", options{scene: "a", layers: "b", pixel: 0.1}, "exactly one"},
		{"bad pixel", options{scene: "a"}, "-pixel"},
		{"missing file", options{scene: "does-not-exist.lisp", pixel: 0.1}, "does-not-exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.opts, &bytes.Buffer{}, quietLogger())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestPDFPath(t *testing.T) {
	if got := pdfPath("out/p.pdf", "tab", 1); got != "out/p.pdf" {
		t.Errorf("single object path = %q", got)
	}
	if got := pdfPath("out/p.pdf", "tab", 2); got != "out/p-tab.pdf" {
		t.Errorf("multi object path = %q", got)
	}
}
