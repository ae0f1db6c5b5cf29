package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/buttress/pkg/scene"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult carries one evaluation back from its goroutine.
type evalResult struct {
	scene    *scene.Scene
	warnings []EvalWarning
	errors   []EvalError
	err      error
}

// waitWithTimeout waits for a result from ch, or fails after EvalTimeout.
// A result whose generation is no longer current is discarded. On timeout
// the goroutine may still be running; its result is dropped when it
// finishes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*scene.Scene, []EvalWarning, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()
		if gen != current {
			return nil, nil, nil, fmt.Errorf("engine: evaluation superseded by newer request")
		}
		return res.scene, res.warnings, res.errors, res.err

	case <-timer.C:
		return nil, nil, nil, fmt.Errorf("engine: evaluation timed out after %s", EvalTimeout)
	}
}
