package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach calls fn(i) for every i in [0, n) on the pool and waits. The
// context is checked before each iteration; once it is done the remaining
// iterations are skipped and ctx.Err() is returned. A nil pool runs the
// loop serially on the calling goroutine.
func ForEach(ctx context.Context, pool *WorkerPool, n int, fn func(i int)) error {
	if n <= 0 {
		return ctx.Err()
	}
	if pool == nil || pool.Workers() == 1 || n == 1 {
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)
		}
		return ctx.Err()
	}
	tasks := make([]func(), n)
	for i := range n {
		tasks[i] = func() {
			if ctx.Err() != nil {
				return
			}
			fn(i)
		}
	}
	pool.ExecuteAll(tasks)
	return ctx.Err()
}

// Group runs a handful of related subtasks concurrently and joins them.
// It uses its own goroutines so it may be started from inside a pool task.
type Group struct {
	g   *errgroup.Group
	ctx context.Context
}

// NewGroup returns a group whose context is cancelled when ctx is or when
// any subtask fails.
func NewGroup(ctx context.Context) *Group {
	g, gctx := errgroup.WithContext(ctx)
	return &Group{g: g, ctx: gctx}
}

// Context returns the group context.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Go starts fn unless the group context is already done.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.g.Go(func() error {
		if err := g.ctx.Err(); err != nil {
			return err
		}
		return fn(g.ctx)
	})
}

// Wait blocks until every subtask returns and reports the first error.
func (g *Group) Wait() error {
	return g.g.Wait()
}
