package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()
	if pool.Workers() != 3 {
		t.Errorf("Workers() = %d, want 3", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_DefaultWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()
	if pool.Workers() != runtime.GOMAXPROCS(0) {
		t.Errorf("Workers() = %d, want GOMAXPROCS", pool.Workers())
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	tasks := make([]func(), 250)
	for i := range tasks {
		tasks[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(tasks)
	if counter.Load() != 250 {
		t.Errorf("counter = %d, want 250", counter.Load())
	}
}

func TestWorkerPool_ClosedRunsInline(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	ran := 0
	pool.ExecuteAll([]func(){func() { ran++ }, func() { ran++ }})
	if ran != 2 {
		t.Errorf("ran = %d, want 2", ran)
	}
}

func TestForEach_DisjointSlots(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	out := make([]int, 100)
	if err := ForEach(context.Background(), pool, len(out), func(i int) { out[i] = i * i }); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	for i, v := range out {
		if v != i*i {
			t.Fatalf("out[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestForEach_NilPoolSerial(t *testing.T) {
	var order []int
	if err := ForEach(context.Background(), nil, 5, func(i int) { order = append(order, i) }); err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("serial order broken: %v", order)
		}
	}
}

func TestForEach_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := ForEach(ctx, nil, 10, func(i int) {
		calls++
		if i == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestForEach_CancelledOnPool(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	err := ForEach(ctx, pool, 50, func(int) { calls.Add(1) })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", calls.Load())
	}
}

func TestGroup_JoinsSubtasks(t *testing.T) {
	g := NewGroup(context.Background())
	var a, b int
	g.Go(func(context.Context) error { a = 1; return nil })
	g.Go(func(context.Context) error { b = 2; return nil })
	if err := g.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if a != 1 || b != 2 {
		t.Fatalf("subtasks did not run: a=%d b=%d", a, b)
	}
}

func TestGroup_FirstError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGroup(context.Background())
	g.Go(func(context.Context) error { return boom })
	g.Go(func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() })
	if err := g.Wait(); !errors.Is(err, boom) {
		t.Fatalf("Wait = %v, want boom", err)
	}
}

func TestGroup_InsidePoolTask(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	var sum atomic.Int64
	err := ForEach(context.Background(), pool, 4, func(i int) {
		g := NewGroup(context.Background())
		g.Go(func(context.Context) error { sum.Add(int64(i)); return nil })
		g.Go(func(context.Context) error { sum.Add(int64(i)); return nil })
		_ = g.Wait()
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if sum.Load() != 12 {
		t.Errorf("sum = %d, want 12", sum.Load())
	}
}
