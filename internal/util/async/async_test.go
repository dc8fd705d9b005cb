package async

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunParallel_Success(t *testing.T) {
	var count atomic.Int32

	tasks := []Task{
		{Name: "task1", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}},
		{Name: "task2", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}},
	}

	if err := RunParallel(context.Background(), tasks); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
	if count.Load() != 2 {
		t.Errorf("expected 2 tasks to run, got %d", count.Load())
	}
}

func TestRunParallel_EmptyTasks(t *testing.T) {
	if err := RunParallel(context.Background(), nil); err != nil {
		t.Errorf("expected no error for empty tasks, got: %v", err)
	}
}

func TestRunParallel_Error(t *testing.T) {
	expectedErr := errors.New("broker not available")

	tasks := []Task{
		{Name: "list topics", Func: func(_ context.Context) error { return nil }},
		{Name: "list acls", Func: func(_ context.Context) error { return expectedErr }},
	}

	err := RunParallel(context.Background(), tasks)
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected error to wrap %v, got: %v", expectedErr, err)
	}
	if !strings.HasPrefix(err.Error(), "list acls: ") {
		t.Errorf("expected the task name in %q", err.Error())
	}
}

func TestRunParallel_CancelsSiblings(t *testing.T) {
	tasks := []Task{
		{Name: "fail", Func: func(_ context.Context) error {
			return errors.New("fail")
		}},
		{Name: "wait", Func: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return errors.New("sibling was not canceled")
			}
		}},
	}

	start := time.Now()
	err := RunParallel(context.Background(), tasks)
	if err == nil || err.Error() != "fail: fail" {
		t.Errorf("expected the first failure, got: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("expected the waiting task to be canceled")
	}
}

func TestRunParallel_Concurrent(t *testing.T) {
	var current, maxConcurrent atomic.Int32

	tasks := make([]Task, 4)
	for i := range tasks {
		tasks[i] = Task{Name: "task", Func: func(_ context.Context) error {
			c := current.Add(1)
			for {
				old := maxConcurrent.Load()
				if c <= old || maxConcurrent.CompareAndSwap(old, c) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			current.Add(-1)
			return nil
		}}
	}

	if err := RunParallel(context.Background(), tasks); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if maxConcurrent.Load() < 2 {
		t.Errorf("expected tasks to overlap, max concurrency was %d", maxConcurrent.Load())
	}
}
