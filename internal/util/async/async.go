package async

import (
	"context"
	"fmt"
)

// Task is a named operation run by RunParallel.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel runs the tasks concurrently and waits for all of them. The
// context passed to the tasks is canceled once one fails, and the first
// failure is returned wrapped with the task name.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "list topics", Func: listTopics},
//	    {Name: "list acls", Func: listACLs},
//	}
//	if err := RunParallel(ctx, tasks); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(tasks))

	for _, task := range tasks {
		go func() {
			results <- result{name: task.Name, err: task.Func(ctx)}
		}()
	}

	var firstError error
	for range len(tasks) {
		res := <-results
		if res.err != nil && firstError == nil {
			firstError = fmt.Errorf("%s: %w", res.name, res.err)
			cancel()
		}
	}
	return firstError
}
