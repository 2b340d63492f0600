// Package async provides helpers for running independent operations
// concurrently, used by stages that fan out over multiple resources.
package async

import (
	"context"
	"fmt"
)

// Task is an asynchronous operation with a name for error reporting.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel starts all tasks concurrently and waits for every one to
// finish. The first error encountered is returned after all tasks complete;
// tasks already in flight are never abandoned mid-apply.
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

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

	var firstErr error
	for range tasks {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", res.name, res.err)
		}
	}
	return firstErr
}
