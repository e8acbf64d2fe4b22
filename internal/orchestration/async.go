package orchestration

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes multiple tasks in parallel and returns the first error encountered.
// All tasks are started concurrently, and the function waits for all to complete.
// If any task returns an error, the first error is returned after all tasks finish.
//
// Set withLogging to true to log task start and completion times.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "wildcard", Func: requestWildcard},
//	    {Name: "registry", Func: requestRegistry},
//	}
//	if err := RunParallel(ctx, tasks, false); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task, withLogging bool) error {
	if len(tasks) == 0 {
		return nil
	}

	type result struct {
		name string
		err  error
	}

	resultChan := make(chan result, len(tasks))

	for _, task := range tasks {
		go func() {
			if withLogging {
				log.Printf("[%s] Starting at %s", task.Name, time.Now().Format("15:04:05"))
			}
			err := task.Func(ctx)
			if withLogging {
				log.Printf("[%s] Completed at %s", task.Name, time.Now().Format("15:04:05"))
			}
			resultChan <- result{name: task.Name, err: err}
		}()
	}

	var firstError error
	for range len(tasks) {
		res := <-resultChan
		if res.err != nil && firstError == nil {
			firstError = fmt.Errorf("%s: %w", res.name, res.err)
		}
	}

	return firstError
}

// RunLimited executes tasks with at most limit running concurrently and
// returns one error slot per task, in input order. A limit below one
// means unbounded.
func RunLimited(ctx context.Context, tasks []Task, limit int) []error {
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}

	var sem chan struct{}
	if limit > 0 {
		sem = make(chan struct{}, limit)
	}

	done := make(chan struct{}, len(tasks))
	for i := range tasks {
		go func() {
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			errs[i] = tasks[i].Func(ctx)
			done <- struct{}{}
		}()
	}

	for range len(tasks) {
		<-done
	}
	return errs
}
