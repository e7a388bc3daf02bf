package enrich

import (
	"context"
	"sync"
)

// fetchTask is one keyed unit of fetch work within a phase.
type fetchTask[T any] struct {
	Key     string
	Execute func(ctx context.Context) (T, error)
}

// fetchResult pairs a task key with its outcome.
type fetchResult[T any] struct {
	Key    string
	Result T
	Err    error
}

// runBatch executes all tasks with bounded parallelism and waits for every
// one to finish (fire-all/await-all). The first error encountered is
// returned and the caller applies nothing: a phase either succeeds whole or
// fails whole.
func runBatch[T any](ctx context.Context, tasks []fetchTask[T], maxConcurrent int) (map[string]T, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	if maxConcurrent < 1 {
		maxConcurrent = len(tasks)
	}

	resultsChan := make(chan fetchResult[T], len(tasks))
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task fetchTask[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resultsChan <- fetchResult[T]{Key: task.Key, Err: ctx.Err()}
				return
			}

			result, err := task.Execute(ctx)
			resultsChan <- fetchResult[T]{Key: task.Key, Result: result, Err: err}
		}(task)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make(map[string]T, len(tasks))
	var firstErr error
	for result := range resultsChan {
		if result.Err != nil {
			if firstErr == nil {
				firstErr = result.Err
			}
			continue
		}
		results[result.Key] = result.Result
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
