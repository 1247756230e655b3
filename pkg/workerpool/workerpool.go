// Package workerpool provides bounded concurrent fan-out helpers.
package workerpool

import (
	"context"
	"sync"
)

// Result carries the outcome of one item processed by Map.
type Result[R any] struct {
	Value R
	Err   error
}

// Map runs fn over items on at most workerCount goroutines and returns one result
// per item, in input order. A failing item does not stop the others; items not yet
// started when ctx is canceled get ctx.Err() as their error.
func Map[T, R any](
	ctx context.Context,
	workerCount int,
	items []T,
	fn func(context.Context, T) (R, error),
) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(items) {
		workerCount = len(items)
	}

	tasks := make(chan int)
	wg := sync.WaitGroup{}
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				if err := ctx.Err(); err != nil {
					results[idx].Err = err
					continue
				}
				v, err := fn(ctx, items[idx])
				results[idx] = Result[R]{Value: v, Err: err}
			}
		}()
	}

	for idx := range items {
		tasks <- idx
	}
	close(tasks)
	wg.Wait()

	return results
}

// Collect splits results into successful values, preserving order, and the number of failures.
func Collect[R any](results []Result[R]) ([]R, int) {
	out := make([]R, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		out = append(out, r.Value)
	}
	return out, failed
}
