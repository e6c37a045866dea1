package classify

import (
	"context"
	"sync"
	"time"
)

// forEach runs fn(i) for i in [0, n) with at most concurrency goroutines in
// flight. Launches are staggered so a fresh batch does not burst the API all
// at once. Returns early if the context is cancelled; in-flight work finishes.
func forEach(ctx context.Context, concurrency int, launchDelay time.Duration, n int, fn func(i int)) error {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)

		if launchDelay > 0 && i < n-1 {
			select {
			case <-time.After(launchDelay):
			case <-ctx.Done():
				wg.Wait()
				return ctx.Err()
			}
		}
	}

	wg.Wait()
	return nil
}
