package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ResolveAll resolves titles with up to Concurrency workers and returns one
// outcome per title in input order. Per-title misses never stop the batch; a
// store failure cancels the titles not yet started and is returned.
func (r *Resolver) ResolveAll(ctx context.Context, titles []string) ([]Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]Outcome, len(titles))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	semaphore := make(chan struct{}, r.cfg.Concurrency)

	for i, title := range titles {
		semaphore <- struct{}{} // Acquire in input order
		if ctx.Err() != nil {
			<-semaphore
			outcomes[i] = Outcome{Title: title, State: StatePending}
			continue
		}

		wg.Add(1)
		go func(idx int, title string) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release

			slog.Info("Processing title", "title", title, "progress", fmt.Sprintf("%d/%d", idx+1, len(titles)))
			outcome, err := r.Resolve(ctx, title)
			outcomes[idx] = outcome
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}(i, title)
	}

	wg.Wait()
	return outcomes, firstErr
}
