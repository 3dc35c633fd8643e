package catalog

import (
	"context"
	"sync"
)

// loadResult is the outcome of loading one playlist.
type loadResult struct {
	playlist *SourcePlaylist
	err      error
}

// fetchAll loads playlists with a bounded worker pool.
// Results are returned in the same order as ids, regardless of completion order.
func (a *Aggregator) fetchAll(ctx context.Context, userID string, ids []string) ([]loadResult, error) {
	results := make([]loadResult, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	type workItem struct {
		index int
		id    string
	}
	workCh := make(chan workItem, len(ids))
	for i, id := range ids {
		workCh <- workItem{index: i, id: id}
	}
	close(workCh)

	workers := min(a.concurrency, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workCh {
				if ctx.Err() != nil {
					results[work.index] = loadResult{err: ctx.Err()}
					continue
				}
				playlist, err := a.load(ctx, userID, work.id)
				results[work.index] = loadResult{playlist: playlist, err: err}
			}
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return results, nil
}
