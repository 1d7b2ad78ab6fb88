package catalog

import (
	"context"
	"sync"
)

// PageFunc receives one page of the changed-ids feed, or an error for a
// page whose fetch failed. It is never invoked concurrently.
type PageFunc func(page *ChangedShowPage, err error)

// ListAllChangedShowIDs fetches every page of the changed-ids feed.
// Page 1 is fetched first to learn the total page count; the remaining
// pages are fetched concurrently and delivered in arrival order.
// Failed pages are delivered to onPage as errors and are not retried.
// The call returns only after onPage has been invoked once per page,
// so returning doubles as the completion signal.
func (c *Client) ListAllChangedShowIDs(ctx context.Context, opts ChangesOptions, onPage PageFunc) error {
	opts.Page = 1
	first, err := c.ListChangedShowIDs(ctx, opts)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	deliver := func(page *ChangedShowPage, err error) {
		mu.Lock()
		defer mu.Unlock()
		onPage(page, err)
	}

	deliver(first, nil)

	if first.TotalPages <= 1 {
		return nil
	}

	var wg sync.WaitGroup
	for page := 2; page <= first.TotalPages; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			pageOpts := opts
			pageOpts.Page = page
			result, err := c.ListChangedShowIDs(ctx, pageOpts)
			if err != nil {
				c.logger.Warn().Err(err).Int("page", page).Msg("Failed to fetch changed-ids page")
				deliver(nil, err)
				return
			}
			deliver(result, nil)
		}(page)
	}
	wg.Wait()

	c.logger.Debug().
		Int("totalPages", first.TotalPages).
		Int("totalResults", first.TotalResults).
		Msg("Fetched all changed-ids pages")

	return nil
}
