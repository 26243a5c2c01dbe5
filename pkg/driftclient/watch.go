package driftclient

import (
	"context"
	"time"
)

// Watch follows the sync ledger, delivering entries oldest first as
// reconciliations and purges complete. It polls at the configured interval
// starting after afterID (empty means from the beginning) and closes the
// channel when ctx is cancelled. Poll errors are skipped; the next tick
// retries from the last delivered entry.
func (c *Client) Watch(ctx context.Context, afterID string) <-chan LedgerEntry {
	out := make(chan LedgerEntry)

	go func() {
		defer close(out)

		last := afterID
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			entries, err := c.Ledger(ctx, last, 0)
			if err == nil {
				for _, e := range entries {
					select {
					case out <- e:
						last = e.ID
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}
