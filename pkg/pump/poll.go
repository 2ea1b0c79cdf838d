package pump

import (
	"context"
	"time"
)

// wait blocks for one poll interval or until ctx is done.
func (c *Client) wait(ctx context.Context) error {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
