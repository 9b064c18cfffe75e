package refsheet

import (
	"context"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
)

// pacer spaces Sheets API calls so a burst of uploads stays under the per-user
// quota. Callers reserve a slot and then wait for it.
type pacer struct {
	mu            sync.Mutex
	nextAllowedAt time.Time
	interval      time.Duration
}

// newPacer returns nil when requestsPerSecond is not positive; a nil pacer never waits.
func newPacer(requestsPerSecond int) *pacer {
	if requestsPerSecond <= 0 {
		return nil
	}
	return &pacer{interval: time.Second / time.Duration(requestsPerSecond)}
}

func (p *pacer) wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	now := time.Now()
	scheduled := now
	if p.nextAllowedAt.After(now) {
		scheduled = p.nextAllowedAt
	}
	p.nextAllowedAt = scheduled.Add(p.interval)
	p.mu.Unlock()

	sleep := time.Until(scheduled)
	if sleep <= 0 {
		return nil
	}
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-timer.C:
		return nil
	}
}
