package store

import (
	"context"
	"time"
)

// purger is implemented by backends that cannot expire rows on their own.
type purger interface {
	purgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// startPurger runs p every opts.PurgeInterval until the returned cancel is
// called. It is a no-op when opts.PurgeAfter is zero.
func startPurger(p purger, opts Options) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.PurgeAfter <= 0 {
		return cancel
	}

	go func() {
		ticker := time.NewTicker(opts.PurgeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := p.purgeExpired(ctx, opts.Clock().Add(-opts.PurgeAfter))
				if err != nil {
					opts.Logger.Error("purge expired messages", "err", err)
					continue
				}
				if n > 0 {
					opts.Logger.Debug("purged expired messages", "count", n)
				}
			}
		}
	}()
	return cancel
}
