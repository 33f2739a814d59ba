package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrBadInterval indicates a non-positive Every interval.
var ErrBadInterval = errors.New("aggregate: interval must be positive")

// Periodic is a reduction that can be re-run on a schedule.
type Periodic interface {
	Sync(ctx context.Context) error
}

// Every calls r.Sync once per interval until ctx is done. It returns nil on
// cancellation and the first Sync error otherwise.
func Every(ctx context.Context, interval time.Duration, r Periodic, logger *slog.Logger) error {
	if interval <= 0 {
		return fmt.Errorf("%s: %w", interval, ErrBadInterval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := r.Sync(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("periodic aggregation failed", slog.String("error", err.Error()))
				return err
			}
		}
	}
}
