package fetch

import (
	"context"
	"time"
)

// ScrollTarget is the slice of a browser tab ScrollUntilStable needs.
type ScrollTarget interface {
	ContentHeight(ctx context.Context) (int64, error)
	ScrollToBottom(ctx context.Context) error
}

// ScrollUntilStable scrolls to the bottom, waits pause, and stops once a full
// cycle leaves the content height unchanged. maxRounds bounds sites that never
// stop growing; zero means no bound. It returns the number of scroll cycles run.
func ScrollUntilStable(ctx context.Context, target ScrollTarget, pause time.Duration, maxRounds int) (int, error) {
	last, err := target.ContentHeight(ctx)
	if err != nil {
		return 0, err
	}

	rounds := 0
	for maxRounds <= 0 || rounds < maxRounds {
		if err := target.ScrollToBottom(ctx); err != nil {
			return rounds, err
		}
		rounds++

		select {
		case <-ctx.Done():
			return rounds, ctx.Err()
		case <-time.After(pause):
		}

		height, err := target.ContentHeight(ctx)
		if err != nil {
			return rounds, err
		}
		if height == last {
			break
		}
		last = height
	}
	return rounds, nil
}
