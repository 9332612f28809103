package fetch

import (
	"context"
	"fmt"

	"shelf-harvest/pkg/extract"

	"golang.org/x/time/rate"
)

// Limited paces every request an adapter makes through one limiter.
type Limited struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewLimited allows rps requests per second with no burst. rps <= 0 disables pacing.
func NewLimited(next Fetcher, rps float64) *Limited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (l *Limited) Fetch(ctx context.Context, url string) (*extract.Page, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return l.next.Fetch(ctx, url)
}

// FetchScrolled falls back to Fetch when the wrapped fetcher cannot scroll.
func (l *Limited) FetchScrolled(ctx context.Context, url string) (*extract.Page, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	if s, ok := l.next.(Scroller); ok {
		return s.FetchScrolled(ctx, url)
	}
	return l.next.Fetch(ctx, url)
}
