package fetch

import (
	"context"
	"sync"

	"shelf-harvest/pkg/extract"
)

// Serial lets one request through at a time. Fetchers that drive a single
// page, like Browser, must be wrapped in it before workers share them.
type Serial struct {
	mu   sync.Mutex
	next Fetcher
}

func NewSerial(next Fetcher) *Serial {
	return &Serial{next: next}
}

func (s *Serial) Fetch(ctx context.Context, url string) (*extract.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.next.Fetch(ctx, url)
}

// FetchScrolled falls back to Fetch when the wrapped fetcher cannot scroll.
func (s *Serial) FetchScrolled(ctx context.Context, url string) (*extract.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sc, ok := s.next.(Scroller); ok {
		return sc.FetchScrolled(ctx, url)
	}
	return s.next.Fetch(ctx, url)
}
