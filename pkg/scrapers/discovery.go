package scrapers

import (
	"context"
	"sync"

	"shelf-harvest/pkg/extract"
	"shelf-harvest/pkg/normalize"
)

// URLSet is an insertion-ordered set of product URLs, safe for concurrent use.
type URLSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add reports whether url was new.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

func (s *URLSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// List returns the URLs in the order they were first added.
func (s *URLSet) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// CollectLinks adds every link on page accepted by match, resolved against
// base, and returns how many were not already in set.
func CollectLinks(page *extract.Page, base string, match func(href string) bool, set *URLSet) int {
	added := 0
	for _, href := range page.Links() {
		if !match(href) {
			continue
		}
		if set.Add(normalize.AbsoluteURL(base, href)) {
			added++
		}
	}
	return added
}

// PageWalk describes a numbered listing: Fetch loads page n (from 1), Collect
// harvests it and returns how many URLs it added.
type PageWalk struct {
	MaxPages int
	Fetch    func(ctx context.Context, n int) (*extract.Page, error)
	Collect  func(page *extract.Page) int
}

// Paginate walks pages 1..MaxPages and stops at the first page that adds no
// new URL or cannot be fetched. It returns how many pages were requested and
// the fetch error that ended the walk, if any.
func Paginate(ctx context.Context, w PageWalk) (int, error) {
	visited := 0
	for n := 1; n <= w.MaxPages; n++ {
		if err := ctx.Err(); err != nil {
			return visited, err
		}

		visited++
		page, err := w.Fetch(ctx, n)
		if err != nil {
			return visited, err
		}
		if w.Collect(page) == 0 {
			break
		}
	}
	return visited, nil
}
