// Package fetchtest serves canned pages in place of a browser.
package fetchtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shelf-harvest/pkg/extract"
)

var ErrNotFound = errors.New("page not found")

// Site maps URLs to HTML. Unknown URLs fail with ErrNotFound.
type Site struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	requests []string
	scrolled []string
}

func NewSite(pages map[string]string) *Site {
	if pages == nil {
		pages = make(map[string]string)
	}
	return &Site{pages: pages, failures: make(map[string]error)}
}

func (s *Site) Set(url, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = html
}

// Fail makes every fetch of url return err.
func (s *Site) Fail(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[url] = err
}

func (s *Site) Fetch(ctx context.Context, url string) (*extract.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.requests = append(s.requests, url)
	html, ok := s.pages[url]
	failure := s.failures[url]
	s.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return extract.ParseHTML(url, html)
}

func (s *Site) FetchScrolled(ctx context.Context, url string) (*extract.Page, error) {
	s.mu.Lock()
	s.scrolled = append(s.scrolled, url)
	s.mu.Unlock()
	return s.Fetch(ctx, url)
}

// Requests lists every fetched URL in order, scrolled ones included.
func (s *Site) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Site) Scrolled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scrolled...)
}

// Tab behaves like a single browser tab over a Site: each Fetch navigates the
// tab, waits settle and then reads whatever page the tab is showing.
// Overlapping fetches are counted and can read each other's page.
type Tab struct {
	site   *Site
	settle time.Duration

	mu      sync.Mutex
	current string
	active  int
	peak    int
}

func NewTab(site *Site, settle time.Duration) *Tab {
	return &Tab{site: site, settle: settle}
}

func (t *Tab) Fetch(ctx context.Context, url string) (*extract.Page, error) {
	t.mu.Lock()
	t.current = url
	t.active++
	if t.active > t.peak {
		t.peak = t.active
	}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.active--
		t.mu.Unlock()
	}()

	select {
	case <-time.After(t.settle):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	t.mu.Lock()
	showing := t.current
	t.mu.Unlock()

	return t.site.Fetch(ctx, showing)
}

// Peak is the most fetches that were ever in flight at once.
func (t *Tab) Peak() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}
