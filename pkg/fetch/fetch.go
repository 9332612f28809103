// Package fetch turns URLs into parsed pages. It is the only place that talks
// to the network or a browser; everything downstream works on extract.Page.
package fetch

import (
	"context"
	"errors"

	"shelf-harvest/pkg/extract"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var ErrEmptyPage = errors.New("fetched page is empty")

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*extract.Page, error)
}

// Scroller loads a page and keeps scrolling until lazy-loaded content stops growing.
type Scroller interface {
	Fetcher
	FetchScrolled(ctx context.Context, url string) (*extract.Page, error)
}
