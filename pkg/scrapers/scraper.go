// Package scrapers holds what every site adapter shares: the Adapter
// contract, extraction outcomes and URL discovery helpers.
package scrapers

import (
	"context"

	"shelf-harvest/pkg/extract"
	"shelf-harvest/pkg/models"
)

// Adapter knows one retail site: where its product pages are and how to read them.
type Adapter interface {
	Name() string
	DiscoverURLs(ctx context.Context) ([]string, error)
	Extract(pageURL string, page *extract.Page) Outcome
}

// Outcome is the result of extracting one product page.
type Outcome struct {
	URL     string
	Product models.Product
	Reason  string
	ok      bool
}

func Accepted(p models.Product) Outcome {
	return Outcome{URL: p.URL, Product: p, ok: true}
}

func Discarded(url, reason string) Outcome {
	return Outcome{URL: url, Reason: reason}
}

func (o Outcome) OK() bool {
	return o.ok
}
