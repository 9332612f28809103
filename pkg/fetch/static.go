package fetch

import (
	"context"
	"fmt"

	"shelf-harvest/pkg/extract"

	"github.com/gocolly/colly/v2"
)

// Static fetches server-rendered pages with colly.
type Static struct {
	Collector *colly.Collector
}

func NewStatic(userAgent string, allowedDomains ...string) *Static {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	c := colly.NewCollector(
		colly.AllowedDomains(allowedDomains...),
		colly.UserAgent(userAgent),
	)
	// discovery revisits listing pages on purpose
	c.AllowURLRevisit = true
	return &Static{Collector: c}
}

func (s *Static) Fetch(ctx context.Context, url string) (*extract.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := s.Collector.Clone()
	c.AllowURLRevisit = true

	var body []byte
	var finalURL string
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL.String()
	})

	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("visit %s: %w", url, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPage, url)
	}
	if finalURL == "" {
		finalURL = url
	}
	return extract.ParseHTML(finalURL, string(body))
}
