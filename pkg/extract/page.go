package extract

import (
	"fmt"
	"strings"

	"shelf-harvest/pkg/normalize"

	"github.com/PuerkitoBio/goquery"
)

// Selectors is a locator chain of CSS selectors, most specific first.
type Selectors []string

// Page is a fetched, parsed HTML document.
type Page struct {
	URL  string
	HTML string
	Doc  *goquery.Document
}

func ParseHTML(pageURL, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html for %s: %w", pageURL, err)
	}
	return &Page{URL: pageURL, HTML: html, Doc: doc}, nil
}

// Text resolves the chain to the trimmed text of the first element matched by
// the first selector that yields non-empty text.
func (p *Page) Text(chain Selectors) (string, bool) {
	return p.TextFunc(chain, nil)
}

// TextFunc is Text where a candidate must also pass accept.
func (p *Page) TextFunc(chain Selectors, accept func(string) bool) (string, bool) {
	for _, sel := range chain {
		el := p.Doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := normalize.CleanText(el.Text())
		if text == "" {
			continue
		}
		if accept != nil && !accept(text) {
			continue
		}
		return text, true
	}
	return "", false
}

// Attr resolves the chain to an attribute of the first matched element. An
// element without the attribute counts as no match.
func (p *Page) Attr(chain Selectors, attr string) (string, bool) {
	for _, sel := range chain {
		val, ok := p.Doc.Find(sel).First().Attr(attr)
		if !ok {
			continue
		}
		if val = strings.TrimSpace(val); val != "" {
			return val, true
		}
	}
	return "", false
}

// Texts returns the non-empty text of every element matching selector.
func (p *Page) Texts(selector string) []string {
	var out []string
	p.Doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := normalize.CleanText(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// Links returns every href on the page in document order.
func (p *Page) Links() []string {
	var out []string
	p.Doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" {
			out = append(out, strings.TrimSpace(href))
		}
	})
	return out
}

// FullText is the text content of the whole document, scripts included.
func (p *Page) FullText() string {
	return p.Doc.Text()
}

// State parses the contents of the first element matching selector as an
// embedded JSON state object.
func (p *Page) State(selector string) (*State, error) {
	el := p.Doc.Find(selector).First()
	if el.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoState, selector)
	}
	return ParseState([]byte(el.Text()))
}
