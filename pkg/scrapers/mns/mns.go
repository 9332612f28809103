// Package mns scrapes the Marks & Spencer Hong Kong food hall. Listings
// lazy-load on scroll; product pages are plain rendered markup.
package mns

import (
	"context"
	"regexp"
	"strings"
	"time"

	"shelf-harvest/pkg/extract"
	"shelf-harvest/pkg/fetch"
	"shelf-harvest/pkg/models"
	"shelf-harvest/pkg/normalize"
	"shelf-harvest/pkg/scrapers"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	Source   = "MNS"
	BaseURL  = "https://www.marksandspencer.hk"
	Currency = "HKD"
	Brand    = "Marks & Spencer"
)

var DefaultCategories = []string{
	"/en/food/category/frozen-food",
	"/en/food/category/drinks",
	"/en/food/category/food-cupboard/grains-pasta",
}

var (
	nameSelectors = extract.Selectors{
		`h1[class*="product"]`,
		`h1[class*="title"]`,
		`.pdp-title`,
		`h1.heading-1`,
		`[data-testid="product-title"]`,
	}
	packSizeSelectors = extract.Selectors{
		`.ProductTitlePrice_productInfo__PtbHb .ProductTitlePrice_packSize__SAa89`,
		`.ProductTitlePrice_productInfo__PtbHb span.my-1`,
		`span.ProductTitlePrice_packSize__SAa89`,
		`.pack-size`,
		`[class*="packSize"]`,
	}
	priceSelectors = extract.Selectors{
		`.ProductTitlePrice_productInfo__PtbHb .heading-lg-bold`,
		`.ProductTitlePrice_productInfo__PtbHb p.heading-lg-bold`,
		`div.ProductTitlePrice_productInfo__PtbHb p`,
		`[class*="price"][class*="current"]`,
		`[class*="price"][class*="sale"]`,
		`.price-value`,
		`[data-testid="product-price"]`,
		`span[class*="price"]`,
	}
	originalPriceSelectors = extract.Selectors{
		`[class*="original"]`,
		`[class*="was"]`,
		`[class*="strike"]`,
		`.price-was`,
	}
	descriptionSelectors = extract.Selectors{
		`[class*="description"]`,
		`[class*="details"]`,
		`.product-info`,
		`[data-testid="product-description"]`,
	}
	imageSelectors = extract.Selectors{
		`img[class*="product"]`,
		`img[class*="main"]`,
		`.product-image img`,
		`[data-testid="product-image"]`,
	}
	breadcrumbSelector = `.breadcrumb a, [class*="breadcrumb"] a`
)

// Tried against the raw page source in order.
var skuPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sku["']?\s*:\s*["']?(\w+)`),
	regexp.MustCompile(`(?i)product[_-]?id["']?\s*:\s*["']?(\w+)`),
	regexp.MustCompile(`(?i)/products?/[^/]+/(\w+)`),
}

var trailingDigits = regexp.MustCompile(`/(\d+)/?$`)

type Scraper struct {
	BaseURL     string
	Categories  []string
	Fetcher     fetch.Scroller
	Logger      *zap.Logger
	Now         func() time.Time
	Unavailable []string // lower case; nil means normalize.DefaultUnavailable
}

func NewScraper(f fetch.Scroller, logger *zap.Logger) *Scraper {
	return &Scraper{
		BaseURL:    BaseURL,
		Categories: DefaultCategories,
		Fetcher:    f,
		Logger:     logger.With(zap.String("source", Source)),
		Now:        time.Now,
	}
}

func (s *Scraper) Name() string {
	return Source
}

// DiscoverURLs loads every category fully by scrolling and collects product links.
func (s *Scraper) DiscoverURLs(ctx context.Context) ([]string, error) {
	urls := scrapers.NewURLSet()

	for _, category := range s.Categories {
		if err := ctx.Err(); err != nil {
			return urls.List(), err
		}

		categoryURL := s.BaseURL + category
		s.Logger.Info("scraping category", zap.String("category", category))

		page, err := s.Fetcher.FetchScrolled(ctx, categoryURL)
		if err != nil {
			s.Logger.Warn("category fetch failed", zap.String("url", categoryURL), zap.Error(err))
			continue
		}

		added := scrapers.CollectLinks(page, s.BaseURL, isProductLink, urls)
		s.Logger.Info("collected product links",
			zap.String("category", category),
			zap.Int("new", added),
			zap.Int("total", urls.Len()),
		)
	}

	return urls.List(), nil
}

func isProductLink(href string) bool {
	return strings.Contains(href, "/products/") && strings.Contains(href, "/food/")
}

func (s *Scraper) Extract(pageURL string, page *extract.Page) scrapers.Outcome {
	d := models.Draft{
		URL:      pageURL,
		Currency: Currency,
		Brand:    Brand,
	}

	d.Name, _ = page.Text(nameSelectors)

	if text, ok := page.Text(packSizeSelectors); ok {
		if ps, ok := normalize.ParsePackSize(text); ok {
			d.Pack = &ps
		}
	}

	if text, ok := page.TextFunc(priceSelectors, func(t string) bool {
		return normalize.ParsePrice(t).IsPositive()
	}); ok {
		d.Price = normalize.ParsePrice(text)
	} else {
		s.Logger.Warn("no parseable price, defaulting to zero", zap.String("url", pageURL))
	}

	if text, ok := page.TextFunc(originalPriceSelectors, func(t string) bool {
		return normalize.ParsePrice(t).GreaterThan(d.Price)
	}); ok {
		d.OriginalPrice = decimal.NewNullDecimal(normalize.ParsePrice(text))
	}

	d.SKU = findSKU(pageURL, page.HTML)
	d.Categories = page.Texts(breadcrumbSelector)
	d.Description, _ = page.Text(descriptionSelectors)

	if src, ok := page.Attr(imageSelectors, "src"); ok {
		d.ImageURL = normalize.AbsoluteURL(s.BaseURL, src)
	}

	d.OutOfStock = !normalize.InStock(page.FullText(), s.Unavailable)

	p, err := models.New(d, s.Now())
	if err != nil {
		return scrapers.Discarded(pageURL, err.Error())
	}
	return scrapers.Accepted(p)
}

func findSKU(pageURL, html string) string {
	for _, re := range skuPatterns {
		if m := re.FindStringSubmatch(html); m != nil {
			return m[1]
		}
	}
	if m := trailingDigits.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}
