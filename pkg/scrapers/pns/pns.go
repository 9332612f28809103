// Package pns scrapes PARKnSHOP. Listings are paginated with ?page=N and
// product data ships as the Angular "ng-state" JSON blob, not as markup.
package pns

import (
	"context"
	"fmt"
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
	Source          = "PNS"
	BaseURL         = "https://www.pns.hk"
	Currency        = "HKD"
	DefaultBrand    = "PNS"
	DefaultMaxPages = 10
	StateSelector   = "script#ng-state"
	inStockStatus   = "inStock"

	ReasonNoProductData = "no product data in page state"
)

var DefaultCategories = []string{
	"/en/food-beverages/rice/c/04040100",
}

// EntitiesPath holds one object per product, keyed by an id that is only
// known once the page is loaded.
var EntitiesPath = extract.Path{"cx-state", "product", "details", "entities"}

// ValuePaths locate the product data under the entity key. They are tried in
// this order; the variants form is used when details carries nothing.
var ValuePaths = []extract.Path{
	{"details", "value"},
	{"variants", "value"},
}

var compactPackSize = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]+?)\s*x\s*(\d+)\s*$`)

type Scraper struct {
	BaseURL     string
	Categories  []string
	MaxPages    int
	Fetcher     fetch.Fetcher
	Logger      *zap.Logger
	Now         func() time.Time
	Unavailable []string
}

func NewScraper(f fetch.Fetcher, maxPages int, logger *zap.Logger) *Scraper {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Scraper{
		BaseURL:    BaseURL,
		Categories: DefaultCategories,
		MaxPages:   maxPages,
		Fetcher:    f,
		Logger:     logger.With(zap.String("source", Source)),
		Now:        time.Now,
	}
}

func (s *Scraper) Name() string {
	return Source
}

// DiscoverURLs walks each category's numbered pages until one adds nothing new.
func (s *Scraper) DiscoverURLs(ctx context.Context) ([]string, error) {
	urls := scrapers.NewURLSet()

	for _, category := range s.Categories {
		categoryURL := s.BaseURL + category
		s.Logger.Info("scraping category", zap.String("category", category))

		visited, err := scrapers.Paginate(ctx, scrapers.PageWalk{
			MaxPages: s.MaxPages,
			Fetch: func(ctx context.Context, n int) (*extract.Page, error) {
				return s.fetchListing(ctx, categoryURL, n)
			},
			Collect: func(page *extract.Page) int {
				return scrapers.CollectLinks(page, s.BaseURL, isProductLink, urls)
			},
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return urls.List(), ctxErr
		}
		if err != nil {
			s.Logger.Warn("listing fetch failed, moving to next category",
				zap.String("category", category), zap.Int("page", visited), zap.Error(err))
		}

		s.Logger.Info("category done",
			zap.String("category", category),
			zap.Int("pages", visited),
			zap.Int("total", urls.Len()),
		)
	}

	return urls.List(), nil
}

// The first page lazy-loads more tiles on scroll when the fetcher can scroll.
func (s *Scraper) fetchListing(ctx context.Context, categoryURL string, n int) (*extract.Page, error) {
	if n == 1 {
		if sc, ok := s.Fetcher.(fetch.Scroller); ok {
			return sc.FetchScrolled(ctx, categoryURL)
		}
		return s.Fetcher.Fetch(ctx, categoryURL)
	}
	return s.Fetcher.Fetch(ctx, fmt.Sprintf("%s?page=%d", categoryURL, n))
}

func isProductLink(href string) bool {
	return strings.Contains(href, "/p/BP_") || strings.Contains(href, "/p/bp_")
}

// EntityKey returns the id of the first product entity in the page state.
func EntityKey(state *extract.State) (string, bool) {
	return state.FirstKey(EntitiesPath)
}

// ProductData resolves the product object under key following ValuePaths.
func ProductData(state *extract.State, key string) (*extract.State, bool) {
	for _, rel := range ValuePaths {
		path := append(append(extract.Path{}, EntitiesPath...), key)
		path = append(path, rel...)

		data, ok := state.At(path)
		if !ok {
			continue
		}
		// an empty object carries nothing, fall through to the next form
		if _, nonEmpty := data.FirstKey(nil); nonEmpty {
			return data, true
		}
	}
	return nil, false
}

func (s *Scraper) Extract(pageURL string, page *extract.Page) scrapers.Outcome {
	state, err := page.State(StateSelector)
	if err != nil {
		return scrapers.Discarded(pageURL, err.Error())
	}

	key, ok := EntityKey(state)
	if !ok {
		return scrapers.Discarded(pageURL, "product key not found in page state")
	}

	data, ok := ProductData(state, key)
	if !ok {
		s.Logger.Debug("no product data under key", zap.String("url", pageURL), zap.String("key", key))
		return scrapers.Discarded(pageURL, ReasonNoProductData)
	}

	d := models.Draft{
		URL:      pageURL,
		Currency: Currency,
	}

	d.Name, _ = data.String(extract.Path{"name"})

	if price, ok := data.Decimal(extract.Path{"price", "value"}); ok {
		d.Price = price
	} else {
		s.Logger.Warn("no price in page state, defaulting to zero", zap.String("url", pageURL))
	}

	if old, ok := data.Decimal(extract.Path{"price", "oldValue"}); ok && !old.IsZero() {
		d.OriginalPrice = decimal.NewNullDecimal(old)
	}

	if text, ok := data.String(extract.Path{"contentSizeUnit"}); ok {
		if ps, ok := ParsePackSize(text); ok {
			d.Pack = &ps
		}
	}

	if sku, ok := data.String(extract.Path{"baseProduct"}); ok {
		d.SKU = sku
	} else {
		d.SKU = key
	}

	d.Brand = DefaultBrand
	if brand, ok := data.String(extract.Path{"supplierName"}); ok {
		d.Brand = brand
	}

	data.Each(extract.Path{"categoryNameLevels"}, func(level *extract.State) {
		name, _ := level.String(extract.Path{"name"})
		d.Categories = append(d.Categories, name)
	})

	if html, ok := data.String(extract.Path{"description"}); ok {
		d.Description = normalize.StripHTML(html)
	}

	if img, ok := data.String(extract.Path{"images", "PRIMARY", "zoom", "url"}); ok {
		d.ImageURL = normalize.AbsoluteURL(s.BaseURL, img)
	}

	if status, ok := data.String(extract.Path{"stock", "stockLevelStatus"}); ok {
		d.OutOfStock = status != inStockStatus
	} else {
		d.OutOfStock = !normalize.InStock(page.FullText(), s.Unavailable)
	}

	p, err := models.New(d, s.Now())
	if err != nil {
		return scrapers.Discarded(pageURL, err.Error())
	}
	return scrapers.Accepted(p)
}

// ParsePackSize reads PNS content sizes. The compact multi-pack form
// "<n><UNIT>X<count>" (e.g. "330MLX12") becomes the total content n*count in
// the lower-cased unit; anything else goes through normalize.ParsePackSize.
func ParsePackSize(text string) (normalize.PackSize, bool) {
	if m := compactPackSize.FindStringSubmatch(text); m != nil {
		each, err := decimal.NewFromString(m[1])
		if err != nil {
			return normalize.PackSize{}, false
		}
		count, err := decimal.NewFromString(m[3])
		if err != nil || count.IsZero() {
			return normalize.PackSize{}, false
		}
		return normalize.PackSize{Quantity: each.Mul(count), Unit: strings.ToLower(m[2])}, true
	}

	ps, ok := normalize.ParsePackSize(text)
	if !ok {
		return normalize.PackSize{}, false
	}
	ps.Unit = strings.ToLower(ps.Unit)
	return ps, true
}
