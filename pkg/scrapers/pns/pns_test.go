package pns

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shelf-harvest/pkg/extract"
	"shelf-harvest/pkg/fetch/fetchtest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func statePage(entities string) string {
	return fmt.Sprintf(`<html><head>
<script id="ng-state" type="application/json">{"cx-state":{"product":{"details":{"entities":%s}}}}</script>
</head><body><h1>ignored</h1></body></html>`, entities)
}

const detailsEntities = `{
  "22596": {
    "details": {
      "value": {
        "name": "Golden Phoenix Jasmine Rice 5kg",
        "baseProduct": "BP_22596",
        "supplierName": "DAKEN LTD",
        "price": {"value": 128.0, "oldValue": 160.0},
        "contentSizeUnit": "5KG",
        "categoryNameLevels": [{"name": "Food & Beverages"}, {"name": "Rice"}],
        "description": "<p>Premium <b>fragrant</b> rice</p>",
        "images": {"PRIMARY": {"zoom": {"url": "/medias/rice-zoom.jpg"}}},
        "stock": {"stockLevelStatus": "inStock"}
      }
    }
  },
  "10000": {"details": {"value": {"name": "Should never be read"}}}
}`

const variantsEntities = `{
  "31337": {
    "details": {"value": {}},
    "variants": {
      "value": {
        "name": "Coca-Cola 330ml x 12",
        "price": {"value": "45.90"},
        "contentSizeUnit": "330MLX12",
        "stock": {"stockLevelStatus": "outOfStock"}
      }
    }
  }
}`

func newScraper(t *testing.T, site *fetchtest.Site) *Scraper {
	t.Helper()
	s := NewScraper(site, 0, zaptest.NewLogger(t))
	s.Now = func() time.Time { return time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC) }
	return s
}

func parse(t *testing.T, url, html string) *extract.Page {
	t.Helper()
	page, err := extract.ParseHTML(url, html)
	require.NoError(t, err)
	return page
}

func TestScraper_Extract_Details(t *testing.T) {
	s := newScraper(t, fetchtest.NewSite(nil))
	url := BaseURL + "/en/golden-phoenix-jasmine-rice/p/BP_22596"

	out := s.Extract(url, parse(t, url, statePage(detailsEntities)))
	require.True(t, out.OK(), out.Reason)
	p := out.Product

	require.Equal(t, "Golden Phoenix Jasmine Rice 5kg", p.Name)
	require.True(t, p.Price.Equal(decimal.NewFromInt(128)))
	require.True(t, p.OriginalPrice.Decimal.Equal(decimal.NewFromInt(160)))
	require.True(t, p.DiscountPercentage.Decimal.Equal(decimal.NewFromInt(20)))
	require.Equal(t, "BP_22596", p.SKU)
	require.Equal(t, "DAKEN LTD", p.Brand)
	require.Equal(t, "Food & Beverages > Rice", p.Category)
	require.Equal(t, "Premium fragrant rice", p.Description)
	require.Equal(t, BaseURL+"/medias/rice-zoom.jpg", p.ImageURL)
	require.True(t, p.PackSizeQuantity.Decimal.Equal(decimal.NewFromInt(5)))
	require.Equal(t, "kg", p.PackSizeUnit)
	require.True(t, p.InStock)
	require.Equal(t, Currency, p.Currency)
}

func TestScraper_Extract_FallsBackToVariants(t *testing.T) {
	s := newScraper(t, fetchtest.NewSite(nil))
	url := BaseURL + "/en/coke/p/BP_31337"

	out := s.Extract(url, parse(t, url, statePage(variantsEntities)))
	require.True(t, out.OK(), out.Reason)
	p := out.Product

	require.Equal(t, "Coca-Cola 330ml x 12", p.Name)
	require.True(t, p.Price.Equal(decimal.RequireFromString("45.9")))
	require.False(t, p.OriginalPrice.Valid)
	require.False(t, p.DiscountPercentage.Valid)
	require.Equal(t, "31337", p.SKU)
	require.Equal(t, DefaultBrand, p.Brand)
	require.True(t, p.PackSizeQuantity.Decimal.Equal(decimal.NewFromInt(3960)))
	require.Equal(t, "ml", p.PackSizeUnit)
	require.False(t, p.InStock)
}

func TestScraper_Extract_Discards(t *testing.T) {
	s := newScraper(t, fetchtest.NewSite(nil))
	url := BaseURL + "/en/x/p/BP_1"

	tests := []struct {
		name   string
		html   string
		reason string
	}{
		{"no state", `<html><body>plain</body></html>`, "embedded state not found"},
		{"invalid state", `<script id="ng-state">{oops</script>`, "not valid json"},
		{"no entities", statePage(`{}`), "product key not found"},
		{"no value", statePage(`{"1":{"details":{"value":{}}}}`), ReasonNoProductData},
		{"no name", statePage(`{"1":{"details":{"value":{"price":{"value":3}}}}}`), "product name not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.Extract(url, parse(t, url, tt.html))
			require.False(t, out.OK())
			require.Contains(t, out.Reason, tt.reason)
		})
	}
}

func TestScraper_Extract_MissingDataReasonIgnoresKey(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewScraper(fetchtest.NewSite(nil), 0, zap.New(core))
	url := BaseURL + "/en/x/p/BP_1"

	for _, key := range []string{"1", "22596"} {
		page := statePage(fmt.Sprintf(`{%q:{"details":{"value":{}}}}`, key))
		out := s.Extract(url, parse(t, url, page))
		require.False(t, out.OK())
		require.Equal(t, ReasonNoProductData, out.Reason)
	}

	entries := logs.FilterMessage("no product data under key").AllUntimed()
	require.Len(t, entries, 2)
	require.Equal(t, "1", entries[0].ContextMap()["key"])
	require.Equal(t, "22596", entries[1].ContextMap()["key"])
}

func TestScraper_Extract_StockFallsBackToPageText(t *testing.T) {
	s := newScraper(t, fetchtest.NewSite(nil))
	url := BaseURL + "/en/x/p/BP_1"
	html := `<html><body>
<script id="ng-state">{"cx-state":{"product":{"details":{"entities":{"1":{"details":{"value":{"name":"Soy Sauce"}}}}}}}}</script>
<div>SOLD OUT</div></body></html>`

	out := s.Extract(url, parse(t, url, html))
	require.True(t, out.OK(), out.Reason)
	require.False(t, out.Product.InStock)
	require.True(t, out.Product.Price.IsZero())
}

func TestParsePackSize(t *testing.T) {
	tests := []struct {
		in   string
		qty  string
		unit string
		ok   bool
	}{
		{"330MLX12", "3960", "ml", true},
		{"1.5L x 6", "9", "l", true},
		{"5KG", "5", "kg", true},
		{"165 g", "165", "g", true},
		{"assorted", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ps, ok := ParsePackSize(tt.in)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			require.True(t, ps.Quantity.Equal(decimal.RequireFromString(tt.qty)), "got %s", ps.Quantity)
			require.Equal(t, tt.unit, ps.Unit)
		})
	}
}

func TestScraper_DiscoverURLs(t *testing.T) {
	category := BaseURL + DefaultCategories[0]
	site := fetchtest.NewSite(map[string]string{
		category:             `<a href="/en/a/p/BP_1">a</a><a href="/en/b/p/BP_2">b</a><a href="/en/help">help</a>`,
		category + "?page=2": `<a href="/en/b/p/BP_2">b</a><a href="/en/c/p/bp_3">c</a>`,
		category + "?page=3": `<a href="/en/c/p/bp_3">c</a>`,
		category + "?page=4": `<a href="/en/d/p/BP_4">never reached</a>`,
	})

	s := newScraper(t, site)
	urls, err := s.DiscoverURLs(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{
		BaseURL + "/en/a/p/BP_1",
		BaseURL + "/en/b/p/BP_2",
		BaseURL + "/en/c/p/bp_3",
	}, urls)
	require.Equal(t, []string{category, category + "?page=2", category + "?page=3"}, site.Requests())
	require.Equal(t, []string{category}, site.Scrolled())
}

func TestScraper_DiscoverURLs_RespectsCap(t *testing.T) {
	category := BaseURL + DefaultCategories[0]
	pages := map[string]string{category: `<a href="/en/p/BP_1">1</a>`}
	for n := 2; n <= 20; n++ {
		pages[fmt.Sprintf("%s?page=%d", category, n)] = fmt.Sprintf(`<a href="/en/p/BP_%d">%d</a>`, n, n)
	}
	site := fetchtest.NewSite(pages)

	s := newScraper(t, site)
	s.MaxPages = 4
	urls, err := s.DiscoverURLs(context.Background())
	require.NoError(t, err)
	require.Len(t, urls, 4)
	require.Len(t, site.Requests(), 4)
}
