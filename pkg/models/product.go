package models

import (
	"strings"
	"time"

	"shelf-harvest/pkg/normalize"

	"github.com/shopspring/decimal"
)

const CategorySeparator = " > "

// Product is one observation of a catalog page. URL is its identity: two
// observations of the same URL are the same product at different times.
// Build it with New and treat it as immutable afterwards.
type Product struct {
	Name               string              `json:"name"`
	Price              decimal.Decimal     `json:"price"`
	Currency           string              `json:"currency"`
	URL                string              `json:"url"`
	SKU                string              `json:"sku,omitempty"`
	OriginalPrice      decimal.NullDecimal `json:"original_price"`
	DiscountPercentage decimal.NullDecimal `json:"discount_percentage"`
	Category           string              `json:"category,omitempty"`
	Brand              string              `json:"brand,omitempty"`
	ImageURL           string              `json:"image_url,omitempty"`
	Description        string              `json:"description,omitempty"`
	PackSizeQuantity   decimal.NullDecimal `json:"pack_size_quantity"`
	PackSizeUnit       string              `json:"pack_size_unit,omitempty"`
	InStock            bool                `json:"in_stock"`
	ScrapedAt          time.Time           `json:"scraped_at"`
}

// Draft holds the normalized values an adapter pulled off a page.
type Draft struct {
	Name          string
	Price         decimal.Decimal
	Currency      string
	URL           string
	SKU           string
	OriginalPrice decimal.NullDecimal
	Categories    []string
	Brand         string
	ImageURL      string
	Description   string
	Pack          *normalize.PackSize
	OutOfStock    bool // zero value is in stock
}

// New assembles a Product from d. The discount is always derived here and the
// description is cut to normalize.MaxDescriptionLen characters.
func New(d Draft, scrapedAt time.Time) (Product, error) {
	name := normalize.CleanText(d.Name)
	if name == "" {
		return Product{}, ErrMissingName
	}
	if d.Price.IsNegative() {
		return Product{}, ErrNegativePrice
	}
	if d.URL == "" {
		return Product{}, ErrMissingURL
	}

	p := Product{
		Name:               name,
		Price:              d.Price,
		Currency:           d.Currency,
		URL:                d.URL,
		SKU:                strings.TrimSpace(d.SKU),
		OriginalPrice:      d.OriginalPrice,
		DiscountPercentage: normalize.Discount(d.Price, d.OriginalPrice),
		Category:           JoinCategory(d.Categories),
		Brand:              strings.TrimSpace(d.Brand),
		ImageURL:           d.ImageURL,
		Description:        normalize.Truncate(strings.TrimSpace(d.Description), normalize.MaxDescriptionLen),
		InStock:            !d.OutOfStock,
		ScrapedAt:          scrapedAt,
	}

	if d.Pack != nil && d.Pack.Unit != "" {
		p.PackSizeQuantity = decimal.NewNullDecimal(d.Pack.Quantity)
		p.PackSizeUnit = d.Pack.Unit
	}

	return p, nil
}

// JoinCategory joins breadcrumb levels, skipping empty ones.
func JoinCategory(levels []string) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		if l = normalize.CleanText(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, CategorySeparator)
}

// IsDiscounted reports whether a discount was derived for p.
func (p Product) IsDiscounted() bool {
	return p.DiscountPercentage.Valid
}
