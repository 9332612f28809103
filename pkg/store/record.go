package store

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"shelf-harvest/pkg/models"
)

// Record is a stored product with its storage-assigned fields.
type Record struct {
	ID int64 `json:"id"`
	models.Product
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type row struct {
	ID                 int64               `db:"id"`
	Name               string              `db:"name"`
	Price              decimal.Decimal     `db:"price"`
	Currency           string              `db:"currency"`
	URL                string              `db:"url"`
	SKU                sql.NullString      `db:"sku"`
	OriginalPrice      decimal.NullDecimal `db:"original_price"`
	DiscountPercentage decimal.NullDecimal `db:"discount_percentage"`
	Category           sql.NullString      `db:"category"`
	Brand              sql.NullString      `db:"brand"`
	ImageURL           sql.NullString      `db:"image_url"`
	Description        sql.NullString      `db:"description"`
	PackSizeQuantity   decimal.NullDecimal `db:"pack_size_quantity"`
	PackSizeUnit       sql.NullString      `db:"pack_size_unit"`
	InStock            bool                `db:"in_stock"`
	ScrapedAt          time.Time           `db:"scraped_at"`
	CreatedAt          time.Time           `db:"created_at"`
	UpdatedAt          time.Time           `db:"updated_at"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toRow(p models.Product, now time.Time) row {
	return row{
		Name:               p.Name,
		Price:              p.Price,
		Currency:           p.Currency,
		URL:                p.URL,
		SKU:                nullString(p.SKU),
		OriginalPrice:      p.OriginalPrice,
		DiscountPercentage: p.DiscountPercentage,
		Category:           nullString(p.Category),
		Brand:              nullString(p.Brand),
		ImageURL:           nullString(p.ImageURL),
		Description:        nullString(p.Description),
		PackSizeQuantity:   p.PackSizeQuantity,
		PackSizeUnit:       nullString(p.PackSizeUnit),
		InStock:            p.InStock,
		ScrapedAt:          p.ScrapedAt.UTC(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (r row) record() Record {
	return Record{
		ID: r.ID,
		Product: models.Product{
			Name:               r.Name,
			Price:              r.Price,
			Currency:           r.Currency,
			URL:                r.URL,
			SKU:                r.SKU.String,
			OriginalPrice:      r.OriginalPrice,
			DiscountPercentage: r.DiscountPercentage,
			Category:           r.Category.String,
			Brand:              r.Brand.String,
			ImageURL:           r.ImageURL.String,
			Description:        r.Description.String,
			PackSizeQuantity:   r.PackSizeQuantity,
			PackSizeUnit:       r.PackSizeUnit.String,
			InStock:            r.InStock,
			ScrapedAt:          r.ScrapedAt,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func records(rows []row) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out
}
