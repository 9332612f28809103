package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TopN is how many brands and categories Stats reports.
const TopN = 5

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains builds a LIKE pattern matching s anywhere, with wildcards in s
// taken literally.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// List returns every stored product ordered by id.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM products ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return records(rows), nil
}

// Get returns the product stored under url.
func (s *Store) Get(ctx context.Context, url string) (Record, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT * FROM products WHERE url = ?`, url)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", url, err)
	}
	return r.record(), nil
}

// SearchByName returns products whose name contains name. Matching ignores
// case for ASCII letters.
func (s *Store) SearchByName(ctx context.Context, name string) ([]Record, error) {
	return s.match(ctx, "name", name)
}

// FilterByCategory returns products whose category path contains category.
func (s *Store) FilterByCategory(ctx context.Context, category string) ([]Record, error) {
	return s.match(ctx, "category", category)
}

func (s *Store) match(ctx context.Context, column, term string) ([]Record, error) {
	query := fmt.Sprintf(`SELECT * FROM products WHERE %s LIKE ? ESCAPE '\' ORDER BY id`, column)

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, contains(term)); err != nil {
		return nil, fmt.Errorf("match %s: %w", column, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return records(rows), nil
}

// Count is a value with its number of products.
type Count struct {
	Value string `json:"value" db:"value"`
	Count int    `json:"count" db:"count"`
}

type Stats struct {
	Total         int             `json:"total_products"`
	Discounted    int             `json:"discounted_products"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	TopBrands     []Count         `json:"top_brands"`
	TopCategories []Count         `json:"top_categories"`
}

// Stats summarises the stored catalogue.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats

	var agg struct {
		Total      int             `db:"total"`
		Discounted int             `db:"discounted"`
		Average    sql.NullFloat64 `db:"average"`
	}
	err := s.db.GetContext(ctx, &agg, `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN CAST(discount_percentage AS REAL) > 0 THEN 1 END) AS discounted,
			AVG(CAST(price AS REAL)) AS average
		FROM products`)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	st.Total = agg.Total
	st.Discounted = agg.Discounted
	if agg.Average.Valid {
		st.AveragePrice = decimal.NewFromFloat(agg.Average.Float64).Round(2)
	}

	if st.TopBrands, err = s.top(ctx, "brand"); err != nil {
		return Stats{}, err
	}
	if st.TopCategories, err = s.top(ctx, "category"); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *Store) top(ctx context.Context, column string) ([]Count, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s AS value, COUNT(*) AS count
		FROM products
		WHERE %[1]s IS NOT NULL AND %[1]s <> ''
		GROUP BY %[1]s
		ORDER BY count DESC, value
		LIMIT ?`, column)

	counts := []Count{}
	if err := s.db.SelectContext(ctx, &counts, query, TopN); err != nil {
		return nil, fmt.Errorf("top %s: %w", column, err)
	}
	return counts, nil
}
