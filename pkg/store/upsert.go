package store

import (
	"context"
	"fmt"

	"shelf-harvest/pkg/models"
)

const upsertQuery = `
INSERT INTO products (
	name, price, currency, url, sku, original_price, discount_percentage,
	category, brand, image_url, description, pack_size_quantity, pack_size_unit,
	in_stock, scraped_at, created_at, updated_at
) VALUES (
	:name, :price, :currency, :url, :sku, :original_price, :discount_percentage,
	:category, :brand, :image_url, :description, :pack_size_quantity, :pack_size_unit,
	:in_stock, :scraped_at, :created_at, :updated_at
)
ON CONFLICT(url) DO UPDATE SET
	name = excluded.name,
	price = excluded.price,
	currency = excluded.currency,
	sku = excluded.sku,
	original_price = excluded.original_price,
	discount_percentage = excluded.discount_percentage,
	category = excluded.category,
	brand = excluded.brand,
	image_url = excluded.image_url,
	description = excluded.description,
	pack_size_quantity = excluded.pack_size_quantity,
	pack_size_unit = excluded.pack_size_unit,
	in_stock = excluded.in_stock,
	scraped_at = excluded.scraped_at,
	updated_at = excluded.updated_at`

// Result counts the rows a batch created and the rows it merged into.
type Result struct {
	Inserted int
	Updated  int
}

func (r Result) Total() int {
	return r.Inserted + r.Updated
}

// Upsert writes products in a single transaction keyed by URL. Existing rows
// keep their id and created_at. On any failure nothing from the batch is
// written and the error wraps ErrPersist.
func (s *Store) Upsert(ctx context.Context, products []models.Product) (Result, error) {
	if len(products) == 0 {
		return Result{}, nil
	}

	urls := make([]string, 0, len(products))
	for _, p := range products {
		urls = append(urls, p.URL)
	}
	unlock := s.locks.lock(urls)
	defer unlock()

	res, err := s.upsert(ctx, products)
	if err != nil {
		return Result{}, fmt.Errorf("%w: batch of %d: %w", ErrPersist, len(products), err)
	}
	return res, nil
}

func (s *Store) upsert(ctx context.Context, products []models.Product) (Result, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertQuery)
	if err != nil {
		return Result{}, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	var res Result
	for _, p := range products {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM products WHERE url = ?)`, p.URL); err != nil {
			return Result{}, fmt.Errorf("lookup %s: %w", p.URL, err)
		}
		if _, err := stmt.ExecContext(ctx, toRow(p, now)); err != nil {
			return Result{}, fmt.Errorf("upsert %s: %w", p.URL, err)
		}
		if exists {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
