package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

var (
	// ErrPersist wraps every failed batch write. The batch is rolled back.
	ErrPersist = errors.New("persist products")
	// ErrNotFound is returned by searches and filters that match nothing.
	ErrNotFound = errors.New("no products found")
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	name                TEXT NOT NULL CHECK (name <> ''),
	price               TEXT NOT NULL,
	currency            TEXT NOT NULL,
	url                 TEXT NOT NULL UNIQUE,
	sku                 TEXT,
	original_price      TEXT,
	discount_percentage TEXT,
	category            TEXT,
	brand               TEXT,
	image_url           TEXT,
	description         TEXT,
	pack_size_quantity  TEXT,
	pack_size_unit      TEXT,
	in_stock            INTEGER NOT NULL DEFAULT 1,
	scraped_at          DATETIME NOT NULL,
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
`

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

type Store struct {
	db    *sqlx.DB
	now   func() time.Time
	locks *keyLocks
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open connects to the SQLite database at dsn and creates the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	// SQLite has a single writer and every in-memory connection is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		locks: newKeyLocks(64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// keyLocks is a fixed set of mutexes striped by key hash.
type keyLocks struct {
	stripes []sync.Mutex
}

func newKeyLocks(n int) *keyLocks {
	return &keyLocks{stripes: make([]sync.Mutex, n)}
}

func (l *keyLocks) index(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.stripes)))
}

// lock acquires the stripes of all keys in ascending order and returns the
// matching unlock.
func (l *keyLocks) lock(keys []string) func() {
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		idx = append(idx, l.index(k))
	}
	slices.Sort(idx)
	idx = slices.Compact(idx)

	for _, i := range idx {
		l.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			l.stripes[idx[j]].Unlock()
		}
	}
}
