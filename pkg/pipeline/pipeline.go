// Package pipeline drives one adapter from URL discovery to persisted records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shelf-harvest/pkg/fetch"
	"shelf-harvest/pkg/logger"
	"shelf-harvest/pkg/models"
	"shelf-harvest/pkg/scrapers"
	"shelf-harvest/pkg/store"
)

// Upserter persists a batch of products atomically.
type Upserter interface {
	Upsert(ctx context.Context, products []models.Product) (store.Result, error)
}

type Options struct {
	// Workers bounds concurrent fetch+extract. One or less runs sequentially.
	Workers int
	// BatchSize is how many accepted products are written per Upsert call.
	BatchSize int
	// DedupDelay controls how long repeated discard messages are held.
	DedupDelay time.Duration
}

type Pipeline struct {
	adapter  scrapers.Adapter
	fetcher  fetch.Fetcher
	upserter Upserter
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

func New(adapter scrapers.Adapter, fetcher fetch.Fetcher, upserter Upserter, log *zap.Logger, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	return &Pipeline{
		adapter:  adapter,
		fetcher:  fetcher,
		upserter: upserter,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// Run discovers every product URL of the adapter, extracts each page and
// persists the accepted products. Fetch failures and discards never stop the
// run; persistence failures are collected and returned joined.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	rep := Report{
		RunID:    uuid.NewString(),
		Source:   p.adapter.Name(),
		Started:  p.now(),
		Discards: make(map[string]int),
	}
	log := p.log.With(zap.String("run_id", rep.RunID), zap.String("source", rep.Source))
	dedup := logger.NewDeduplicator(log, p.opts.DedupDelay)
	defer dedup.Flush()

	urls, err := p.adapter.DiscoverURLs(ctx)
	if err != nil {
		rep.Finished = p.now()
		return rep, fmt.Errorf("discover %s: %w", rep.Source, err)
	}
	rep.Discovered = len(urls)
	log.Info("discovered product urls", zap.Int("count", len(urls)))

	r := &run{p: p, rep: &rep, log: log, dedup: dedup}
	if p.opts.Workers == 1 {
		for _, u := range urls {
			if ctx.Err() != nil {
				break
			}
			r.collect(ctx, p.process(ctx, u))
		}
	} else {
		r.parallel(ctx, urls)
	}
	r.flush(ctx)

	rep.Finished = p.now()
	log.Info("run finished",
		zap.Int("discovered", rep.Discovered),
		zap.Int("fetch_failed", rep.FetchFailed),
		zap.Int("discarded", rep.Discarded),
		zap.Int("inserted", rep.Inserted),
		zap.Int("updated", rep.Updated),
		zap.Int("persist_failed", rep.PersistFailed),
		zap.Duration("took", rep.Finished.Sub(rep.Started)),
	)

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, errors.Join(rep.Errors...)
}

type result struct {
	url      string
	fetchErr error
	outcome  scrapers.Outcome
}

func (p *Pipeline) process(ctx context.Context, url string) result {
	page, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return result{url: url, fetchErr: err}
	}
	return result{url: url, outcome: p.adapter.Extract(url, page)}
}

// run holds the state of a single Run. Only the collecting goroutine touches it.
type run struct {
	p     *Pipeline
	rep   *Report
	log   *zap.Logger
	dedup *logger.Deduplicator
	batch []models.Product
}

func (r *run) parallel(ctx context.Context, urls []string) {
	results := make(chan result)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.p.opts.Workers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for res := range results {
			r.collect(ctx, res)
		}
	}()

	for _, u := range urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results <- r.p.process(gctx, u)
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	wg.Wait()
}

func (r *run) collect(ctx context.Context, res result) {
	if res.fetchErr != nil {
		r.rep.FetchFailed++
		r.log.Warn("fetch failed", zap.String("url", res.url), zap.Error(res.fetchErr))
		return
	}

	o := res.outcome
	if !o.OK() {
		r.rep.Discarded++
		r.rep.Discards[o.Reason]++
		r.log.Debug("page discarded", zap.String("url", o.URL), zap.String("reason", o.Reason))
		r.dedup.Info("product discarded: "+o.Reason, zap.String("url", o.URL))
		return
	}

	r.rep.Extracted++
	r.batch = append(r.batch, o.Product)
	if len(r.batch) >= r.p.opts.BatchSize {
		r.flush(ctx)
	}
}

func (r *run) flush(ctx context.Context) {
	if len(r.batch) == 0 {
		return
	}
	batch := r.batch
	r.batch = nil

	res, err := r.p.upserter.Upsert(ctx, batch)
	if err != nil {
		r.rep.PersistFailed += len(batch)
		r.rep.Errors = append(r.rep.Errors, err)
		r.log.Error("persist batch", zap.Int("size", len(batch)), zap.Error(err))
		return
	}
	r.rep.Inserted += res.Inserted
	r.rep.Updated += res.Updated
	r.log.Debug("persisted batch", zap.Int("inserted", res.Inserted), zap.Int("updated", res.Updated))
}
