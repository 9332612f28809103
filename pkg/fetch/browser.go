package fetch

import (
	"context"
	"fmt"
	"time"

	"shelf-harvest/pkg/extract"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

type BrowserOptions struct {
	Headless    bool
	UserAgent   string
	Timeout     time.Duration // per page load
	Settle      time.Duration // wait after load for client-side rendering
	ScrollPause time.Duration
	MaxScrolls  int
}

// Browser drives one headless Chrome session with a single tab. Each adapter
// gets its own, and concurrent callers go through Serial.
type Browser struct {
	opts        BrowserOptions
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
}

func NewBrowser(opts BrowserOptions, logger *zap.Logger) (*Browser, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// start the browser now so a missing Chrome fails at construction
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Browser{
		opts:        opts,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		cancelAlloc: cancelAlloc,
	}, nil
}

func (b *Browser) Fetch(ctx context.Context, url string) (*extract.Page, error) {
	return b.load(ctx, url, false)
}

func (b *Browser) FetchScrolled(ctx context.Context, url string) (*extract.Page, error) {
	return b.load(ctx, url, true)
}

func (b *Browser) load(ctx context.Context, url string, scroll bool) (*extract.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := context.WithTimeout(b.ctx, b.opts.Timeout)
	defer cancel()

	// tie the tab to the caller as well as to the timeout
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	b.logger.Debug("navigating", zap.String("url", url), zap.Bool("scroll", scroll))

	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.Sleep(b.opts.Settle),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp navigate %s: %w", url, err)
	}

	if scroll {
		rounds, err := ScrollUntilStable(tabCtx, tab{}, b.opts.ScrollPause, b.opts.MaxScrolls)
		if err != nil {
			return nil, fmt.Errorf("scroll %s: %w", url, err)
		}
		b.logger.Debug("scrolled", zap.String("url", url), zap.Int("rounds", rounds))
	}

	var html, location string
	err = chromedp.Run(tabCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp read %s: %w", url, err)
	}
	if html == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPage, url)
	}
	if location == "" {
		location = url
	}
	return extract.ParseHTML(location, html)
}

func (b *Browser) Close() error {
	b.cancel()
	b.cancelAlloc()
	return nil
}

// tab runs scroll actions against whatever chromedp context it is given.
type tab struct{}

func (tab) ContentHeight(ctx context.Context) (int64, error) {
	var h int64
	err := chromedp.Run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &h))
	return h, err
}

func (tab) ScrollToBottom(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}
