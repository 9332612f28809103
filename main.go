package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shelf-harvest/pkg/api"
	"shelf-harvest/pkg/config"
	"shelf-harvest/pkg/fetch"
	"shelf-harvest/pkg/logger"
	"shelf-harvest/pkg/pipeline"
	"shelf-harvest/pkg/scrapers"
	"shelf-harvest/pkg/scrapers/mns"
	"shelf-harvest/pkg/scrapers/pns"
	"shelf-harvest/pkg/store"
)

const (
	docsTitle       = "Shelf Harvest API"
	shutdownTimeout = 10 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("shelf-harvest", flag.ContinueOnError)
	mode := flags.String("mode", "serve", "serve | scrape")
	site := flags.String("site", "all", "site to scrape: mns | pns | all")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()

	appLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer appLogger.Sync()

	decimal.MarshalJSONWithoutQuotes = true

	products, err := store.Open(context.Background(), cfg.Store.Path)
	if err != nil {
		appLogger.Error("could not open product store", zap.String("path", cfg.Store.Path), zap.Error(err))
		return 1
	}
	defer products.Close()
	appLogger.Info("product store ready", zap.String("path", cfg.Store.Path))

	switch *mode {
	case "serve":
		return serve(cfg, products, appLogger)
	case "scrape":
		// cancels in-flight fetches on interrupt; the store closes after the run returns
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := scrape(ctx, cfg, *site, products, appLogger); err != nil {
			appLogger.Error("scrape failed", zap.Error(err))
			return 1
		}
		return 0
	default:
		appLogger.Error("exiting", zap.Error(fmt.Errorf("unknown mode %q, want serve or scrape", *mode)))
		return 1
	}
}

func newRouter(cfg *config.Config, products api.Reader, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	api.NewHandler(products, log).Register(mux)
	mux.HandleFunc("GET /", api.Docs("./", docsTitle))
	return api.CORS(cfg.Server.CORSOrigins, mux)
}

// serve blocks until SIGINT or SIGTERM and returns the process exit code.
func serve(cfg *config.Config, products api.Reader, log *zap.Logger) int {
	port := cfg.Server.Port

	// bind up front so a taken port fails the process instead of waiting for a signal
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		log.Error("listen", zap.String("port", port), zap.Error(err))
		return 1
	}

	if ip := GetOutboundIP(); ip != nil {
		log.Info("local network url", zap.String("url", fmt.Sprintf("http://%s:%s", ip, port)))
	}
	log.Info("serving", zap.String("url", "http://localhost:"+port), zap.String("docs", "http://localhost:"+port+"/"))

	server := &http.Server{
		Handler:           newRouter(cfg, products, log),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, shutdownOps(server, log))
	exitCode := <-wait
	log.Info("server exited", zap.Int("code", exitCode))
	return exitCode
}

func shutdownOps(server *http.Server, log *zap.Logger) map[string]gfshutdown.Operation {
	return map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info("shutting down http server")
			return server.Shutdown(ctx)
		},
	}
}

// job is one adapter with the fetcher for its product pages and whatever
// needs closing once the run ends.
type job struct {
	adapter scrapers.Adapter
	pages   fetch.Fetcher
	close   func() error
}

func scrape(ctx context.Context, cfg *config.Config, site string, products *store.Store, log *zap.Logger) error {
	var names []string
	switch site {
	case "all":
		names = []string{"mns", "pns"}
	case "mns", "pns":
		names = []string{site}
	default:
		return fmt.Errorf("unknown site %q, want mns, pns or all", site)
	}

	opts := pipeline.Options{
		Workers:   cfg.Pipeline.Workers,
		BatchSize: cfg.Pipeline.BatchSize,
	}

	var errs []error
	for _, name := range names {
		j, err := newJob(name, cfg, log)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		report, err := pipeline.New(j.adapter, j.pages, products, log, opts).Run(ctx)
		if cerr := j.close(); cerr != nil {
			log.Warn("close fetcher", zap.String("site", name), zap.Error(cerr))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		log.Info("scrape complete",
			zap.String("site", name),
			zap.String("run_id", report.RunID),
			zap.Int("persisted", report.Persisted()),
			zap.Int("discarded", report.Discarded),
			zap.Int("fetch_failed", report.FetchFailed),
		)
		if ctx.Err() != nil {
			break
		}
	}

	if st, err := products.Stats(ctx); err == nil {
		log.Info("store stats",
			zap.Int("total", st.Total),
			zap.Int("discounted", st.Discounted),
			zap.String("average_price", st.AveragePrice.StringFixed(2)),
			zap.Any("top_brands", st.TopBrands),
		)
	}

	return errors.Join(errs...)
}

// newJob builds the adapter for a site on its own browser session. PNS
// product pages carry their data in server-rendered state, so they go through
// the plain HTTP collector.
func newJob(name string, cfg *config.Config, log *zap.Logger) (*job, error) {
	browser, err := fetch.NewBrowser(fetch.BrowserOptions{
		Headless:    cfg.Browser.Headless,
		UserAgent:   cfg.Browser.UserAgent,
		Timeout:     cfg.Browser.Timeout,
		Settle:      cfg.Browser.Settle,
		ScrollPause: cfg.Browser.ScrollWait,
		MaxScrolls:  cfg.Browser.MaxScrolls,
	}, log)
	if err != nil {
		return nil, err
	}
	// pipeline workers share the browser's single tab
	limited := fetch.NewLimited(fetch.NewSerial(browser), cfg.Fetch.RPS)

	switch name {
	case "mns":
		return &job{
			adapter: mns.NewScraper(limited, log),
			pages:   limited,
			close:   browser.Close,
		}, nil
	case "pns":
		static := fetch.NewStatic(cfg.Browser.UserAgent, "www.pns.hk", "pns.hk")
		return &job{
			adapter: pns.NewScraper(limited, cfg.Fetch.PNSMaxPages, log),
			pages:   fetch.NewLimited(static, cfg.Fetch.RPS),
			close:   browser.Close,
		}, nil
	}
	browser.Close()
	return nil, fmt.Errorf("no adapter for %q", name)
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}
