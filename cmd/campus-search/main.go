// Command campus-search scrapes the college website into a searchable
// content index and serves it over HTTP and the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/studenthub/campus-search/internal/config"
	"github.com/studenthub/campus-search/internal/metrics"
	"github.com/studenthub/campus-search/internal/pdfcache"
	"github.com/studenthub/campus-search/internal/scrape"
	"github.com/studenthub/campus-search/internal/search"
	"github.com/studenthub/campus-search/internal/storage"
	"github.com/studenthub/campus-search/internal/web"
)

type cli struct {
	Config string `help:"Path to the YAML config file." default:"config.yaml"`

	Serve   serveCmd   `cmd:"" help:"Start the HTTP server."`
	Scrape  scrapeCmd  `cmd:"" help:"Scrape the site and rebuild the index."`
	Search  searchCmd  `cmd:"" help:"Query the index from the command line."`
	Filters filtersCmd `cmd:"" help:"List the filter values currently indexed."`
	Stats   statsCmd   `cmd:"" help:"Show store and index statistics."`
}

// appContext carries shared dependencies into command Run methods.
type appContext struct {
	ctx    context.Context
	cfg    config.Config
	logger *slog.Logger
}

func main() {
	var c cli
	parsed := kong.Parse(&c,
		kong.Name("campus-search"),
		kong.Description("Search engine over scraped college website content."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(c.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &appContext{ctx: ctx, cfg: cfg, logger: slog.Default()}
	if err := parsed.Run(app); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LoggingConfig) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openEngine opens the durable store and loads the last persisted
// generation. An unopenable store is fatal to the caller.
func openEngine(app *appContext, m *metrics.Metrics) (*search.Engine, *storage.DB, error) {
	if err := os.MkdirAll(app.cfg.Storage.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := storage.Open(app.cfg.Storage.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	eng := search.New(db, app.logger, m)
	if err := eng.LoadFromStore(app.ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return eng, db, nil
}

func newScraper(app *appContext) (*scrape.Scraper, error) {
	return scrape.New(scrape.Config{
		BaseURL:            app.cfg.Scrape.BaseURL,
		Sections:           app.cfg.Scrape.Sections,
		Timeout:            app.cfg.Scrape.Timeout.Std(),
		InsecureSkipVerify: app.cfg.Scrape.InsecureSkipVerify,
		UserAgent:          app.cfg.Scrape.UserAgent,
	}, app.logger)
}

// refresh runs one scrape-save-ingest cycle.
func refresh(app *appContext, scraper *scrape.Scraper, eng *search.Engine) (*search.IngestStats, error) {
	snap, err := scraper.Scrape(app.ctx)
	if err != nil {
		return nil, fmt.Errorf("scrape: %w", err)
	}
	if err := snap.SaveFile(app.cfg.Storage.SnapshotPath()); err != nil {
		app.logger.Warn("snapshot save failed", "error", err)
	}
	return eng.Ingest(app.ctx, snap)
}

type serveCmd struct{}

func (s *serveCmd) Run(app *appContext) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	eng, db, err := openEngine(app, m)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	scraper, err := newScraper(app)
	if err != nil {
		return fmt.Errorf("create scraper: %w", err)
	}

	baseURL, err := url.Parse(app.cfg.Scrape.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	pdfs, err := pdfcache.New(pdfcache.Options{
		Dir:                app.cfg.Storage.PDFCacheDir(),
		AllowedHosts:       []string{baseURL.Hostname()},
		InsecureSkipVerify: app.cfg.Scrape.InsecureSkipVerify,
		UserAgent:          app.cfg.Scrape.UserAgent,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("create pdf cache: %w", err)
	}

	server := web.NewServer(web.Config{
		Engine:       eng,
		Scraper:      scraper,
		PDFs:         pdfs,
		SnapshotPath: app.cfg.Storage.SnapshotPath(),
		MaxLimit:     app.cfg.Search.MaxLimit,
		Logger:       app.logger,
	})

	// Periodic rescrape keeps the index current without manual refreshes.
	if interval := app.cfg.Scrape.Interval.Std(); interval > 0 {
		scheduler := gocron.NewScheduler(time.UTC)
		_, err := scheduler.Every(interval).Do(func() {
			stats, err := refresh(app, scraper, eng)
			if err != nil {
				app.logger.Error("scheduled refresh failed", "error", err)
				return
			}
			app.logger.Info("scheduled refresh complete",
				"inserted", stats.Inserted, "skipped", stats.Skipped)
		})
		if err != nil {
			return fmt.Errorf("schedule rescrape: %w", err)
		}
		scheduler.StartAsync()
		defer scheduler.Stop()
	}

	httpServer := &http.Server{
		Addr:         app.cfg.Server.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  app.cfg.Server.ReadTimeout.Std(),
		WriteTimeout: app.cfg.Server.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server listening", "addr", app.cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-app.ctx.Done():
	}

	app.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

type scrapeCmd struct{}

func (s *scrapeCmd) Run(app *appContext) error {
	eng, db, err := openEngine(app, nil)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	scraper, err := newScraper(app)
	if err != nil {
		return fmt.Errorf("create scraper: %w", err)
	}

	stats, err := refresh(app, scraper, eng)
	if err != nil {
		return err
	}

	fmt.Printf("Inserted: %d\n", stats.Inserted)
	fmt.Printf("Skipped:  %d\n", stats.Skipped)
	fmt.Printf("Duration: %v\n", stats.Duration.Round(time.Millisecond))
	return nil
}

type searchCmd struct {
	Query    []string `arg:"" optional:"" help:"Search terms."`
	Type     string   `help:"Filter by content type (pdf or link)."`
	Section  string   `help:"Filter by section name."`
	Year     int      `help:"Filter by year."`
	Semester string   `help:"Filter by semester (I-VI)."`
	Subject  string   `help:"Filter by subject (substring match)."`
	Limit    int      `default:"10" help:"Maximum number of results."`
}

func (s *searchCmd) Run(app *appContext) error {
	eng, db, err := openEngine(app, nil)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	results, err := eng.Search(search.FilterSet{
		Query:       strings.Join(s.Query, " "),
		ContentType: s.Type,
		Section:     s.Section,
		Year:        s.Year,
		Semester:    s.Semester,
		Subject:     s.Subject,
		Limit:       s.Limit,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, rec := range results {
		fmt.Printf("%d. %s\n", i+1, rec.Title)
		fmt.Printf("   Section: %s  Type: %s\n", rec.Section, rec.ContentType)
		if rec.Year != 0 {
			fmt.Printf("   Year: %d\n", rec.Year)
		}
		fmt.Printf("   URL: %s\n\n", rec.URL)
	}
	return nil
}

type filtersCmd struct{}

func (f *filtersCmd) Run(app *appContext) error {
	eng, db, err := openEngine(app, nil)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	filters := eng.Filters()
	fmt.Printf("Sections:      %v\n", filters.Sections)
	fmt.Printf("Years:         %v\n", filters.Years)
	fmt.Printf("Semesters:     %v\n", filters.Semesters)
	fmt.Printf("Subjects:      %v\n", filters.Subjects)
	fmt.Printf("Content types: %v\n", filters.ContentTypes)
	return nil
}

type statsCmd struct{}

func (s *statsCmd) Run(app *appContext) error {
	eng, db, err := openEngine(app, nil)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	stats := eng.Stats()
	fmt.Printf("Documents in store: %d\n", stats.StoreCount)
	fmt.Printf("Documents in index: %d\n", stats.IndexCount)
	if !stats.LastIngest.IsZero() {
		fmt.Printf("Last ingest:        %v\n", stats.LastIngest)
	}
	return nil
}
