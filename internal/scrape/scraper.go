package scrape

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/sync/errgroup"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config controls what the scraper fetches.
type Config struct {
	// BaseURL is the site root; the homepage provides Latest_Updates.
	BaseURL string
	// Sections maps readable section names to URL paths.
	Sections map[string]string
	// Timeout bounds each page fetch.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS verification. The target college site
	// serves a broken certificate chain; this only ever reads public pages.
	InsecureSkipVerify bool
	UserAgent          string
}

// Scraper fetches the configured pages and assembles snapshots.
type Scraper struct {
	cfg    Config
	base   *url.URL
	logger *slog.Logger
}

// New validates the config and returns a Scraper.
func New(cfg Config, logger *slog.Logger) (*Scraper, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{cfg: cfg, base: base, logger: logger.With("component", "scraper")}, nil
}

// Scrape fetches the homepage plus every configured section concurrently and
// returns a snapshot. Unreachable sections are marked errored, not fatal.
func (s *Scraper) Scrape(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	snap := &Snapshot{
		ScrapedAt: time.Now().UTC(),
		Sections:  make(map[string]*SectionContent, len(s.cfg.Sections)),
	}

	snap.LatestUpdates = s.scrapeHomepage()

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for name, path := range s.cfg.Sections {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content := s.scrapeSection(name, path)
			mu.Lock()
			snap.Sections[name] = content
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("scrape finished",
		"sections", len(snap.Sections),
		"updates", len(snap.LatestUpdates),
		"duration", time.Since(start),
	)
	return snap, nil
}

// newCollector builds a fresh collector per page; collectors carry visit
// state that must not leak between scrapes.
func (s *Scraper) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(s.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.cfg.Timeout)
	if s.cfg.InsecureSkipVerify {
		c.WithTransport(&http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		})
	}
	return c
}

// scrapeHomepage collects marquee and list items that link somewhere and
// carry enough text to look like news, capped at the 15 most prominent.
func (s *Scraper) scrapeHomepage() []Update {
	const maxUpdates = 15

	var updates []Update
	c := s.newCollector()

	c.OnHTML("marquee, li", func(e *colly.HTMLElement) {
		if len(updates) >= maxUpdates {
			return
		}
		text := strings.TrimSpace(e.DOM.Text())
		link, ok := e.DOM.Find("a").First().Attr("href")
		if len(text) <= 10 || !ok {
			return
		}
		updates = append(updates, Update{
			Text:  text,
			Link:  e.Request.AbsoluteURL(link),
			IsNew: looksNew(e.DOM),
		})
	})

	if err := c.Visit(s.base.String()); err != nil {
		s.logger.Warn("homepage unreachable", "url", s.base.String(), "error", err)
		return nil
	}
	return updates
}

// looksNew reports whether a homepage node is flagged as fresh, via a "new"
// class or a blink tag in its markup.
func looksNew(sel *goquery.Selection) bool {
	if class, ok := sel.Attr("class"); ok && strings.Contains(class, "new") {
		return true
	}
	html, _ := sel.Html()
	return strings.Contains(html, "blink")
}

// scrapeSection classifies every anchor on a section page: .pdf hrefs become
// PDF items, other internal links with meaningful text become link items.
func (s *Scraper) scrapeSection(name, path string) *SectionContent {
	content := &SectionContent{PDFs: []Item{}, Links: []Item{}}
	pageURL := s.fullURL(path)
	c := s.newCollector()

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		text := strings.TrimSpace(e.Text)
		switch {
		case strings.Contains(strings.ToLower(href), ".pdf"):
			title := text
			if title == "" {
				title = "Download PDF"
			}
			content.PDFs = append(content.PDFs, Item{Title: title, URL: e.Request.AbsoluteURL(href)})
		case len(text) > 5 && !strings.Contains(href, "http"):
			content.Links = append(content.Links, Item{Title: text, URL: e.Request.AbsoluteURL(href)})
		}
	})

	if err := c.Visit(pageURL); err != nil {
		s.logger.Warn("section unreachable", "section", name, "url", pageURL, "error", err)
		content.Error = true
	}
	return content
}

// fullURL resolves a section path against the base URL.
func (s *Scraper) fullURL(path string) string {
	if path == "" {
		return s.base.String()
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return s.base.String()
	}
	return s.base.ResolveReference(ref).String()
}
