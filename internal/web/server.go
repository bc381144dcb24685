// Package web exposes the search engine over HTTP. Routing is gin's job;
// handlers translate query parameters into engine calls and shape the JSON
// envelope the frontend expects.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/studenthub/campus-search/internal/pdfcache"
	"github.com/studenthub/campus-search/internal/scrape"
	"github.com/studenthub/campus-search/internal/search"
)

// Scraper produces fresh snapshots for the refresh endpoint.
type Scraper interface {
	Scrape(ctx context.Context) (*scrape.Snapshot, error)
}

// Server wires the engine and its collaborators into HTTP handlers.
type Server struct {
	engine       *search.Engine
	scraper      Scraper
	pdfs         *pdfcache.Cache
	snapshotPath string
	maxLimit     int
	logger       *slog.Logger
}

// Config holds server construction parameters.
type Config struct {
	Engine       *search.Engine
	Scraper      Scraper
	PDFs         *pdfcache.Cache
	SnapshotPath string
	MaxLimit     int
	Logger       *slog.Logger
}

// NewServer creates a Server. PDFs and Scraper may be nil; the corresponding
// endpoints then report unavailability instead of panicking.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = search.DefaultLimit
	}
	return &Server{
		engine:       cfg.Engine,
		scraper:      cfg.Scraper,
		pdfs:         cfg.PDFs,
		snapshotPath: cfg.SnapshotPath,
		maxLimit:     maxLimit,
		logger:       logger.With("component", "web"),
	}
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/api/search", s.handleSearch)
	router.GET("/api/filters", s.handleFilters)
	router.POST("/api/refresh", s.handleRefresh)
	router.GET("/api/data", s.handleData)
	router.GET("/api/pdf", s.handlePDF)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (s *Server) handleSearch(c *gin.Context) {
	f := search.FilterSet{
		Query:       c.Query("q"),
		ContentType: c.Query("type"),
		Section:     c.Query("section"),
		Semester:    c.Query("semester"),
		Subject:     c.Query("subject"),
	}

	// An unparseable year is an unknown filter value: zero matches, not an
	// error response.
	if yearStr := c.Query("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			year = -1
		}
		f.Year = year
	}

	f.Limit = s.maxLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= s.maxLimit {
			f.Limit = l
		}
	}

	results, err := s.engine.Search(f)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleFilters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"filters": s.engine.Filters(),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if s.scraper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "scraper not configured"})
		return
	}

	snap, err := s.scraper.Scrape(c.Request.Context())
	if err != nil {
		s.logger.Error("scrape failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "scrape failed"})
		return
	}
	if s.snapshotPath != "" {
		if err := snap.SaveFile(s.snapshotPath); err != nil {
			s.logger.Warn("snapshot save failed", "error", err)
		}
	}

	stats, err := s.engine.Ingest(c.Request.Context(), snap)
	if err != nil {
		s.logger.Error("ingest failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "ingest failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"inserted": stats.Inserted,
		"skipped":  stats.Skipped,
	})
}

// handleData serves the cached snapshot, scraping on a cold cache so the
// first page load works before any refresh has run.
func (s *Server) handleData(c *gin.Context) {
	snap, err := scrape.LoadFile(s.snapshotPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("snapshot load failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "snapshot unavailable"})
			return
		}
		if s.scraper == nil {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "no snapshot available"})
			return
		}
		snap, err = s.scraper.Scrape(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "scrape failed"})
			return
		}
		if s.snapshotPath != "" {
			if err := snap.SaveFile(s.snapshotPath); err != nil {
				s.logger.Warn("snapshot save failed", "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": snap})
}

func (s *Server) handlePDF(c *gin.Context) {
	if s.pdfs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "pdf cache not configured"})
		return
	}
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "missing url parameter"})
		return
	}

	data, err := s.pdfs.Get(c.Request.Context(), rawURL)
	if err != nil {
		if errors.Is(err, pdfcache.ErrHostNotAllowed) {
			c.JSON(http.StatusForbidden, gin.H{"status": "error", "message": "host not allowed"})
			return
		}
		s.logger.Error("pdf fetch failed", "url", rawURL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "pdf unavailable"})
		return
	}

	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.engine.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"documents_in_db":  stats.StoreCount,
		"documents_in_idx": stats.IndexCount,
		"last_ingest":      stats.LastIngest,
	})
}
