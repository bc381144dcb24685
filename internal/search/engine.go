// Package search implements the query engine, the full-text index, and the
// ingestion pipeline over content snapshots. One Engine serves many
// concurrent readers; ingestion builds a complete new generation off to the
// side and swaps a single pointer, so readers never observe a half-built
// store/index pair.
package search

import (
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/studenthub/campus-search/internal/metrics"
	"github.com/studenthub/campus-search/internal/storage"
)

// DefaultLimit caps result counts when the caller doesn't provide one.
const DefaultLimit = 100

// FilterSet describes one query. Zero values impose no constraint, except
// Limit which falls back to DefaultLimit.
type FilterSet struct {
	Query       string
	ContentType string
	Section     string
	Year        int
	Semester    string
	Subject     string
	Limit       int
}

// Filters enumerates the filter values present in the current generation.
// ContentTypes is the fixed enumeration, not derived from data.
type Filters struct {
	Sections     []string `json:"sections"`
	Years        []int    `json:"years"`
	Semesters    []string `json:"semesters"`
	Subjects     []string `json:"subjects"`
	ContentTypes []string `json:"content_types"`
}

// Stats reports the current generation's size and freshness.
type Stats struct {
	StoreCount int       `json:"store_count"`
	IndexCount int       `json:"index_count"`
	LastIngest time.Time `json:"last_ingest"`
}

// Engine answers filtered, ranked queries over the current generation and
// rebuilds it from snapshots. Safe for concurrent use.
type Engine struct {
	db      *storage.DB
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.RWMutex
	gen        *generation
	lastIngest time.Time
}

// New creates an Engine backed by the given store. The metrics argument may
// be nil. The engine serves empty results until Ingest or LoadFromStore runs.
func New(db *storage.DB, logger *slog.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:      db,
		logger:  logger.With("component", "search"),
		metrics: m,
	}
}

// Close releases the current generation's index.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != nil {
		e.gen.close()
		e.gen = nil
	}
}

// Search applies all supplied filters conjunctively and returns matching
// records ordered by year descending (unset year last) then id descending.
// No match yields an empty slice, never an error; unknown filter values
// simply match nothing.
func (e *Engine) Search(f FilterSet) ([]*storage.ContentRecord, error) {
	start := time.Now()

	// The read lock is held across the index query; a generation swap closes
	// the superseded index, so releasing early would let a concurrent ingest
	// close it mid-search. Writers only contend for the pointer swap itself.
	e.mu.RLock()
	defer e.mu.RUnlock()
	gen := e.gen

	results := []*storage.ContentRecord{}
	if gen == nil {
		e.observeSearch(start, results, nil)
		return results, nil
	}

	// A query that sanitizes down to nothing is treated as absent.
	terms := queryTerms(f.Query)
	var matched map[int]struct{}
	if len(terms) > 0 {
		var err error
		matched, err = gen.matchSet(terms)
		if err != nil {
			e.observeSearch(start, nil, err)
			return nil, err
		}
	}

	for pos, rec := range gen.records {
		if matched != nil {
			if _, ok := matched[pos]; !ok {
				continue
			}
		}
		if !matchesFilters(rec, f) {
			continue
		}
		results = append(results, rec)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Year != results[j].Year {
			return results[i].Year > results[j].Year
		}
		return results[i].ID > results[j].ID
	})

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}

	e.observeSearch(start, results, nil)
	return results, nil
}

func matchesFilters(rec *storage.ContentRecord, f FilterSet) bool {
	if f.ContentType != "" && rec.ContentType != f.ContentType {
		return false
	}
	if f.Section != "" && rec.Section != f.Section {
		return false
	}
	if f.Year != 0 && rec.Year != f.Year {
		return false
	}
	if f.Semester != "" && rec.Semester != f.Semester {
		return false
	}
	if f.Subject != "" {
		// Substring, not equality: "chem" finds "Chemistry".
		if !strings.Contains(strings.ToLower(rec.Subject), strings.ToLower(f.Subject)) {
			return false
		}
	}
	return true
}

// Filters enumerates the distinct filter values currently present, computed
// live against the current generation, never cached.
func (e *Engine) Filters() Filters {
	e.mu.RLock()
	gen := e.gen
	e.mu.RUnlock()

	f := Filters{
		Sections:     []string{},
		Years:        []int{},
		Semesters:    []string{},
		Subjects:     []string{},
		ContentTypes: []string{storage.TypePDF, storage.TypeLink},
	}
	if gen == nil {
		return f
	}

	sections := map[string]struct{}{}
	years := map[int]struct{}{}
	semesters := map[string]struct{}{}
	subjects := map[string]struct{}{}
	for _, rec := range gen.records {
		sections[rec.Section] = struct{}{}
		if rec.Year != 0 {
			years[rec.Year] = struct{}{}
		}
		if rec.Semester != "" {
			semesters[rec.Semester] = struct{}{}
		}
		if rec.Subject != "" {
			subjects[rec.Subject] = struct{}{}
		}
	}

	f.Sections = sortedKeys(sections)
	f.Semesters = sortedKeys(semesters)
	f.Subjects = sortedKeys(subjects)
	for y := range years {
		f.Years = append(f.Years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(f.Years)))
	return f
}

// Stats returns current store and index counts. They are always equal within
// one generation; reporting both mirrors the health endpoint contract.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Stats{LastIngest: e.lastIngest}
	if e.gen != nil {
		s.StoreCount = len(e.gen.records)
		s.IndexCount = len(e.gen.records)
	}
	return s
}

func (e *Engine) observeSearch(start time.Time, results []*storage.ContentRecord, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		e.metrics.SearchesTotal.WithLabelValues("error").Inc()
	case len(results) == 0:
		e.metrics.SearchesTotal.WithLabelValues("zero_result").Inc()
	default:
		e.metrics.SearchesTotal.WithLabelValues("hit").Inc()
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
