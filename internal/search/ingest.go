package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/studenthub/campus-search/internal/extract"
	"github.com/studenthub/campus-search/internal/scrape"
	"github.com/studenthub/campus-search/internal/storage"
)

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"-"`
}

// Ingest rebuilds the store and index from a snapshot. The new generation is
// assembled entirely off to the side; the store transaction is the only
// fallible commit, and the in-memory swap happens after it succeeds. Any
// failure leaves the prior generation fully authoritative.
//
// Items missing a title/text or url/link are skipped individually and
// counted; one bad item never aborts the run.
func (e *Engine) Ingest(ctx context.Context, snap *scrape.Snapshot) (*IngestStats, error) {
	start := time.Now()
	stats := &IngestStats{}

	records := buildRecords(snap, stats)

	gen, err := newGeneration(records)
	if err != nil {
		e.observeIngest(stats, start, err)
		return nil, fmt.Errorf("build generation: %w", err)
	}

	if err := e.db.ReplaceAll(ctx, records); err != nil {
		gen.close()
		e.observeIngest(stats, start, err)
		return nil, fmt.Errorf("replace store: %w", err)
	}

	e.mu.Lock()
	old := e.gen
	e.gen = gen
	e.lastIngest = time.Now().UTC()
	e.mu.Unlock()
	if old != nil {
		old.close()
	}

	stats.Inserted = len(records)
	stats.Duration = time.Since(start)
	e.observeIngest(stats, start, nil)
	e.logger.Info("ingest complete",
		"inserted", stats.Inserted,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
	)
	return stats, nil
}

// LoadFromStore rebuilds the generation from the durable store, serving the
// last persisted snapshot across restarts. Call before accepting queries.
func (e *Engine) LoadFromStore(ctx context.Context) error {
	records, err := e.db.All(ctx)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}

	gen, err := newGeneration(records)
	if err != nil {
		return fmt.Errorf("build generation: %w", err)
	}

	e.mu.Lock()
	old := e.gen
	e.gen = gen
	e.mu.Unlock()
	if old != nil {
		old.close()
	}

	if e.metrics != nil {
		e.metrics.DocumentsIndexed.Set(float64(len(records)))
	}
	e.logger.Info("store loaded", "records", len(records))
	return nil
}

// buildRecords flattens a snapshot into content records, running extraction
// per item. Homepage updates come first, then sections in name order so
// identical snapshots always produce the same record sequence.
func buildRecords(snap *scrape.Snapshot, stats *IngestStats) []*storage.ContentRecord {
	var records []*storage.ContentRecord

	add := func(title, url, contentType, section string) {
		if title == "" || url == "" {
			stats.Skipped++
			return
		}
		md := extract.Extract(title, section)
		records = append(records, &storage.ContentRecord{
			Title:       title,
			URL:         url,
			ContentType: contentType,
			Section:     section,
			ScrapedAt:   snap.ScrapedAt,
			Year:        md.Year,
			Semester:    md.Semester,
			Subject:     md.Subject,
			Month:       md.Month,
			CourseLevel: md.CourseLevel,
			SearchText:  md.SearchText,
		})
	}

	for _, u := range snap.LatestUpdates {
		add(u.Text, u.Link, storage.TypeLink, storage.SectionLatestUpdates)
	}

	names := make([]string, 0, len(snap.Sections))
	for name := range snap.Sections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		section := snap.Sections[name]
		if section == nil {
			continue
		}
		for _, item := range section.PDFs {
			add(item.Title, item.URL, storage.TypePDF, name)
		}
		for _, item := range section.Links {
			add(item.Title, item.URL, storage.TypeLink, name)
		}
	}

	return records
}

func (e *Engine) observeIngest(stats *IngestStats, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.IngestsTotal.WithLabelValues("error").Inc()
		return
	}
	e.metrics.IngestsTotal.WithLabelValues("ok").Inc()
	e.metrics.DocumentsIndexed.Set(float64(stats.Inserted))
	e.metrics.ItemsSkipped.Add(float64(stats.Skipped))
}
