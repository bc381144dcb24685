// Package scrape produces content snapshots from the college website. It is
// a thin collaborator around colly/goquery: the search engine consumes its
// snapshots but never depends on how pages are fetched or parsed.
package scrape

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Item is one scraped document reference within a section.
type Item struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Update is one homepage news item.
type Update struct {
	Text  string `json:"text"`
	Link  string `json:"link"`
	IsNew bool   `json:"is_new"`
}

// SectionContent holds everything scraped from one section page. An
// unreachable page sets Error and leaves both lists empty; it never fails
// the snapshot as a whole.
type SectionContent struct {
	PDFs  []Item `json:"pdfs"`
	Links []Item `json:"links"`
	Error bool   `json:"error"`
}

// Snapshot is one complete scrape result at a point in time.
type Snapshot struct {
	ScrapedAt     time.Time                  `json:"scraped_at"`
	Sections      map[string]*SectionContent `json:"sections"`
	LatestUpdates []Update                   `json:"latest_updates"`
}

// SaveFile writes the snapshot as indented JSON so scrape runs and the
// server can share the same cached data.
func (s *Snapshot) SaveFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadFile reads a previously saved snapshot. A missing file returns
// os.ErrNotExist so callers can fall back to a fresh scrape.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}
