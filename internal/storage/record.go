package storage

import "time"

// Content types for a record. These two values are the complete enumeration.
const (
	TypePDF  = "pdf"
	TypeLink = "link"
)

// SectionLatestUpdates is the distinguished section for homepage items.
const SectionLatestUpdates = "Latest_Updates"

// ContentRecord is one searchable item from a scrape snapshot. ID is assigned
// at insert and keeps increasing across generations, so a higher ID always
// means a more recently ingested record.
type ContentRecord struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Section     string    `json:"section"`
	ScrapedAt   time.Time `json:"scraped_at"`

	// Extracted metadata; zero values mean the pattern didn't match.
	Year        int    `json:"year,omitempty"`
	Semester    string `json:"semester,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Month       string `json:"month,omitempty"`
	CourseLevel string `json:"course_level,omitempty"`

	// SearchText is derived from the fields above at insert time.
	SearchText string `json:"-"`
}
