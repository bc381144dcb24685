// Package storage persists content records in SQLite. The table holds exactly
// one generation of records at a time; mutation is clear-then-bulk-insert
// inside a single transaction, never per-row updates.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a record lookup misses.
var ErrNotFound = errors.New("record not found")

// DB wraps SQLite database operations.
type DB struct {
	db *sql.DB
}

// Open opens or creates the content database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer; ingestion is the only writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &DB{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist. AUTOINCREMENT keeps ids
// monotonically increasing across generation replacements.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS content (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		content_type TEXT NOT NULL,
		section TEXT NOT NULL,
		scraped_at TIMESTAMP,
		year INTEGER,
		semester TEXT,
		subject TEXT,
		month TEXT,
		course_level TEXT,
		search_text TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_content_type ON content(content_type);
	CREATE INDEX IF NOT EXISTS idx_section ON content(section);
	CREATE INDEX IF NOT EXISTS idx_year ON content(year);
	CREATE INDEX IF NOT EXISTS idx_semester ON content(semester);
	CREATE INDEX IF NOT EXISTS idx_subject ON content(subject);
	`

	_, err := d.db.Exec(schema)
	return err
}

// ReplaceAll atomically replaces every stored record with the given ones,
// assigning fresh ids back onto the slice elements. On any failure the
// transaction rolls back and the prior generation of rows stays intact.
func (d *DB) ReplaceAll(ctx context.Context, records []*ContentRecord) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM content"); err != nil {
		return fmt.Errorf("clear content: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO content (
		title, url, content_type, section, scraped_at,
		year, semester, subject, month, course_level, search_text
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		res, err := stmt.ExecContext(ctx,
			rec.Title, rec.URL, rec.ContentType, rec.Section, rec.ScrapedAt,
			nullInt(rec.Year), nullStr(rec.Semester), nullStr(rec.Subject),
			nullStr(rec.Month), nullStr(rec.CourseLevel), rec.SearchText,
		)
		if err != nil {
			return fmt.Errorf("insert %q: %w", rec.Title, err)
		}
		rec.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, title, url, content_type, section, scraped_at,
	       year, semester, subject, month, course_level, search_text
	FROM content`

// Get retrieves a record by id.
func (d *DB) Get(ctx context.Context, id int64) (*ContentRecord, error) {
	row := d.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// All retrieves the full current generation ordered by id.
func (d *DB) All(ctx context.Context) ([]*ContentRecord, error) {
	rows, err := d.db.QueryContext(ctx, selectColumns+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*ContentRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Count returns the number of stored records.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM content").Scan(&count)
	return count, err
}

func scanRecord(scan func(...any) error) (*ContentRecord, error) {
	rec := &ContentRecord{}
	var (
		year                                sql.NullInt64
		semester, subject, month, courseLvl sql.NullString
		searchText                          sql.NullString
	)
	err := scan(
		&rec.ID, &rec.Title, &rec.URL, &rec.ContentType, &rec.Section, &rec.ScrapedAt,
		&year, &semester, &subject, &month, &courseLvl, &searchText,
	)
	if err != nil {
		return nil, err
	}
	rec.Year = int(year.Int64)
	rec.Semester = semester.String
	rec.Subject = subject.String
	rec.Month = month.String
	rec.CourseLevel = courseLvl.String
	rec.SearchText = searchText.String
	return rec, nil
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}
