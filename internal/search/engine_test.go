package search_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studenthub/campus-search/internal/scrape"
	"github.com/studenthub/campus-search/internal/search"
	"github.com/studenthub/campus-search/internal/storage"
)

func newTestEngine(t *testing.T) (*search.Engine, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	eng := search.New(db, nil, nil)
	t.Cleanup(func() {
		eng.Close()
		db.Close()
	})
	return eng, db
}

func testSnapshot() *scrape.Snapshot {
	return &scrape.Snapshot{
		ScrapedAt: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		Sections: map[string]*scrape.SectionContent{
			"Exam Notices": {
				PDFs: []scrape.Item{
					{Title: "Exam Form 2024", URL: "https://example.edu/exam-form-2024.pdf"},
					{Title: "Academic Calendar 2024-25", URL: "https://example.edu/calendar.pdf"},
					{Title: "Exam Schedule 2023", URL: "https://example.edu/schedule-2023.pdf"},
				},
				Links: []scrape.Item{
					{Title: "Examination Portal", URL: "https://example.edu/portal"},
				},
			},
			"Syllabus (UG)": {
				PDFs: []scrape.Item{
					{Title: "Physics Syllabus Semester II", URL: "https://example.edu/phy.pdf"},
					{Title: "P.G. Chemistry Semester III", URL: "https://example.edu/chem.pdf"},
				},
			},
			"Departments": {
				// Errored section: zero items, must not fail ingestion.
				Error: true,
			},
		},
		LatestUpdates: []scrape.Update{
			{Text: "October 2024 Newsletter released", Link: "https://example.edu/news"},
			{Text: "Admissions open", Link: ""}, // missing link, skipped
		},
	}
}

func ingestTestSnapshot(t *testing.T, eng *search.Engine) *search.IngestStats {
	t.Helper()
	stats, err := eng.Ingest(context.Background(), testSnapshot())
	require.NoError(t, err)
	return stats
}

func TestIngestCountsInsertedAndSkipped(t *testing.T) {
	t.Parallel()

	eng, db := newTestEngine(t)
	stats := ingestTestSnapshot(t, eng)

	// 6 section items + 1 valid update; 1 update skipped for a missing link.
	assert.Equal(t, 7, stats.Inserted)
	assert.Equal(t, 1, stats.Skipped)

	count, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Equal(t, 7, eng.Stats().StoreCount)
	assert.Equal(t, 7, eng.Stats().IndexCount)
}

func TestIngestIsIdempotent(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	firstResults, err := eng.Search(search.FilterSet{Query: "exam"})
	require.NoError(t, err)
	firstFilters := eng.Filters()

	ingestTestSnapshot(t, eng)

	secondResults, err := eng.Search(search.FilterSet{Query: "exam"})
	require.NoError(t, err)

	require.Len(t, secondResults, len(firstResults))
	for i := range firstResults {
		assert.Equal(t, firstResults[i].Title, secondResults[i].Title)
	}
	assert.Equal(t, firstFilters, eng.Filters())
}

func TestSearchTextQueryMatchesToken(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	results, err := eng.Search(search.FilterSet{Query: "exam"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, rec := range results {
		assert.Contains(t, rec.SearchText, "exam", "title=%s", rec.Title)
	}
	// Token matching, not substring: "Examination Portal" has the token
	// "examination", not "exam".
	for _, rec := range results {
		assert.NotEqual(t, "Examination Portal", rec.Title)
	}
}

func TestSearchCombinedFiltersAndOrdering(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	results, err := eng.Search(search.FilterSet{Year: 2024, ContentType: storage.TypePDF})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, rec := range results {
		assert.Equal(t, 2024, rec.Year)
		assert.Equal(t, storage.TypePDF, rec.ContentType)
	}
	assert.Greater(t, results[0].ID, results[1].ID, "ordered by id descending")
}

func TestSearchOrdersYearDescendingUnsetLast(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	results, err := eng.Search(search.FilterSet{})
	require.NoError(t, err)
	require.Len(t, results, 7)

	var years []int
	for _, rec := range results {
		years = append(years, rec.Year)
	}
	// 2024 records first, then 2023, then records without a year.
	assert.Equal(t, []int{2024, 2024, 2024, 2023, 0, 0, 0}, years)
}

func TestSearchSubjectSubstringCaseInsensitive(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	results, err := eng.Search(search.FilterSet{Subject: "chem"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Chemistry", results[0].Subject)
}

func TestSearchUnknownFilterValuesMatchNothing(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	for _, f := range []search.FilterSet{
		{Section: "No Such Section"},
		{Year: -1},
		{Semester: "IX"},
	} {
		results, err := eng.Search(f)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}

func TestSearchReservedCharsOnlyQueryMatchesEverything(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	// Stripping reserved characters leaves zero terms; the text filter is
	// then absent, subject to the remaining filters.
	results, err := eng.Search(search.FilterSet{Query: `"()*`, ContentType: storage.TypeLink})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchLimit(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	results, err := eng.Search(search.FilterSet{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestFiltersEnumeration(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	f := eng.Filters()
	assert.Equal(t, []string{"Exam Notices", "Latest_Updates", "Syllabus (UG)"}, f.Sections)
	assert.Equal(t, []int{2024, 2023}, f.Years, "years sorted descending")
	assert.Equal(t, []string{"II", "III"}, f.Semesters)
	assert.Equal(t, []string{"Chemistry", "Physics"}, f.Subjects)
	assert.Equal(t, []string{storage.TypePDF, storage.TypeLink}, f.ContentTypes)
}

func TestFiltersOnEmptyEngine(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)

	f := eng.Filters()
	assert.Empty(t, f.Sections)
	assert.Empty(t, f.Years)
	assert.Empty(t, f.Semesters)
	assert.Empty(t, f.Subjects)
	assert.Equal(t, []string{storage.TypePDF, storage.TypeLink}, f.ContentTypes)

	results, err := eng.Search(search.FilterSet{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchDuringReingestNeverErrors(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	// Each ingest swaps in a new generation and closes the old index.
	// Searches racing those swaps must keep returning results, never an
	// index error.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if _, err := eng.Ingest(context.Background(), testSnapshot()); err != nil {
				t.Errorf("ingest %d: %v", i, err)
				return
			}
		}
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		results, err := eng.Search(search.FilterSet{Query: "exam"})
		require.NoError(t, err)
		assert.NotEmpty(t, results)
	}
}

func TestFailedIngestKeepsPriorGeneration(t *testing.T) {
	t.Parallel()

	eng, db := newTestEngine(t)
	ingestTestSnapshot(t, eng)

	// Closing the store makes the replace transaction fail mid-ingest.
	require.NoError(t, db.Close())

	_, err := eng.Ingest(context.Background(), testSnapshot())
	require.Error(t, err)

	// The prior generation stays fully visible to readers.
	results, searchErr := eng.Search(search.FilterSet{})
	require.NoError(t, searchErr)
	assert.Len(t, results, 7)
}

func TestLoadFromStoreRebuildsGeneration(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "content.db")

	db, err := storage.Open(path)
	require.NoError(t, err)
	eng := search.New(db, nil, nil)
	ingestTestSnapshot(t, eng)
	eng.Close()
	require.NoError(t, db.Close())

	// Reopen as a fresh process would.
	db2, err := storage.Open(path)
	require.NoError(t, err)
	defer db2.Close()
	eng2 := search.New(db2, nil, nil)
	defer eng2.Close()
	require.NoError(t, eng2.LoadFromStore(context.Background()))

	results, err := eng2.Search(search.FilterSet{Query: "physics"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Physics Syllabus Semester II", results[0].Title)
}
