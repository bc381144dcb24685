package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homepageHTML = `<html><body>
<marquee><a href="/results">Results declared for Semester II</a></marquee>
<ul>
<li class="new"><a href="/admissions">Admissions open for session 2025-26</a></li>
<li><a href="/x">tiny</a></li>
<li>No anchor here but plenty of text</li>
</ul>
</body></html>`

const sectionHTML = `<html><body>
<a href="/files/form.pdf">Exam Form 2024</a>
<a href="/files/blank.pdf"></a>
<a href="/portal">Examination Portal</a>
<a href="https://other.example.com/page">External resource link</a>
<a href="/s">tiny</a>
</body></html>`

func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(homepageHTML))
	})
	mux.HandleFunc("/notices", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sectionHTML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeClassifiesContent(t *testing.T) {
	srv := testSite(t)

	s, err := New(Config{
		BaseURL: srv.URL,
		Sections: map[string]string{
			"Exam Notices": "notices",
			"Departments":  "missing",
		},
	}, nil)
	require.NoError(t, err)

	snap, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.ScrapedAt.IsZero())

	require.Len(t, snap.LatestUpdates, 2)
	assert.Equal(t, "Results declared for Semester II", snap.LatestUpdates[0].Text)
	assert.Equal(t, srv.URL+"/results", snap.LatestUpdates[0].Link)
	assert.False(t, snap.LatestUpdates[0].IsNew)
	assert.Equal(t, "Admissions open for session 2025-26", snap.LatestUpdates[1].Text)
	assert.True(t, snap.LatestUpdates[1].IsNew)

	notices := snap.Sections["Exam Notices"]
	require.NotNil(t, notices)
	assert.False(t, notices.Error)
	require.Len(t, notices.PDFs, 2)
	assert.Equal(t, Item{Title: "Exam Form 2024", URL: srv.URL + "/files/form.pdf"}, notices.PDFs[0])
	assert.Equal(t, "Download PDF", notices.PDFs[1].Title)
	require.Len(t, notices.Links, 1)
	assert.Equal(t, "Examination Portal", notices.Links[0].Title)
}

func TestScrapeFlagsUnreachableSection(t *testing.T) {
	srv := testSite(t)

	s, err := New(Config{
		BaseURL:  srv.URL,
		Sections: map[string]string{"Departments": "missing"},
	}, nil)
	require.NoError(t, err)

	snap, err := s.Scrape(context.Background())
	require.NoError(t, err)

	dept := snap.Sections["Departments"]
	require.NotNil(t, dept)
	assert.True(t, dept.Error)
	assert.Empty(t, dept.PDFs)
	assert.Empty(t, dept.Links)
}

func TestFullURLResolution(t *testing.T) {
	s, err := New(Config{BaseURL: "https://college.example.edu/"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://college.example.edu/notices", s.fullURL("notices"))
	assert.Equal(t, "https://other.example.com/x", s.fullURL("https://other.example.com/x"))
	assert.Equal(t, "https://college.example.edu/", s.fullURL(""))
}
