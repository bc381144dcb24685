package scrape

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	snap := &Snapshot{
		ScrapedAt: time.Date(2024, 10, 5, 12, 30, 0, 0, time.UTC),
		Sections: map[string]*SectionContent{
			"Exam Notices": {
				PDFs:  []Item{{Title: "Exam Form 2024", URL: "https://example.edu/form.pdf"}},
				Links: []Item{{Title: "Examination Portal", URL: "https://example.edu/portal"}},
			},
			"Departments": {PDFs: []Item{}, Links: []Item{}, Error: true},
		},
		LatestUpdates: []Update{
			{Text: "Results declared", Link: "https://example.edu/results", IsNew: true},
		},
	}

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, snap.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)

	// The temp file must not survive a successful save.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
