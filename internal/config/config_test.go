package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studenthub/campus-search/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.NotEmpty(t, cfg.Scrape.Sections)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
scrape:
  baseURL: "https://campus.example.edu/"
  interval: 6h
  sections:
    Notices: notices
logging:
  level: debug
  format: json
`), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "https://campus.example.edu/", cfg.Scrape.BaseURL)
	assert.Equal(t, 6*time.Hour, cfg.Scrape.Interval.Std())
	assert.Equal(t, map[string]string{"Notices": "notices"}, cfg.Scrape.Sections)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("CAMPUS_SEARCH_ADDR", ":7777")
	t.Setenv("CAMPUS_SEARCH_DATA_DIR", "/tmp/campus-data")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "/tmp/campus-data", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("/tmp/campus-data", "content.db"), cfg.Storage.DBPath())
}
