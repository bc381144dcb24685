// Package config loads application configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Search  SearchConfig  `yaml:"search"`
	Logging LoggingConfig `yaml:"logging"`
}

// Duration wraps time.Duration so YAML values can use human-readable
// forms like "15s" or "6h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// StorageConfig holds data directory settings.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"`
}

// DBPath is the SQLite content database location.
func (s StorageConfig) DBPath() string {
	return filepath.Join(s.DataDir, "content.db")
}

// SnapshotPath is the cached scrape snapshot location.
func (s StorageConfig) SnapshotPath() string {
	return filepath.Join(s.DataDir, "snapshot.json")
}

// PDFCacheDir is where downloaded PDFs are cached.
func (s StorageConfig) PDFCacheDir() string {
	return filepath.Join(s.DataDir, "pdf_cache")
}

// ScrapeConfig holds scraper and rescrape-scheduling settings.
type ScrapeConfig struct {
	BaseURL            string            `yaml:"baseURL"`
	Sections           map[string]string `yaml:"sections"`
	Timeout            Duration          `yaml:"timeout"`
	Interval           Duration          `yaml:"interval"`
	InsecureSkipVerify bool              `yaml:"insecureSkipVerify"`
	UserAgent          string            `yaml:"userAgent"`
}

// SearchConfig holds query engine defaults.
type SearchConfig struct {
	MaxLimit int `yaml:"maxLimit"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present. The
// section map mirrors the college site's portal pages.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "localhost:8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Storage: StorageConfig{DataDir: "./data"},
		Scrape: ScrapeConfig{
			BaseURL: "https://www.subodhpgcollege.com/",
			Sections: map[string]string{
				"Exam Notices":  "subodhexaminationportal",
				"Syllabus (UG)": "Syllabus_UG_Courses",
				"News & Events": "event_news",
				"Departments":   "departments",
			},
			Timeout:            Duration(15 * time.Second),
			InsecureSkipVerify: true,
		},
		Search:  SearchConfig{MaxLimit: 100},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path, falling back to defaults for a missing
// file, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Scrape.BaseURL == "" {
		return cfg, fmt.Errorf("scrape.baseURL must be set")
	}
	if cfg.Search.MaxLimit <= 0 {
		cfg.Search.MaxLimit = 100
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CAMPUS_SEARCH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CAMPUS_SEARCH_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CAMPUS_SEARCH_BASE_URL"); v != "" {
		cfg.Scrape.BaseURL = v
	}
	if v := os.Getenv("CAMPUS_SEARCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CAMPUS_SEARCH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CAMPUS_SEARCH_SCRAPE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scrape.Interval = Duration(d)
		}
	}
}
