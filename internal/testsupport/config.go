package testsupport

import (
	"path/filepath"
	"testing"

	"recap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "media")
	cfg.Paths.OutputDir = filepath.Join(base, "recaps")
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "error"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithAPIKey sets the conversion service credentials on the test config.
func WithAPIKey(key, baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.ConvertAPI.APIKey = key
		cfg.ConvertAPI.BaseURL = baseURL
	}
}

// WithModelSize overrides the transcription model variant.
func WithModelSize(size string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Transcribe.ModelSize = size
	}
}
