package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
}

// Acquire contains the acquisition strategy settings: the attempt
// candidate lists, per-attempt pacing, and the network identity knobs
// passed to the downloader.
type Acquire struct {
	PreferSubtitles       bool     `toml:"prefer_subtitles"`
	OverallTimeoutSeconds int      `toml:"overall_timeout_seconds"`
	AttemptTimeoutSeconds int      `toml:"attempt_timeout_seconds"`
	AttemptConcurrency    int      `toml:"attempt_concurrency"`
	CookiesFile           string   `toml:"cookies_file"`
	ProxyURL              string   `toml:"proxy_url"`
	Profiles              []string `toml:"profiles"`
	UserAgents            []string `toml:"user_agents"`
}

// Subtitles contains caption track selection policy.
type Subtitles struct {
	Languages        []string `toml:"languages"`
	AllowAnyLanguage bool     `toml:"allow_any_language"`
}

// Transcribe contains local speech-to-text settings.
type Transcribe struct {
	ModelSize      string `toml:"model_size"`
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ConvertAPI contains the third-party conversion service credentials.
type ConvertAPI struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Summarize contains the external summarizer invocation.
type Summarize struct {
	Binary         string   `toml:"binary"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for recap.
//
// Configuration sections by subsystem:
//   - Paths: working directory for transient audio, output directory
//     for saved transcripts and summaries
//   - Acquire: strategy ordering data (client profiles, user agents),
//     timeouts, concurrency, cookies and proxy
//   - Subtitles: preferred caption languages and the any-language
//     escape hatch
//   - Transcribe: whisper model size, binary, timeout
//   - ConvertAPI: fallback conversion service key and endpoint
//   - Summarize: external summarizer binary and arguments
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Acquire    Acquire    `toml:"acquire"`
	Subtitles  Subtitles  `toml:"subtitles"`
	Transcribe Transcribe `toml:"transcribe"`
	ConvertAPI ConvertAPI `toml:"convert_api"`
	Summarize  Summarize  `toml:"summarize"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/recap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directory. The output
// directory is created on a best-effort basis so runs that never save
// artifacts do not fail on an unavailable target.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.WorkDir, err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// OverallTimeout returns the end-to-end pipeline deadline.
func (c *Config) OverallTimeout() time.Duration {
	return time.Duration(c.Acquire.OverallTimeoutSeconds) * time.Second
}

// AttemptTimeout returns the per-download-attempt deadline.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Acquire.AttemptTimeoutSeconds) * time.Second
}

// TranscribeTimeout returns the speech-to-text deadline.
func (c *Config) TranscribeTimeout() time.Duration {
	return time.Duration(c.Transcribe.TimeoutSeconds) * time.Second
}

// SummarizeTimeout returns the summarizer subprocess deadline.
func (c *Config) SummarizeTimeout() time.Duration {
	return time.Duration(c.Summarize.TimeoutSeconds) * time.Second
}

// YtdlpBinary returns the downloader executable name.
func (c *Config) YtdlpBinary() string {
	return "yt-dlp"
}

// FFmpegBinary returns the ffmpeg executable name used for audio
// normalization.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
