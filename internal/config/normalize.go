package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAcquire(); err != nil {
		return err
	}
	c.normalizeSubtitles()
	c.normalizeTranscribe()
	c.normalizeConvertAPI()
	c.normalizeSummarize()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAcquire() error {
	if c.Acquire.OverallTimeoutSeconds <= 0 {
		c.Acquire.OverallTimeoutSeconds = defaultOverallTimeoutSeconds
	}
	if c.Acquire.AttemptTimeoutSeconds <= 0 {
		c.Acquire.AttemptTimeoutSeconds = defaultAttemptTimeoutSeconds
	}
	if c.Acquire.AttemptConcurrency <= 0 {
		c.Acquire.AttemptConcurrency = defaultAttemptConcurrency
	}

	c.Acquire.Profiles = dedupeStrings(c.Acquire.Profiles, true)
	if len(c.Acquire.Profiles) == 0 {
		c.Acquire.Profiles = DefaultProfiles()
	}
	c.Acquire.UserAgents = dedupeStrings(c.Acquire.UserAgents, false)
	if len(c.Acquire.UserAgents) == 0 {
		c.Acquire.UserAgents = DefaultUserAgents()
	}

	c.Acquire.CookiesFile = strings.TrimSpace(c.Acquire.CookiesFile)
	if c.Acquire.CookiesFile != "" {
		expanded, err := expandPath(c.Acquire.CookiesFile)
		if err != nil {
			return fmt.Errorf("acquire.cookies_file: %w", err)
		}
		c.Acquire.CookiesFile = expanded
	}
	c.Acquire.ProxyURL = strings.TrimSpace(c.Acquire.ProxyURL)
	return nil
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.Languages = dedupeStrings(c.Subtitles.Languages, true)
	if len(c.Subtitles.Languages) == 0 {
		c.Subtitles.Languages = DefaultSubtitleLanguages()
	}
}

func (c *Config) normalizeTranscribe() {
	c.Transcribe.ModelSize = strings.ToLower(strings.TrimSpace(c.Transcribe.ModelSize))
	if c.Transcribe.ModelSize == "" {
		c.Transcribe.ModelSize = defaultTranscribeModelSize
	}
	c.Transcribe.Binary = strings.TrimSpace(c.Transcribe.Binary)
	if c.Transcribe.Binary == "" {
		c.Transcribe.Binary = defaultTranscribeBinary
	}
	if c.Transcribe.TimeoutSeconds <= 0 {
		c.Transcribe.TimeoutSeconds = defaultTranscribeTimeoutSeconds
	}
}

func (c *Config) normalizeConvertAPI() {
	c.ConvertAPI.APIKey = strings.TrimSpace(c.ConvertAPI.APIKey)
	if c.ConvertAPI.APIKey == "" {
		if value, ok := os.LookupEnv("RECAP_CONVERT_API_KEY"); ok {
			c.ConvertAPI.APIKey = strings.TrimSpace(value)
		}
	}
	c.ConvertAPI.BaseURL = strings.TrimRight(strings.TrimSpace(c.ConvertAPI.BaseURL), "/")
}

func (c *Config) normalizeSummarize() {
	c.Summarize.Binary = strings.TrimSpace(c.Summarize.Binary)
	if c.Summarize.Binary == "" {
		c.Summarize.Binary = defaultSummarizeBinary
	}
	if c.Summarize.TimeoutSeconds <= 0 {
		c.Summarize.TimeoutSeconds = defaultSummarizeTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "auto":
		c.Logging.Format = "auto"
	case "console", "json":
	default:
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// dedupeStrings trims entries, drops blanks, and removes duplicates
// while preserving order. When fold is true entries are lowercased
// before comparison and in the result.
func dedupeStrings(values []string, fold bool) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if fold {
			normalized = strings.ToLower(normalized)
		}
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
