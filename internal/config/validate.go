package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var transcribeModelSizes = map[string]struct{}{
	"tiny":  {},
	"base":  {},
	"small": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAcquire(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateTranscribe(); err != nil {
		return err
	}
	if err := c.validateConvertAPI(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"acquire.overall_timeout_seconds": c.Acquire.OverallTimeoutSeconds,
		"acquire.attempt_timeout_seconds": c.Acquire.AttemptTimeoutSeconds,
		"transcribe.timeout_seconds":      c.Transcribe.TimeoutSeconds,
		"summarize.timeout_seconds":       c.Summarize.TimeoutSeconds,
	})
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateAcquire() error {
	if len(c.Acquire.Profiles) == 0 {
		return errors.New("acquire.profiles must include at least one client profile")
	}
	if len(c.Acquire.UserAgents) == 0 {
		return errors.New("acquire.user_agents must include at least one user agent")
	}
	if c.Acquire.AttemptConcurrency < 1 || c.Acquire.AttemptConcurrency > 3 {
		return errors.New("acquire.attempt_concurrency must be between 1 and 3")
	}
	if c.Acquire.OverallTimeoutSeconds <= c.Acquire.AttemptTimeoutSeconds {
		return errors.New("acquire.overall_timeout_seconds must be greater than acquire.attempt_timeout_seconds")
	}
	if c.Acquire.ProxyURL != "" {
		parsed, err := url.Parse(c.Acquire.ProxyURL)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("acquire.proxy_url %q is not a valid URL", c.Acquire.ProxyURL)
		}
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if len(c.Subtitles.Languages) == 0 && !c.Subtitles.AllowAnyLanguage {
		return errors.New("subtitles.languages must include at least one language unless subtitles.allow_any_language is true")
	}
	return nil
}

func (c *Config) validateTranscribe() error {
	if _, ok := transcribeModelSizes[c.Transcribe.ModelSize]; !ok {
		return fmt.Errorf("transcribe.model_size %q is not recognized (use tiny, base, or small)", c.Transcribe.ModelSize)
	}
	if strings.TrimSpace(c.Transcribe.Binary) == "" {
		return errors.New("transcribe.binary must be set")
	}
	return nil
}

func (c *Config) validateConvertAPI() error {
	if c.ConvertAPI.APIKey == "" {
		return nil
	}
	if c.ConvertAPI.BaseURL == "" {
		return errors.New("convert_api.base_url must be set when convert_api.api_key is set")
	}
	parsed, err := url.Parse(c.ConvertAPI.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("convert_api.base_url %q must be an http(s) URL", c.ConvertAPI.BaseURL)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
