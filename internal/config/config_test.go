package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"recap/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "recap", "media")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "recaps") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if !cfg.Acquire.PreferSubtitles {
		t.Fatal("expected prefer_subtitles enabled by default")
	}
	if len(cfg.Acquire.Profiles) != 5 || cfg.Acquire.Profiles[0] != "android" {
		t.Fatalf("unexpected default profiles: %v", cfg.Acquire.Profiles)
	}
	if len(cfg.Acquire.UserAgents) != 2 {
		t.Fatalf("unexpected default user agents: %v", cfg.Acquire.UserAgents)
	}
	if cfg.Acquire.AttemptConcurrency != 1 {
		t.Fatalf("unexpected attempt concurrency: %d", cfg.Acquire.AttemptConcurrency)
	}
	if cfg.Subtitles.AllowAnyLanguage {
		t.Fatal("expected allow_any_language disabled by default")
	}
	if cfg.Subtitles.Languages[0] != "en" {
		t.Fatalf("unexpected default languages: %v", cfg.Subtitles.Languages)
	}
	if cfg.Transcribe.ModelSize != "tiny" {
		t.Fatalf("unexpected transcribe model size: %q", cfg.Transcribe.ModelSize)
	}
	if cfg.ConvertAPI.APIKey != "" {
		t.Fatalf("expected conversion API key empty by default, got %q", cfg.ConvertAPI.APIKey)
	}
	if cfg.Summarize.Binary != "qwen" {
		t.Fatalf("unexpected summarize binary: %q", cfg.Summarize.Binary)
	}
	if cfg.Logging.Format != "auto" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %q %q", cfg.Logging.Format, cfg.Logging.Level)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	info, err := os.Stat(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("expected work dir %q to exist: %v", cfg.Paths.WorkDir, err)
	}
	if !info.IsDir() {
		t.Fatalf("expected %q to be directory", cfg.Paths.WorkDir)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "recap.toml")

	type payload struct {
		Acquire struct {
			OverallTimeoutSeconds int      `toml:"overall_timeout_seconds"`
			AttemptTimeoutSeconds int      `toml:"attempt_timeout_seconds"`
			AttemptConcurrency    int      `toml:"attempt_concurrency"`
			Profiles              []string `toml:"profiles"`
		} `toml:"acquire"`
		Subtitles struct {
			Languages []string `toml:"languages"`
		} `toml:"subtitles"`
		Transcribe struct {
			ModelSize string `toml:"model_size"`
		} `toml:"transcribe"`
		ConvertAPI struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"convert_api"`
	}
	custom := payload{}
	custom.Acquire.OverallTimeoutSeconds = 300
	custom.Acquire.AttemptTimeoutSeconds = 45
	custom.Acquire.AttemptConcurrency = 2
	custom.Acquire.Profiles = []string{"ios", "IOS", " web "}
	custom.Subtitles.Languages = []string{"DE", "de", "en-US"}
	custom.Transcribe.ModelSize = "Base"
	custom.ConvertAPI.APIKey = "abc123"
	custom.ConvertAPI.BaseURL = "https://convert.example.com/api/"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Acquire.OverallTimeoutSeconds != 300 || cfg.Acquire.AttemptTimeoutSeconds != 45 {
		t.Fatalf("expected timeout overrides, got %d/%d", cfg.Acquire.OverallTimeoutSeconds, cfg.Acquire.AttemptTimeoutSeconds)
	}
	if cfg.Acquire.AttemptConcurrency != 2 {
		t.Fatalf("expected attempt concurrency 2, got %d", cfg.Acquire.AttemptConcurrency)
	}
	wantProfiles := []string{"ios", "web"}
	if len(cfg.Acquire.Profiles) != len(wantProfiles) {
		t.Fatalf("expected deduped profiles %v, got %v", wantProfiles, cfg.Acquire.Profiles)
	}
	for i, profile := range wantProfiles {
		if cfg.Acquire.Profiles[i] != profile {
			t.Fatalf("expected deduped profiles %v, got %v", wantProfiles, cfg.Acquire.Profiles)
		}
	}
	if len(cfg.Subtitles.Languages) != 2 || cfg.Subtitles.Languages[0] != "de" {
		t.Fatalf("expected normalized languages [de en-us], got %v", cfg.Subtitles.Languages)
	}
	if cfg.Transcribe.ModelSize != "base" {
		t.Fatalf("expected lowered model size, got %q", cfg.Transcribe.ModelSize)
	}
	if cfg.ConvertAPI.BaseURL != "https://convert.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.ConvertAPI.BaseURL)
	}
}

func TestConvertAPIKeyEnvFallback(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "recap.toml")
	body := "[convert_api]\nbase_url = \"https://convert.example.com\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("RECAP_CONVERT_API_KEY", "env-key")
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ConvertAPI.APIKey != "env-key" {
		t.Fatalf("expected conversion key from env, got %q", cfg.ConvertAPI.APIKey)
	}

	body = "[convert_api]\napi_key = \"file-key\"\nbase_url = \"https://convert.example.com\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err = config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ConvertAPI.APIKey != "file-key" {
		t.Fatalf("expected file value to win over env fallback, got %q", cfg.ConvertAPI.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "prefer_subtitles") {
		t.Fatalf("sample config missing acquire keys: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.WorkDir, "recap") {
		t.Fatalf("expected work dir to mention recap, got %q", cfg.Paths.WorkDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Acquire.OverallTimeoutSeconds = cfg.Acquire.AttemptTimeoutSeconds
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when overall timeout <= attempt timeout")
	}

	cfg = config.Default()
	cfg.Acquire.AttemptConcurrency = 4
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for attempt concurrency above cap")
	}

	cfg = config.Default()
	cfg.Acquire.Profiles = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty profile list")
	}

	cfg = config.Default()
	cfg.Acquire.ProxyURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed proxy url")
	}

	cfg = config.Default()
	cfg.Transcribe.ModelSize = "huge"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown model size")
	}

	cfg = config.Default()
	cfg.Transcribe.ModelSize = "medium"
	if err := cfg.Validate(); err == nil {
		t.Fatal("only tiny, base, and small are supported model sizes")
	}

	cfg = config.Default()
	cfg.ConvertAPI.APIKey = "key"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when conversion key set without base url")
	}

	cfg = config.Default()
	cfg.ConvertAPI.APIKey = "key"
	cfg.ConvertAPI.BaseURL = "ftp://convert.example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http conversion base url")
	}
}
