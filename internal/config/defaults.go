package config

const (
	defaultWorkDir   = "~/.local/share/recap/media"
	defaultOutputDir = "~/recaps"

	defaultOverallTimeoutSeconds = 900
	defaultAttemptTimeoutSeconds = 90
	defaultAttemptConcurrency    = 1

	defaultTranscribeModelSize      = "tiny"
	defaultTranscribeBinary         = "whisper"
	defaultTranscribeTimeoutSeconds = 600

	defaultSummarizeBinary         = "qwen"
	defaultSummarizeTimeoutSeconds = 120

	defaultLogFormat = "auto"
	defaultLogLevel  = "info"
)

// DefaultProfiles lists the downloader client identities in attempt
// order. Earlier entries see fewer throttles in practice, so they get
// the first shot at every video.
func DefaultProfiles() []string {
	return []string{"android", "ios", "tv_embedded", "web_safari", "web"}
}

// DefaultUserAgents lists the browser identities crossed with each
// client profile. One desktop, one mobile.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	}
}

// DefaultSubtitleLanguages lists the caption languages accepted by
// default, in preference order.
func DefaultSubtitleLanguages() []string {
	return []string{"en", "en-US", "en-GB"}
}

// DefaultSummarizeArgs returns the arguments placed before the prompt
// when invoking the summarizer binary.
func DefaultSummarizeArgs() []string {
	return []string{"--prompt"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
		},
		Acquire: Acquire{
			PreferSubtitles:       true,
			OverallTimeoutSeconds: defaultOverallTimeoutSeconds,
			AttemptTimeoutSeconds: defaultAttemptTimeoutSeconds,
			AttemptConcurrency:    defaultAttemptConcurrency,
			Profiles:              DefaultProfiles(),
			UserAgents:            DefaultUserAgents(),
		},
		Subtitles: Subtitles{
			Languages: DefaultSubtitleLanguages(),
		},
		Transcribe: Transcribe{
			ModelSize:      defaultTranscribeModelSize,
			Binary:         defaultTranscribeBinary,
			TimeoutSeconds: defaultTranscribeTimeoutSeconds,
		},
		Summarize: Summarize{
			Binary:         defaultSummarizeBinary,
			Args:           DefaultSummarizeArgs(),
			TimeoutSeconds: defaultSummarizeTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
