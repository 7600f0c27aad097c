package preflight

import (
	"recap/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the free-space floor for the working directory. An
// audio download plus its WAV intermediate for a long video can reach
// a few hundred MiB.
const minFreeBytes = 512 << 20

// RunAll executes every applicable check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Working directory", cfg.Paths.WorkDir),
		CheckFreeSpace("Free space", cfg.Paths.WorkDir, minFreeBytes),
	}
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}
	results = append(results,
		CheckCookiesFile(cfg.Acquire.CookiesFile),
		CheckConvertAPI(cfg.ConvertAPI),
	)
	return results
}

// CheckCookiesFile verifies the configured cookies file is readable.
// An unset path passes; cookies are an escape hatch, not a
// requirement.
func CheckCookiesFile(path string) Result {
	const name = "Cookies file"
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "not configured"}
	}
	return checkReadableFile(name, path)
}

// CheckConvertAPI reports whether the conversion fallback is
// available. No key is a deliberate off switch, not a failure.
func CheckConvertAPI(cfg config.ConvertAPI) Result {
	const name = "Conversion API"
	switch {
	case cfg.APIKey == "":
		return Result{Name: name, Passed: true, Detail: "disabled (no api_key)"}
	case cfg.BaseURL == "":
		return Result{Name: name, Detail: "api_key set but base_url missing"}
	default:
		return Result{Name: name, Passed: true, Detail: "configured"}
	}
}
