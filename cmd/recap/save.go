package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const maxFilenameLength = 120

// sanitizeFilename turns a video title into a safe filename stem.
// Separators and shell-hostile characters collapse to underscores;
// an empty result falls back to the video identifier.
func sanitizeFilename(title, videoID string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	stem := strings.Trim(b.String(), "_.")
	if len(stem) > maxFilenameLength {
		stem = stem[:maxFilenameLength]
	}
	if stem == "" {
		stem = videoID
	}
	return stem
}

// saveArtifact writes content into dir under <stem> <suffix>.md and
// returns the written path.
func saveArtifact(dir, stem, suffix, content string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("no output directory configured; set paths.output_dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, stem+"_"+suffix+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
