package main

import (
	"os"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"spaces to underscores", "How To Cook Rice", "How_To_Cook_Rice"},
		{"shell characters dropped", `a/b\c: "d" | e?`, "a_b_c_d_e"},
		{"runs collapse", "a   ///  b", "a_b"},
		{"unicode letters kept", "emoción à la carte", "emoción_à_la_carte"},
		{"empty falls back to id", "", "abc123"},
		{"only punctuation falls back", "///???", "abc123"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeFilename(tc.title, "abc123"); got != tc.want {
				t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.title, got, tc.want)
			}
		})
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	got := sanitizeFilename(strings.Repeat("a", 500), "abc123")
	if len(got) > maxFilenameLength {
		t.Fatalf("stem too long: %d", len(got))
	}
}

func TestSaveArtifact(t *testing.T) {
	dir := t.TempDir()

	path, err := saveArtifact(dir, "My_Video", "transcript", "hello world")
	if err != nil {
		t.Fatalf("saveArtifact: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(content) != "hello world" {
		t.Fatalf("unexpected content %q", content)
	}
	if !strings.HasSuffix(path, "My_Video_transcript.md") {
		t.Fatalf("unexpected artifact name %q", path)
	}
}

func TestSaveArtifactRequiresOutputDir(t *testing.T) {
	if _, err := saveArtifact("  ", "stem", "summary", "text"); err == nil {
		t.Fatal("expected error when output dir is unset")
	}
}
