// Package summarize turns a transcript into a short summary by way of
// an external LLM CLI. The binary and its leading arguments come from
// configuration; the assembled prompt is appended as the final
// argument.
package summarize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// bannerFragments are substrings of CLI housekeeping lines that some
// model front-ends print on stdout before the actual response.
var bannerFragments = []string{
	"loaded cached",
	"loading model",
	"processing request",
	"generating response",
	"node_modules",
}

// Service wraps the summarizer CLI.
type Service struct {
	binary string
	args   []string

	commandRunner func(ctx context.Context, name string, args ...string) (string, error)
}

// NewService creates a summarizer service. args are the fixed leading
// arguments from configuration, typically a prompt flag.
func NewService(binary string, args []string) (*Service, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("summarizer binary required")
	}
	return &Service{binary: binary, args: append([]string(nil), args...)}, nil
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	s.commandRunner = runner
}

// Summarize produces a summary of transcript. title, when known, is
// folded into the prompt so the model has context beyond the raw text.
// An empty summary is an error, never an empty success.
func (s *Service) Summarize(ctx context.Context, transcript, title string) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", errors.New("summarize: transcript is empty")
	}

	args := append(append([]string(nil), s.args...), buildPrompt(transcript, title))
	output, err := s.run(ctx, s.binary, args...)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	summary := cleanOutput(output)
	if summary == "" {
		return "", errors.New("summarize: model produced no usable text")
	}
	return summary, nil
}

func buildPrompt(transcript, title string) string {
	var b strings.Builder
	if title = strings.TrimSpace(title); title != "" {
		fmt.Fprintf(&b, "You are analyzing a video titled: %q\n\n", title)
		b.WriteString("Provide a very concise summary of the following transcript from this video:\n\n")
		b.WriteString(transcript)
		b.WriteString("\n\nWrite a clear summary that captures the main points, key information, and the context the title provides.")
		return b.String()
	}
	b.WriteString("Provide a very concise summary of the following transcript:\n\n")
	b.WriteString(transcript)
	b.WriteString("\n\nWrite a clear, concise summary that captures the main points and key information.")
	return b.String()
}

// cleanOutput strips housekeeping lines the CLI may emit around the
// response and rejoins the rest.
func cleanOutput(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isBannerLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isBannerLine(line string) bool {
	lower := strings.ToLower(line)
	for _, fragment := range bannerFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

func (s *Service) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return stdout.String(), nil
}
