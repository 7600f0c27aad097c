package main

import (
	"fmt"
	"strings"
	"time"

	"recap/internal/acquire"
	"recap/internal/pipeline"
)

const (
	maxUserAgentWidth = 28
	maxDetailWidth    = 60
)

// attemptRows flattens the run journal into table rows.
func attemptRows(attempts []acquire.Attempt) [][]string {
	rows := make([][]string, 0, len(attempts))
	for i, attempt := range attempts {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			attempt.Strategy,
			attempt.Profile,
			truncate(attempt.UserAgent, maxUserAgentWidth),
			string(attempt.Outcome),
			formatElapsed(attempt.Elapsed),
			truncate(attempt.Detail, maxDetailWidth),
		})
	}
	return rows
}

func renderAttempts(attempts []acquire.Attempt) string {
	return renderTable(
		[]string{"#", "Strategy", "Profile", "User Agent", "Outcome", "Elapsed", "Detail"},
		attemptRows(attempts),
		0, 5,
	)
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

// failureError converts a failed run into the error surfaced to the
// user: the classified explanation plus its remediation when one
// exists.
func failureError(result pipeline.Result, err error) error {
	if result.Failure == nil {
		return err
	}
	return fmt.Errorf("%s", result.Failure.String())
}

// videoHeading formats the title line printed before transcript or
// summary output.
func videoHeading(title, videoID string) string {
	if strings.TrimSpace(title) == "" {
		return videoID
	}
	return title
}
