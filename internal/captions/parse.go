package captions

import (
	"encoding/xml"
	"errors"
	"html"
	"regexp"
	"strings"
)

var (
	vttHeaderRe = regexp.MustCompile(`^WEBVTT\b.*$`)
	// Matches timing cues in VTT ("00:00:01.234 --> 00:00:03.456") and
	// SRT ("00:00:01,234 --> 00:00:03,456") form, with or without an
	// hours field, ignoring trailing position metadata.
	timingLineRe   = regexp.MustCompile(`^(?:\d{1,2}:)?\d{2}:\d{2}[.,]\d{3}\s*-->\s*(?:\d{1,2}:)?\d{2}:\d{2}[.,]\d{3}`)
	markupTagRe    = regexp.MustCompile(`<[^>]+>`)
	cueIDRe        = regexp.MustCompile(`^\d+$`)
	metadataLineRe = regexp.MustCompile(`^(Kind|Language|NOTE|STYLE|REGION)\b`)
)

// Parse reduces a caption payload to plain text: timing cues, sequence
// markers, and markup stripped, remaining lines joined with single
// spaces. Both WebVTT/SRT cue text and timed-text XML are accepted.
// An empty result is an error, never an empty success.
func Parse(payload []byte) (string, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return "", errors.New("empty caption payload")
	}

	var text string
	if strings.HasPrefix(trimmed, "<") {
		parsed, err := parseTimedText(payload)
		if err != nil {
			return "", err
		}
		text = parsed
	} else {
		text = parseCueText(trimmed)
	}

	if text == "" {
		return "", errors.New("caption payload contained no text")
	}
	return text, nil
}

// parseCueText walks cue-block subtitle content line by line. Rolling
// auto-captions repeat partial text across overlapping cues, so
// consecutive duplicate lines collapse to one.
func parseCueText(raw string) string {
	lines := strings.Split(raw, "\n")
	var cleaned []string
	prevLine := ""

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")

		if vttHeaderRe.MatchString(line) {
			continue
		}
		if metadataLineRe.MatchString(line) {
			continue
		}
		if timingLineRe.MatchString(line) {
			continue
		}
		if cueIDRe.MatchString(strings.TrimSpace(line)) {
			continue
		}

		line = markupTagRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(html.UnescapeString(line))
		if line == "" {
			continue
		}
		if line == prevLine {
			continue
		}

		cleaned = append(cleaned, line)
		prevLine = line
	}

	return strings.Join(cleaned, " ")
}

type timedTextDoc struct {
	Entries []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

func parseTimedText(payload []byte) (string, error) {
	doc := timedTextDoc{}
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		// Timedtext entries are double-encoded: after XML decoding the
		// text still carries HTML entities and residual markup.
		text := html.UnescapeString(entry.Text)
		text = markupTagRe.ReplaceAllString(text, "")
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " "), nil
}
