package security

import (
	"fmt"
	"log/slog"
	"regexp"
	"unicode/utf8"
)

const redacted = "***REDACTED***"

// Sanitizer redacts personal data and credentials from user text before it is
// written to the usage log.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

// NewSanitizer compiles patterns; with none it uses DefaultPatterns.
func NewSanitizer(patterns []string) (*Sanitizer, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid security pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return &Sanitizer{
		patterns: compiled,
	}, nil
}

func (s *Sanitizer) Sanitize(text string) string {
	result := text
	changed := false

	for _, pattern := range s.patterns {
		if pattern.MatchString(result) {
			result = pattern.ReplaceAllString(result, redacted)
			changed = true
		}
	}

	if changed {
		slog.Debug("Security: redacted sensitive information from question text")
	}

	return result
}

// ForLog sanitizes text and cuts it to at most maxBytes without splitting a
// UTF-8 sequence.
func (s *Sanitizer) ForLog(text string, maxBytes int) string {
	return truncate(s.Sanitize(text), maxBytes)
}

func truncate(text string, maxBytes int) string {
	if len(text) <= maxBytes {
		return text
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

var DefaultPatterns = []string{
	// Telegram bot tokens
	`\b\d{8,10}:[A-Za-z0-9_-]{35}\b`,
	`(?i)(api[_-]?key|token|password|secret)s?\s*[:=]\s*["']?[^"'\s]+`,
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	// Indian mobile numbers, optionally with +91 or 0
	`(?:\+91[\s-]?|\b0)?\b[6-9]\d{4}[\s-]?\d{5}\b`,
	`eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
}
