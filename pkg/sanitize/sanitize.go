package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	dangerousChars     = regexp.MustCompile("[<>'\"`;(){}]")
	controlCharPattern = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// String strips HTML tags, the characters <>'"`;(){} and ASCII control
// characters from s, then trims surrounding whitespace.
// It never rejects input and String(String(s)) == String(s).
func String(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = dangerousChars.ReplaceAllString(s, "")
	s = controlCharPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Optional sanitizes s and returns nil when nothing is left.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	clean := String(s)
	if clean == "" {
		return nil
	}
	return &clean
}
