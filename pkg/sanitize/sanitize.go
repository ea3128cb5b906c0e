// Package sanitize bounds and defangs user-authored text before it is
// persisted. The backend performs no server-side rendering, so escaping
// here is advisory hardening for clients that interpolate raw strings.
package sanitize

import (
	"html"
	"strings"
	"unicode"
)

// DefaultMaxLength caps text fields that do not specify their own bound.
const DefaultMaxLength = 1000

// Clean escapes HTML entities, strips any remaining angle brackets,
// truncates to maxLength codepoints and trims surrounding whitespace.
func Clean(input string, maxLength int) string {
	if input == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	cleaned := html.EscapeString(input)
	cleaned = strings.NewReplacer("<", "", ">", "").Replace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > maxLength {
		cleaned = string(runes[:maxLength])
	}

	return strings.TrimSpace(cleaned)
}

// shortener domains flagged by the spam heuristic
var suspiciousHosts = []string{"bit.ly", "tinyurl", "goo.gl"}

// IsSpam reports whether text trips any of the best-effort spam
// heuristics: a character repeated 11+ times in a row, a known URL
// shortener, or a mostly-uppercase body. False positives and negatives
// are acceptable.
func IsSpam(text string) bool {
	if hasLongRun(text, 11) {
		return true
	}

	lowered := strings.ToLower(text)
	for _, host := range suspiciousHosts {
		if strings.Contains(lowered, host) {
			return true
		}
	}

	runes := []rune(text)
	if len(runes) > 20 {
		upper := 0
		for _, r := range runes {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if float64(upper)/float64(len(runes)) > 0.7 {
			return true
		}
	}

	return false
}

func hasLongRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= n {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
