// Package textnorm canonicalizes free text before embedding. The rules are
// shared by the corpus build and the query path; if they diverge, corpus and
// query vectors stop living in the same space. No external dependencies.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text, replaces every character outside [a-z0-9\s]
// with a space, collapses whitespace runs, and trims. Deterministic and
// idempotent; empty or placeholder input yields "".
func Normalize(text string) string {
	if text == "" || text == "N/A" {
		return ""
	}
	text = strings.ToLower(text)
	text = nonAlnum.ReplaceAllString(text, " ")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// IsEmpty reports whether text carries no usable signal after normalization.
func IsEmpty(text string) bool {
	return Normalize(text) == ""
}
