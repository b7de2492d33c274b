// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"regexp"
	"strings"
)

// suspiciousPatterns are markers of injected executable content. A response
// matching more than maxSuspiciousPatterns distinct kinds is rejected
// outright rather than sanitized.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script.*?>`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)<\s*iframe\b`),
	regexp.MustCompile(`(?i)<\s*link\b`),
	regexp.MustCompile(`(?i)<\s*meta\b`),
	regexp.MustCompile(`(?s)/\*\*/.*?/\*\*/`),
}

const maxSuspiciousPatterns = 3

var (
	htmlEntityPattern  = regexp.MustCompile(`&#(\d{1,3};|x[0-9a-fA-F]{1,4};)`)
	percentEncPattern  = regexp.MustCompile(`(?i)%[0-9a-f]{2}`)
	unicodeEscPattern  = regexp.MustCompile(`(?i)\\u[0-9a-f]{4}`)
	pathPattern        = regexp.MustCompile(`/[\w/.\-]+`)
	longTokenPattern   = regexp.MustCompile(`\b[A-Za-z0-9]{32,64}\b`)
	modelIDPattern     = regexp.MustCompile(`\b\d{4,}-\w+\b`)
	controlRunePattern = regexp.MustCompile("[\x00-\x1f\x7f]")
)

// markupEscaper must emit named entities only: the numeric-entity strip
// below would eat forms like &#34;, and ExtractJSON needs to recover the
// quotes with html.UnescapeString before parsing.
var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// sanitizeResponse screens completion text for injection markers and
// neutralizes what remains. The result is interpolated into LaTeX and CSV
// output without further escaping, so this boundary must be complete.
func sanitizeResponse(text string) (string, error) {
	found := 0
	for _, p := range suspiciousPatterns {
		if p.MatchString(text) {
			found++
		}
	}
	if found > maxSuspiciousPatterns {
		return "", &SecurityError{Patterns: found}
	}

	s := markupEscaper.Replace(text)
	s = htmlEntityPattern.ReplaceAllString(s, "")
	s = percentEncPattern.ReplaceAllString(s, "")
	s = unicodeEscPattern.ReplaceAllString(s, "")
	return s, nil
}

// SanitizeMessage redacts filesystem paths, key-shaped tokens, and model
// identifiers from an error message before it is logged or persisted.
func SanitizeMessage(msg string) string {
	msg = pathPattern.ReplaceAllString(msg, "[PATH]")
	msg = longTokenPattern.ReplaceAllString(msg, "[KEY]")
	msg = modelIDPattern.ReplaceAllString(msg, "[MODEL]")
	return msg
}

// SanitizeInput strips control characters from text destined for a prompt
// and caps its length.
func SanitizeInput(text string) string {
	s := controlRunePattern.ReplaceAllString(text, "")
	if len(s) > 10000 {
		s = s[:10000]
	}
	return s
}

// Truncate shortens s to at most n bytes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
