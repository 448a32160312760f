package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	slugInvalid  = regexp.MustCompile(`[^\p{L}\p{N} -]+`)
	slugCollapse = regexp.MustCompile("-+")
	currencyLead = regexp.MustCompile(`^[₩$€£¥]`)
)

// GenerateSlug converts a string into a URL/email-friendly slug.
// Non-latin letters survive, so "해피펫" stays "해피펫".
// e.g. "Happy Paw Co." -> "happy-paw-co"
func GenerateSlug(input string) string {
	s := strings.ToLower(input)
	s = slugInvalid.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "-")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return s
}

// ParseInt parses a string to int with a fallback default value
func ParseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}

// ParseFloatDefault parses a float, returning def on empty or malformed input.
// Supplier sheets routinely carry junk in numeric cells; the import contract
// is best-effort, never an error.
func ParseFloatDefault(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return def
	}
	return f
}

// ParsePriceDefault parses an integer price after stripping one leading
// currency symbol and thousands separators. "₩12,000" -> 12000, "abc" -> def.
func ParsePriceDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	s = currencyLead.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	// Accept decimal-looking prices by truncating
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return val
}

// Truncate returns at most n characters of s (rune-safe).
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
