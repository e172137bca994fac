package browser

import (
	"regexp"
	"strconv"
	"strings"
)

// abbrevPattern matches human-readable counts as rendered next to posts:
// "1234", "1,234", "1.2K", "10M", "3.4B".
var abbrevPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([KkMmBb])?$`)

var magnitudes = map[string]float64{
	"k": 1_000,
	"m": 1_000_000,
	"b": 1_000_000_000,
}

// parseCount converts a possibly-abbreviated engagement string to an integer.
// Absent or unparseable values yield nil, never an error; the page renders
// these fields inconsistently and a missing count must not sink a post.
func parseCount(s string) *int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil
	}

	m := abbrevPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if m[2] != "" {
		value *= magnitudes[strings.ToLower(m[2])]
	}

	n := int(value)
	return &n
}
