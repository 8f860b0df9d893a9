// Package measurement normalizes raw upstream measurement strings into numbers.
package measurement

import (
	"math"
	"strconv"
	"strings"
)

// missingTokens are values upstream datasets use for "no reading".
var missingTokens = map[string]struct{}{
	"na":     {},
	"n/a":    {},
	"n.a.":   {},
	"n.a":    {},
	"nan":    {},
	"null":   {},
	"nil":    {},
	"none":   {},
	"bdl":    {},
	"b.d.l.": {},
	"b.d.l":  {},
	"nd":     {},
	"n.d.":   {},
	"n.d":    {},
	"--":     {},
	"-":      {},
}

// qualifiers are stripped from the front of a value, longest first.
var qualifiers = []string{"<=", ">=", "<", ">"}

// ParseNumeric parses a raw measurement such as "12.5", "<0.5" or "1,200".
// It returns NaN for empty input, known missing-value tokens and anything
// that does not parse as a finite number.
func ParseNumeric(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return math.NaN()
	}

	if _, ok := missingTokens[strings.ToLower(s)]; ok {
		return math.NaN()
	}

	for _, q := range qualifiers {
		if strings.HasPrefix(s, q) {
			s = strings.TrimSpace(s[len(q):])
			break
		}
	}

	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !IsFinite(v) {
		return math.NaN()
	}
	return v
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
