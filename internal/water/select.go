package water

import (
	"strings"
)

// Matcher picks the candidate records that belong to a region.
type Matcher interface {
	Candidates(records []Record, region string) []Record
}

// DefaultMatcher matches on exact state name, then district name, then a
// substring match on state name in either direction. The last stage can
// produce false positives on short names.
type DefaultMatcher struct{}

// Candidates implements Matcher.
func (DefaultMatcher) Candidates(records []Record, region string) []Record {
	target := NormalizeName(region)
	if target == "" || len(records) == 0 {
		return nil
	}

	var out []Record
	for _, r := range records {
		if NormalizeName(r.State) == target {
			out = append(out, r)
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, r := range records {
		if NormalizeName(r.District) == target {
			out = append(out, r)
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, r := range records {
		state := NormalizeName(r.State)
		if state == "" {
			continue
		}
		if strings.Contains(state, target) || strings.Contains(target, state) {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeName lowercases, replaces "&" with "and" and drops everything
// outside ASCII a-z and 0-9.
func NormalizeName(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "&", "and")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParameterWeight ranks how informative a parameter is for water-borne risk.
func ParameterWeight(parameter string) float64 {
	switch Categorize(parameter) {
	case CategoryBOD, CategoryDissolvedOxygen, CategoryColiform:
		return 1.0
	case CategoryTurbidity, CategoryPH:
		return 0.8
	default:
		return 0.6
	}
}

// ScoreRecord is severity weighted by parameter relevance.
func ScoreRecord(rec Record) float64 {
	return Assess(&rec).Severity * ParameterWeight(rec.Parameter)
}

// SelectForRegion returns the highest scoring record for region using
// DefaultMatcher, or nil when nothing matches.
func SelectForRegion(records []Record, region string) *Record {
	return SelectWith(DefaultMatcher{}, records, region)
}

// SelectWith is SelectForRegion with a custom matcher. Ties keep the first
// occurrence.
func SelectWith(m Matcher, records []Record, region string) *Record {
	candidates := m.Candidates(records, region)
	if len(candidates) == 0 {
		return nil
	}

	best := 0
	bestScore := ScoreRecord(candidates[0])
	for i := 1; i < len(candidates); i++ {
		if s := ScoreRecord(candidates[i]); s > bestScore {
			best = i
			bestScore = s
		}
	}

	rec := candidates[best]
	return &rec
}
