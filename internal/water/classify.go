package water

import (
	"strings"

	"github.com/outbreakwatch/outbreakwatch/internal/measurement"
)

// Assess maps a record to a label and a severity in [0,1].
// Thresholds are public-health rules of thumb, not a regulatory standard.
func Assess(rec *Record) Assessment {
	if rec == nil {
		return unknown()
	}

	v := measurement.ParseNumeric(rec.Value)
	if !measurement.IsFinite(v) {
		return unknown()
	}

	switch Categorize(rec.Parameter) {
	case CategoryDissolvedOxygen:
		// Higher is better.
		switch {
		case v >= 6:
			return good()
		case v >= 4:
			return fair()
		default:
			return poor()
		}
	case CategoryBOD:
		return lowerIsBetter(v, 3, 6)
	case CategoryPH:
		switch {
		case v >= 6.5 && v <= 8.5:
			return good()
		case v >= 6.0 && v <= 9.0:
			return fair()
		default:
			return poor()
		}
	case CategoryTurbidity:
		return lowerIsBetter(v, 5, 10)
	default:
		return lowerIsBetter(v, 10, 20)
	}
}

// Categorize resolves a free-text parameter name. Checks run in a fixed
// order: dissolved oxygen, BOD, pH, turbidity, coliform, then other.
func Categorize(parameter string) Category {
	p := strings.ToLower(strings.TrimSpace(parameter))

	switch {
	case strings.Contains(p, "dissolved") || p == "do" || strings.HasPrefix(p, "do "):
		return CategoryDissolvedOxygen
	case strings.Contains(p, "bod") || strings.Contains(p, "biochemical"):
		return CategoryBOD
	case isPH(p):
		return CategoryPH
	case strings.Contains(p, "turbid"):
		return CategoryTurbidity
	case strings.Contains(p, "coliform"):
		return CategoryColiform
	default:
		return CategoryOther
	}
}

// isPH avoids matching words like "phosphate".
func isPH(p string) bool {
	if p == "ph" || strings.HasPrefix(p, "ph ") || strings.HasPrefix(p, "ph(") || strings.HasPrefix(p, "ph-") {
		return true
	}
	return strings.Contains(p, " ph ") || strings.HasSuffix(p, " ph") || strings.Contains(p, "(ph)")
}

func lowerIsBetter(v, goodMax, fairMax float64) Assessment {
	switch {
	case v <= goodMax:
		return good()
	case v <= fairMax:
		return fair()
	default:
		return poor()
	}
}

func good() Assessment    { return Assessment{Label: LabelGood, Severity: SeverityGood} }
func fair() Assessment    { return Assessment{Label: LabelFair, Severity: SeverityFair} }
func poor() Assessment    { return Assessment{Label: LabelPoor, Severity: SeverityPoor} }
func unknown() Assessment { return Assessment{Label: LabelUnknown, Severity: SeverityUnknown} }
