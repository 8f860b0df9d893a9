package water_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/outbreakwatch/outbreakwatch/internal/water"
)

func TestAssess_NilAndMalformed(t *testing.T) {
	assert.Equal(t, water.Assessment{Label: water.LabelUnknown, Severity: 0.25}, water.Assess(nil))

	for _, v := range []string{"", "NA", "BDL", "--", "abc"} {
		t.Run(v, func(t *testing.T) {
			got := water.Assess(&water.Record{Parameter: "BOD", Value: v})
			assert.Equal(t, water.LabelUnknown, got.Label)
			assert.Equal(t, 0.25, got.Severity)
		})
	}
}

func TestAssess_Bands(t *testing.T) {
	tests := []struct {
		name      string
		parameter string
		value     string
		expected  water.Label
	}{
		{"do good", "Dissolved Oxygen", "6", water.LabelGood},
		{"do fair", "Dissolved Oxygen (mg/L)", "4.5", water.LabelFair},
		{"do poor", "DO", "3.9", water.LabelPoor},
		{"bod good", "BOD", "3", water.LabelGood},
		{"bod fair", "BOD5", "6", water.LabelFair},
		{"bod qualifier", "BOD (mg/l)", "<0.5", water.LabelGood},
		{"bod poor", "Biochemical Oxygen Demand", "8", water.LabelPoor},
		{"ph good low edge", "pH", "6.5", water.LabelGood},
		{"ph good high edge", "pH", "8.5", water.LabelGood},
		{"ph fair low", "pH", "6.0", water.LabelFair},
		{"ph fair high", "PH", "9", water.LabelFair},
		{"ph poor", "pH", "9.1", water.LabelPoor},
		{"ph poor acidic", "pH", "5.9", water.LabelPoor},
		{"turbidity good", "Turbidity", "5", water.LabelGood},
		{"turbidity fair", "Turbidity (NTU)", "10", water.LabelFair},
		{"turbidity poor", "turbidity", "10.5", water.LabelPoor},
		{"fallback good", "Nitrate", "10", water.LabelGood},
		{"fallback fair", "Phosphate", "20", water.LabelFair},
		{"fallback poor", "Total Coliform", "1,200", water.LabelPoor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := water.Assess(&water.Record{Parameter: tt.parameter, Value: tt.value})
			assert.Equal(t, tt.expected, got.Label)
		})
	}
}

func TestAssess_SeverityMonotonicAndBounded(t *testing.T) {
	assert.Less(t, water.SeverityGood, water.SeverityFair)
	assert.Less(t, water.SeverityFair, water.SeverityPoor)

	for _, p := range []string{"Dissolved Oxygen", "BOD", "pH", "Turbidity", "Chloride"} {
		for _, v := range []string{"-5", "0", "3", "6.7", "9.5", "15", "25", "1e6"} {
			got := water.Assess(&water.Record{Parameter: p, Value: v})
			assert.GreaterOrEqual(t, got.Severity, 0.0)
			assert.LessOrEqual(t, got.Severity, 1.0)
		}
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		parameter string
		expected  water.Category
	}{
		{"Dissolved Oxygen", water.CategoryDissolvedOxygen},
		{"do", water.CategoryDissolvedOxygen},
		{"BOD", water.CategoryBOD},
		{"Biochemical Oxygen Demand", water.CategoryBOD},
		{"pH", water.CategoryPH},
		{"pH (units)", water.CategoryPH},
		{"Phosphate", water.CategoryOther},
		{"Turbidity", water.CategoryTurbidity},
		{"Fecal Coliform", water.CategoryColiform},
		{"Conductivity", water.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.parameter, func(t *testing.T) {
			assert.Equal(t, tt.expected, water.Categorize(tt.parameter))
		})
	}
}
