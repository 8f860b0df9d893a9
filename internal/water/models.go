// Package water classifies water-quality readings and matches station records to regions.
package water

// Record is a single station reading from the bulk water-quality dataset.
// Value is kept raw because upstream mixes numbers with qualifiers like "<0.5" or "BDL".
type Record struct {
	StationCode string `json:"stationCode"`
	StationName string `json:"stationName"`
	State       string `json:"state"`
	District    string `json:"district"`
	Parameter   string `json:"parameter"`
	Value       string `json:"value"`
}

// Label is the qualitative water quality class.
type Label string

const (
	LabelGood    Label = "Good"
	LabelFair    Label = "Fair"
	LabelPoor    Label = "Poor"
	LabelUnknown Label = "Unknown"
)

// Severity per band. The bands are coarse on purpose; parameters do not share a scale.
const (
	SeverityGood    = 0.15
	SeverityFair    = 0.45
	SeverityPoor    = 0.8
	SeverityUnknown = 0.25
)

// Assessment is the classifier output for one record.
type Assessment struct {
	Label    Label
	Severity float64
}

// Category is the parameter family a record is classified under.
type Category string

const (
	CategoryDissolvedOxygen Category = "DISSOLVED_OXYGEN"
	CategoryBOD             Category = "BOD"
	CategoryPH              Category = "PH"
	CategoryTurbidity       Category = "TURBIDITY"
	CategoryColiform        Category = "COLIFORM"
	CategoryOther           Category = "OTHER"
)
