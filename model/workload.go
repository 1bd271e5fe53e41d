package model

// Workload band constants, ordered lightest to heaviest.
const (
	WorkloadNone       = "none"
	WorkloadLight      = "light"
	WorkloadModerate   = "moderate"
	WorkloadHeavy      = "heavy"
	WorkloadOverloaded = "overloaded"
)

// bandRank orders the workload bands for ceiling comparisons.
var bandRank = map[string]int{
	WorkloadNone:       0,
	WorkloadLight:      1,
	WorkloadModerate:   2,
	WorkloadHeavy:      3,
	WorkloadOverloaded: 4,
}

// Workload is the derived caseload view for one advocate. It is computed
// on demand from case records, never stored.
type Workload struct {
	AdvocateID  string         `json:"advocate_id"`
	ActiveCases int            `json:"active_cases"`
	TotalCases  int            `json:"total_cases"`
	UrgentCases int            `json:"urgent_cases"`
	ByStatus    map[string]int `json:"by_status"`
	Band        string         `json:"band"`
}

// ClassifyWorkload maps an (active, urgent) case count pair onto a band.
// The thresholds are ordered: the first row that fits wins.
func ClassifyWorkload(activeCases, urgentCases int) string {
	switch {
	case activeCases == 0:
		return WorkloadNone
	case activeCases <= 10 && urgentCases <= 2:
		return WorkloadLight
	case activeCases <= 25 && urgentCases <= 5:
		return WorkloadModerate
	case activeCases <= 40 && urgentCases <= 10:
		return WorkloadHeavy
	default:
		return WorkloadOverloaded
	}
}

// WorkloadWithinCeiling reports whether band is at or below ceiling.
// Unknown bands are treated as over the ceiling.
func WorkloadWithinCeiling(band, ceiling string) bool {
	br, ok := bandRank[band]
	if !ok {
		return false
	}
	cr, ok := bandRank[ceiling]
	if !ok {
		return false
	}
	return br <= cr
}

// WorkloadScore is the auto-assignment base score for a band. Lighter
// bands score higher; overloaded advocates are never preferred.
func WorkloadScore(band string) int {
	switch band {
	case WorkloadNone:
		return 10
	case WorkloadLight:
		return 8
	case WorkloadModerate:
		return 6
	case WorkloadHeavy:
		return 4
	default:
		return 0
	}
}

// IsWorkloadBand reports whether s names a known band.
func IsWorkloadBand(s string) bool {
	_, ok := bandRank[s]
	return ok
}
