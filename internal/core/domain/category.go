package domain

// Category labels form a closed set. Enrichment output outside this set is
// discarded rather than invented.
const (
	CategoryPerformance   = "Performance Management"
	CategoryLeadership    = "Leadership"
	CategoryCommunication = "Communication"
	CategoryCoaching      = "Coaching"
	CategoryDelegation    = "Delegation"
	CategoryGeneral       = "General"
)

// Categories lists every valid category label.
var Categories = []string{
	CategoryPerformance,
	CategoryLeadership,
	CategoryCommunication,
	CategoryCoaching,
	CategoryDelegation,
	CategoryGeneral,
}

// ValidCategory reports whether label belongs to the closed category set.
func ValidCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}
