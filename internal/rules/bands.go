package rules

// Band groups raw confidence scores into the coarse levels shown during
// review. Operators act on bands, not raw numbers.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandThresholds holds the lower bounds for the high and medium bands.
// Anything below Medium is low.
type BandThresholds struct {
	High   int
	Medium int
}

// DefaultBandThresholds returns the stock banding: 80+ high, 50-79 medium.
func DefaultBandThresholds() BandThresholds {
	return BandThresholds{High: 80, Medium: 50}
}

// Band maps a confidence score to its band.
func (t BandThresholds) Band(confidence int) Band {
	switch {
	case confidence >= t.High:
		return BandHigh
	case confidence >= t.Medium:
		return BandMedium
	default:
		return BandLow
	}
}
