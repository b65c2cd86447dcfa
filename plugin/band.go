package plugin

import (
	"fmt"
	"strings"
)

// Band is a coarse bucket of the continuous risk score.
type Band int

const (
	BandLow Band = iota
	BandMedium
	BandHigh
)

const (
	HighBandThreshold   = 0.7
	MediumBandThreshold = 0.4
)

// BandForScore maps a score onto its band.  The mapping is a monotonic step
// function: High at 0.7 and above, Medium from 0.4, Low below that.
func BandForScore(score float64) Band {
	switch {
	case score >= HighBandThreshold:
		return BandHigh
	case score >= MediumBandThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

func (b Band) String() string {
	switch b {
	case BandHigh:
		return "High"
	case BandMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// Short is the label printed on the card's risk chip.
func (b Band) Short() string {
	if b == BandMedium {
		return "Med"
	}
	return b.String()
}

// ParseBand accepts the long and short band labels, case-insensitively.
func ParseBand(s string) (Band, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return BandLow, nil
	case "med", "medium", "moderate":
		return BandMedium, nil
	case "high":
		return BandHigh, nil
	}
	return BandLow, fmt.Errorf("unknown risk band %q", s)
}

func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Band) UnmarshalText(text []byte) error {
	parsed, err := ParseBand(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Provenance records whether a result was computed by a plugin or is one of
// the hand-authored fallback results.
type Provenance string

const (
	ProvenanceComputed Provenance = "computed"
	ProvenanceFallback Provenance = "fallback"
)

// FormatPercent renders a 0..1 score as a whole percentage, e.g. "83%".
func FormatPercent(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}
