package flow

import (
	"database/sql"
	"fmt"
)

// Severity is a discrete water condition tier.
type Severity string

const (
	SeveritySevereLow  Severity = "SEVERE_LOW"
	SeverityLow        Severity = "LOW"
	SeverityNormal     Severity = "NORMAL"
	SeverityHigh       Severity = "HIGH"
	SeveritySevereHigh Severity = "SEVERE_HIGH"
	SeverityUnknown    Severity = "UNKNOWN"
)

// Fixed descriptions attached to each severity tier.
const (
	descUnknown    = "Insufficient data"
	descSevereLow  = "Severe drought conditions"
	descLow        = "Below normal flow (drought)"
	descSevereHigh = "Severe flood conditions"
	descHigh       = "Above normal flow (flood risk)"
	descNormal     = "Normal flow conditions"
)

// Extreme reports whether the tier is anything other than normal flow.
func (s Severity) Extreme() bool {
	switch s {
	case SeveritySevereLow, SeverityLow, SeverityHigh, SeveritySevereHigh:
		return true
	}
	return false
}

// Severe reports whether the tier is one of the alert-level extremes.
func (s Severity) Severe() bool {
	return s == SeveritySevereLow || s == SeveritySevereHigh
}

// Thresholds are the percentile cut points for classification.
type Thresholds struct {
	VeryLow  float64 `yaml:"very_low"`
	Low      float64 `yaml:"low"`
	High     float64 `yaml:"high"`
	VeryHigh float64 `yaml:"very_high"`
}

// DefaultThresholds returns the standard drought/flood percentile bands.
func DefaultThresholds() Thresholds {
	return Thresholds{VeryLow: 5, Low: 10, High: 90, VeryHigh: 95}
}

// Validate reports the first ordering violation among the cut points.
// Classification does not require validity: Classify evaluates its
// rules in a fixed order, so a malformed config still produces a
// deterministic (if surprising) tier. Callers use this to warn, not to
// abort.
func (t Thresholds) Validate() error {
	switch {
	case t.VeryLow < 0:
		return fmt.Errorf("very_low threshold %.1f below 0", t.VeryLow)
	case t.VeryLow > t.Low:
		return fmt.Errorf("very_low threshold %.1f exceeds low %.1f", t.VeryLow, t.Low)
	case t.Low > t.High:
		return fmt.Errorf("low threshold %.1f exceeds high %.1f", t.Low, t.High)
	case t.High > t.VeryHigh:
		return fmt.Errorf("high threshold %.1f exceeds very_high %.1f", t.High, t.VeryHigh)
	case t.VeryHigh > 100:
		return fmt.Errorf("very_high threshold %.1f above 100", t.VeryHigh)
	}
	return nil
}

// Classify maps a percentile rank to a severity tier. The rules are
// evaluated in a fixed order and the first match wins: unavailable,
// then the low-side bands, then the high-side bands. The order matters:
// with overlapping thresholds a rank can satisfy both a low and a high
// predicate, and the low side takes precedence.
// Boundary comparisons are inclusive on both sides.
func Classify(percentile sql.NullFloat64, t Thresholds) (Severity, string) {
	if !percentile.Valid {
		return SeverityUnknown, descUnknown
	}

	p := percentile.Float64
	switch {
	case p <= t.VeryLow:
		return SeveritySevereLow, descSevereLow
	case p <= t.Low:
		return SeverityLow, descLow
	case p >= t.VeryHigh:
		return SeveritySevereHigh, descSevereHigh
	case p >= t.High:
		return SeverityHigh, descHigh
	default:
		return SeverityNormal, descNormal
	}
}
