package ingest

import (
	"math"
	"strings"

	"github.com/lox/riverwatch/internal/models"
)

const (
	FlagNegativeDischarge = "negative_discharge"
	FlagMissingValue      = "missing_value"
	FlagProvisional       = "provisional"
	FlagIceAffected       = "ice_affected"
	FlagEstimated         = "estimated"
)

// ValidateReading returns quality flags for a reading. Flags are
// recorded alongside cached values for diagnostics; of these only
// missing values are excluded from statistics.
func ValidateReading(r *models.Reading) []string {
	var flags []string

	if math.IsNaN(r.Value) {
		flags = append(flags, FlagMissingValue)
	} else if r.Value < 0 {
		flags = append(flags, FlagNegativeDischarge)
	}

	for _, q := range strings.Split(r.Qualifiers, ",") {
		switch strings.TrimSpace(q) {
		case "P":
			flags = append(flags, FlagProvisional)
		case "e", "E":
			flags = append(flags, FlagEstimated)
		case "Ice", "i":
			flags = append(flags, FlagIceAffected)
		}
	}

	return flags
}

// Usable reports whether a reading carries a value at all. Negative
// discharge is flagged but kept: reverse flow is a real measurement at
// tidally affected sites.
func Usable(r *models.Reading) bool {
	return !math.IsNaN(r.Value)
}
