package ingest

import (
	"math"
	"reflect"
	"testing"

	"github.com/lox/riverwatch/internal/models"
)

func TestValidateReading(t *testing.T) {
	tests := []struct {
		name      string
		reading   *models.Reading
		wantFlags []string
	}{
		{
			name:      "approved reading - no flags",
			reading:   &models.Reading{Value: 1200, Qualifiers: "A"},
			wantFlags: nil,
		},
		{
			name:      "missing value",
			reading:   &models.Reading{Value: math.NaN()},
			wantFlags: []string{FlagMissingValue},
		},
		{
			name:      "negative discharge",
			reading:   &models.Reading{Value: -40},
			wantFlags: []string{FlagNegativeDischarge},
		},
		{
			name:      "provisional",
			reading:   &models.Reading{Value: 900, Qualifiers: "P"},
			wantFlags: []string{FlagProvisional},
		},
		{
			name:      "estimated and ice affected",
			reading:   &models.Reading{Value: 55, Qualifiers: "e,Ice"},
			wantFlags: []string{FlagEstimated, FlagIceAffected},
		},
		{
			name:      "missing and provisional",
			reading:   &models.Reading{Value: math.NaN(), Qualifiers: "P"},
			wantFlags: []string{FlagMissingValue, FlagProvisional},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateReading(tt.reading)
			if !reflect.DeepEqual(got, tt.wantFlags) {
				t.Errorf("flags = %v, want %v", got, tt.wantFlags)
			}
		})
	}
}

func TestUsable(t *testing.T) {
	if Usable(&models.Reading{Value: math.NaN()}) {
		t.Error("NaN reading should not be usable")
	}
	if !Usable(&models.Reading{Value: -40}) {
		t.Error("negative discharge is a real measurement at tidal sites")
	}
	if !Usable(&models.Reading{Value: 0}) {
		t.Error("zero flow is usable")
	}
}
