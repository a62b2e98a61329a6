package report

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/lox/riverwatch/internal/models"
)

func TestPrint(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	results := []models.SiteCondition{
		{
			SiteNo:           "01646500",
			SiteName:         "POTOMAC RIVER NEAR WASH, DC",
			CurrentValue:     12345.5,
			CurrentTime:      now.Add(-time.Hour),
			Percentile:       sql.NullFloat64{Float64: 97.2, Valid: true},
			Severity:         "SEVERE_HIGH",
			Description:      "Severe flood conditions",
			HistoricalMin:    300,
			HistoricalMax:    42000,
			HistoricalMedian: 6200,
		},
		{
			SiteNo:       "03294500",
			CurrentValue: 880,
			CurrentTime:  now.Add(-2 * time.Hour),
			Percentile:   sql.NullFloat64{Float64: 45, Valid: true},
			Severity:     "NORMAL",
			Description:  "Normal flow conditions",
		},
		{
			SiteNo:       "07010000",
			CurrentValue: 15,
			CurrentTime:  now.Add(-3 * time.Hour),
			Severity:     "UNKNOWN",
			Description:  "Insufficient data",
		},
	}

	var buf strings.Builder
	Print(&buf, results, "cfs", now)
	out := buf.String()

	for _, want := range []string{
		"RIVER LEVEL EXTREME CONDITIONS REPORT",
		"Generated: 2026-08-29 10:00:00",
		"⚠ ALERT Site: 01646500 (POTOMAC RIVER NEAR WASH, DC)",
		"Current Value: 12345.50 cfs",
		"Condition: SEVERE_HIGH (Severe flood conditions)",
		"Percentile: 97.2%",
		"Historical Range: 300.00 - 42000.00 cfs",
		"Historical Median: 6200.00 cfs",
		"✓ Site: 03294500",
		"Percentile: n/a",
		"Summary: 1 of 3 sites show extreme conditions",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}

	// UNKNOWN sites appear but never count as extreme, and their
	// historical stats are suppressed.
	if strings.Contains(out, "Historical Range: 0.00") {
		t.Error("UNKNOWN site should not print historical range")
	}
}

func TestPrint_Empty(t *testing.T) {
	var buf strings.Builder
	Print(&buf, nil, "cfs", time.Now())

	if !strings.Contains(buf.String(), "Summary: 0 of 0 sites") {
		t.Errorf("empty report summary wrong:\n%s", buf.String())
	}
}

func TestUnit(t *testing.T) {
	if got := Unit("00060"); got != "cfs" {
		t.Errorf("Unit(00060) = %q, want cfs", got)
	}
	if got := Unit("00065"); got != "ft" {
		t.Errorf("Unit(00065) = %q, want ft", got)
	}
}

func TestFormatPreview(t *testing.T) {
	r := &models.Reading{
		Value:      1234.6,
		ObservedAt: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
	}
	if got := FormatPreview(r, "cfs"); got != "Recent: 1235 cfs (2026-08-28)" {
		t.Errorf("FormatPreview = %q", got)
	}
	if got := FormatPreview(nil, "cfs"); got != "No recent data" {
		t.Errorf("FormatPreview(nil) = %q", got)
	}
}
