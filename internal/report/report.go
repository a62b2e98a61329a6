// Package report renders monitoring results as a console report.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/lox/riverwatch/internal/flow"
	"github.com/lox/riverwatch/internal/models"
)

const rule = "================================================================================"

// Unit returns the display unit for a USGS parameter code.
func Unit(parameterCode string) string {
	switch parameterCode {
	case "00065":
		return "ft"
	default:
		return "cfs"
	}
}

// Print writes a formatted conditions report. Sites classified UNKNOWN
// are listed with an n/a percentile; they do not count as extreme.
func Print(w io.Writer, results []models.SiteCondition, unit string, generatedAt time.Time) {
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, "RIVER LEVEL EXTREME CONDITIONS REPORT")
	fmt.Fprintf(w, "Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, rule)

	extremeCount := 0
	for _, r := range results {
		severity := flow.Severity(r.Severity)

		marker := "✓"
		if severity.Extreme() {
			extremeCount++
			if severity.Severe() {
				marker = "⚠ ALERT"
			} else {
				marker = "⚡ WARNING"
			}
		}

		name := ""
		if r.SiteName != "" {
			name = fmt.Sprintf(" (%s)", r.SiteName)
		}

		fmt.Fprintf(w, "\n%s Site: %s%s\n", marker, r.SiteNo, name)
		fmt.Fprintf(w, "  Current Value: %.2f %s\n", r.CurrentValue, unit)
		fmt.Fprintf(w, "  As of: %s\n", r.CurrentTime.Format(time.RFC3339))
		fmt.Fprintf(w, "  Condition: %s (%s)\n", r.Severity, r.Description)
		if r.Percentile.Valid {
			fmt.Fprintf(w, "  Percentile: %.1f%%\n", r.Percentile.Float64)
			fmt.Fprintf(w, "  Historical Range: %.2f - %.2f %s\n", r.HistoricalMin, r.HistoricalMax, unit)
			fmt.Fprintf(w, "  Historical Median: %.2f %s\n", r.HistoricalMedian, unit)
		} else {
			fmt.Fprintln(w, "  Percentile: n/a")
		}
	}

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "Summary: %d of %d sites show extreme conditions\n", extremeCount, len(results))
	fmt.Fprintf(w, "%s\n\n", rule)
}

// PrintSiteList writes a numbered gauge listing, used by site search
// and the setup wizard.
func PrintSiteList(w io.Writer, sites []models.Site, previews map[string]string) {
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, "AVAILABLE STREAM GAUGES")
	fmt.Fprintln(w, rule)

	for i, site := range sites {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, site.SiteNo)
		fmt.Fprintf(w, "    Name: %s\n", site.Name)
		if preview, ok := previews[site.SiteNo]; ok && preview != "" {
			fmt.Fprintf(w, "    %s\n", preview)
		}
	}

	fmt.Fprintf(w, "\n%s\n", rule)
}

// FormatPreview renders the recent-reading summary line for a gauge.
func FormatPreview(latest *models.Reading, unit string) string {
	if latest == nil {
		return "No recent data"
	}
	return fmt.Sprintf("Recent: %.0f %s (%s)", latest.Value, unit, latest.ObservedAt.Format("2006-01-02"))
}
