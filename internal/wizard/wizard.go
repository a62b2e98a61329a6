// Package wizard is the interactive first-run setup: resolve a
// location, search for nearby gauges, pick the ones to monitor, and
// save the configuration.
package wizard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lox/riverwatch/internal/config"
	"github.com/lox/riverwatch/internal/geocode"
	"github.com/lox/riverwatch/internal/ingest"
	"github.com/lox/riverwatch/internal/models"
	"github.com/lox/riverwatch/internal/report"
)

const rule = "--------------------------------------------------------------------------------"

// Geocoder resolves a free-form address. *geocode.Client is the real one.
type Geocoder interface {
	Forward(ctx context.Context, address string) (geocode.Result, bool, error)
}

// GaugeFinder searches the site inventory and previews recent data.
// *ingest.NWIS is the real one.
type GaugeFinder interface {
	FindSites(ctx context.Context, lat, lon, radiusMiles float64) ([]models.Site, error)
	FetchCurrent(ctx context.Context, siteNo string) ([]models.Reading, error)
}

type Wizard struct {
	in       *bufio.Scanner
	out      io.Writer
	geocoder Geocoder
	finder   GaugeFinder
	unit     string
}

func New(in io.Reader, out io.Writer, geocoder Geocoder, finder GaugeFinder, unit string) *Wizard {
	return &Wizard{
		in:       bufio.NewScanner(in),
		out:      out,
		geocoder: geocoder,
		finder:   finder,
		unit:     unit,
	}
}

// Run walks the user through setup and saves the result to cfgPath.
// Returns false when the user cancelled or selected nothing; an empty
// config is still written in that case so the file exists to edit.
func (w *Wizard) Run(ctx context.Context, cfgPath string) (bool, error) {
	fmt.Fprintln(w.out, "RIVER LEVEL MONITOR - SETUP")
	fmt.Fprintln(w.out, "\nThis will help you configure your water monitoring system.")
	fmt.Fprintf(w.out, "Configuration will be saved to: %s\n", cfgPath)

	cfg := config.Default()

	lat, lon, ok := w.askLocation(ctx)
	if ok {
		cfg.Location.Latitude = &lat
		cfg.Location.Longitude = &lon
	}

	var selected []string
	if ok {
		radius := w.askRadius()
		cfg.SearchRadiusMiles = radius

		fmt.Fprintf(w.out, "\nSearching for gauges within %.0f miles...\n", radius)
		sites, err := w.finder.FindSites(ctx, lat, lon, radius)
		if err != nil {
			return false, fmt.Errorf("find gauges: %w", err)
		}
		if len(sites) == 0 {
			fmt.Fprintln(w.out, "No active gauges found in this area.")
		} else {
			fmt.Fprintf(w.out, "Found %d active stream gauges.\n", len(sites))
			selected = w.selectGauges(ctx, sites)
			if selected == nil {
				fmt.Fprintln(w.out, "\nSetup cancelled.")
				return false, nil
			}
		}
	} else {
		fmt.Fprintln(w.out, "\nNo location specified. Add gauge numbers to the config manually.")
		fmt.Fprintln(w.out, "Find gauges at: https://waterdata.usgs.gov/")
	}

	cfg.Sites = selected

	if len(selected) > 0 {
		fmt.Fprintf(w.out, "\nSelected %d gauge(s):\n", len(selected))
		for _, siteNo := range selected {
			fmt.Fprintf(w.out, "  - %s\n", siteNo)
		}
		if !w.confirm("\nSave this configuration? (y/n): ") {
			fmt.Fprintln(w.out, "Configuration not saved.")
			return false, nil
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return false, fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(w.out, "\nConfiguration saved to %s\n", cfgPath)

	return len(selected) > 0, nil
}

func (w *Wizard) askLocation(ctx context.Context) (lat, lon float64, ok bool) {
	fmt.Fprintf(w.out, "\n%s\nSTEP 1: LOCATION\n%s\n", rule, rule)
	fmt.Fprintln(w.out, "\nHow would you like to specify your location?")
	fmt.Fprintln(w.out, "  [1] Enter an address or city")
	fmt.Fprintln(w.out, "  [2] Enter latitude/longitude coordinates")
	fmt.Fprintln(w.out, "  [3] Skip (configure manually later)")

	switch w.prompt("\nYour choice (1-3): ") {
	case "1":
		address := w.prompt("\nEnter address or location: ")
		if address == "" {
			return 0, 0, false
		}
		result, found, err := w.geocoder.Forward(ctx, address)
		if err != nil {
			fmt.Fprintf(w.out, "Error geocoding address: %v\n", err)
			return 0, 0, false
		}
		if !found {
			fmt.Fprintln(w.out, "Location not found.")
			return 0, 0, false
		}
		fmt.Fprintf(w.out, "Found: %s\n", result.DisplayName)
		return result.Latitude, result.Longitude, true

	case "2":
		lat, err := strconv.ParseFloat(w.prompt("\nEnter latitude: "), 64)
		if err != nil {
			fmt.Fprintln(w.out, "Invalid coordinates.")
			return 0, 0, false
		}
		lon, err := strconv.ParseFloat(w.prompt("Enter longitude: "), 64)
		if err != nil {
			fmt.Fprintln(w.out, "Invalid coordinates.")
			return 0, 0, false
		}
		fmt.Fprintf(w.out, "Location set to: %.4f, %.4f\n", lat, lon)
		return lat, lon, true
	}

	return 0, 0, false
}

func (w *Wizard) askRadius() float64 {
	fmt.Fprintf(w.out, "\n%s\nSTEP 2: SEARCH RADIUS\n%s\n", rule, rule)

	input := w.prompt("\nSearch radius in miles (default: 50): ")
	if input == "" {
		return 50
	}
	radius, err := strconv.ParseFloat(input, 64)
	if err != nil || radius <= 0 {
		fmt.Fprintln(w.out, "Using default radius of 50 miles.")
		return 50
	}
	return radius
}

// selectGauges lists the found gauges with a recent-value preview and
// reads a selection. Returns nil when the user quits.
func (w *Wizard) selectGauges(ctx context.Context, sites []models.Site) []string {
	fmt.Fprintf(w.out, "\n%s\nSTEP 3: SELECT GAUGES\n%s\n", rule, rule)

	previews := make(map[string]string, len(sites))
	for _, site := range sites {
		readings, err := w.finder.FetchCurrent(ctx, site.SiteNo)
		if err != nil {
			previews[site.SiteNo] = "Data unavailable"
			continue
		}
		previews[site.SiteNo] = report.FormatPreview(ingest.Latest(readings), w.unit)
	}
	report.PrintSiteList(w.out, sites, previews)

	fmt.Fprintln(w.out, "\nEnter the numbers of gauges to monitor (comma-separated).")
	fmt.Fprintln(w.out, "Examples: '1,3,5' or '1-3' or 'all' or 'q' to quit")

	for {
		input := w.prompt("\nYour selection: ")

		indices, quit, err := ParseSelection(input, len(sites))
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintf(w.out, "Invalid input: %v\n", err)
			continue
		}
		if len(indices) == 0 {
			fmt.Fprintln(w.out, "No valid selections made.")
			continue
		}

		selected := make([]string, 0, len(indices))
		for _, idx := range indices {
			selected = append(selected, sites[idx-1].SiteNo)
		}
		return selected
	}
}

// ParseSelection parses a gauge selection against a list of n entries.
// Accepts comma-separated 1-based indexes ("1,3,5"), ranges ("1-3"),
// "all", and "q" to quit. Duplicates are collapsed, order of first
// mention is kept, and out-of-range indexes are an error.
func ParseSelection(input string, n int) (indices []int, quit bool, err error) {
	input = strings.TrimSpace(strings.ToLower(input))

	switch input {
	case "q":
		return nil, true, nil
	case "all":
		indices = make([]int, n)
		for i := range indices {
			indices[i] = i + 1
		}
		return indices, false, nil
	case "":
		return nil, false, fmt.Errorf("empty selection")
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, false, fmt.Errorf("bad range start %q", lo)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, false, fmt.Errorf("bad range end %q", hi)
			}
			if start > end {
				return nil, false, fmt.Errorf("range %s is backwards", part)
			}
			for i := start; i <= end; i++ {
				if i < 1 || i > n {
					return nil, false, fmt.Errorf("selection %d out of range 1-%d", i, n)
				}
				if !seen[i] {
					seen[i] = true
					indices = append(indices, i)
				}
			}
			continue
		}

		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, false, fmt.Errorf("bad selection %q", part)
		}
		if i < 1 || i > n {
			return nil, false, fmt.Errorf("selection %d out of range 1-%d", i, n)
		}
		if !seen[i] {
			seen[i] = true
			indices = append(indices, i)
		}
	}

	return indices, false, nil
}

func (w *Wizard) prompt(msg string) string {
	fmt.Fprint(w.out, msg)
	if !w.in.Scan() {
		return ""
	}
	return strings.TrimSpace(w.in.Text())
}

func (w *Wizard) confirm(msg string) bool {
	return strings.EqualFold(w.prompt(msg), "y")
}
