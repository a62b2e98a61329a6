package ingest

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lox/riverwatch/internal/models"
)

// milesPerDegree approximates one degree of latitude in miles, used to
// turn a radius into a bounding box the way the NWIS site service
// expects.
const milesPerDegree = 69.0

// FindSites queries the NWIS site inventory for active gauges with
// daily values for the client's parameter code within radiusMiles of
// the given point.
func (n *NWIS) FindSites(ctx context.Context, lat, lon, radiusMiles float64) ([]models.Site, error) {
	radiusDD := radiusMiles / milesPerDegree
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
		lon-radiusDD, lat-radiusDD, lon+radiusDD, lat+radiusDD)

	params := url.Values{
		"format":        {"rdb"},
		"bBox":          {bbox},
		"parameterCd":   {n.parameterCd},
		"siteType":      {"ST"},
		"siteStatus":    {"active"},
		"hasDataTypeCd": {"dv"},
	}
	fullURL := fmt.Sprintf("%s/nwis/site/?%s", n.baseURL, params.Encode())

	body, err := n.get(ctx, fullURL, "", "site")
	if err != nil {
		return nil, err
	}

	sites, err := parseSiteRDB(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse site inventory: %w", err)
	}
	return sites, nil
}

// parseSiteRDB reads the tab-delimited RDB format the site service
// returns: comment lines, a header row naming columns, a column-width
// row, then data rows.
func parseSiteRDB(body string) ([]models.Site, error) {
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var cols map[string]int
	var sites []models.Site
	sawWidths := false

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")

		if cols == nil {
			cols = make(map[string]int, len(fields))
			for i, name := range fields {
				cols[name] = i
			}
			if _, ok := cols["site_no"]; !ok {
				return nil, fmt.Errorf("header row missing site_no column")
			}
			continue
		}

		// The row after the header gives column widths ("5s", "15s"...).
		if !sawWidths {
			sawWidths = true
			continue
		}

		site := models.Site{
			SiteNo: fieldAt(fields, cols, "site_no"),
			Name:   fieldAt(fields, cols, "station_nm"),
			Active: true,
		}
		if site.SiteNo == "" {
			continue
		}
		if v, err := strconv.ParseFloat(fieldAt(fields, cols, "dec_lat_va"), 64); err == nil {
			site.Latitude = v
		}
		if v, err := strconv.ParseFloat(fieldAt(fields, cols, "dec_long_va"), 64); err == nil {
			site.Longitude = v
		}
		sites = append(sites, site)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return sites, nil
}

func fieldAt(fields []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}
