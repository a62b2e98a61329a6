package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/riverwatch/internal/httputil"
	"github.com/lox/riverwatch/internal/metrics"
	"github.com/lox/riverwatch/internal/models"
)

const (
	// DefaultBaseURL is the USGS water services root.
	DefaultBaseURL = "https://waterservices.usgs.gov"

	// NoDataValue is the sentinel NWIS uses for missing observations.
	NoDataValue = -999999.0

	// CurrentWindowDays is how far back the instantaneous-value fetch
	// looks for a recent reading.
	CurrentWindowDays = 7
)

// NWIS is a client for the USGS National Water Information System
// water services (instantaneous values, daily values, site inventory).
type NWIS struct {
	baseURL     string
	client      *http.Client
	parameterCd string
}

// NewNWIS returns a client for the given parameter code (00060 is
// discharge in cubic feet per second).
func NewNWIS(parameterCd string) *NWIS {
	return &NWIS{
		baseURL:     DefaultBaseURL,
		client:      httputil.NewClient(),
		parameterCd: parameterCd,
	}
}

// NewNWISWithBaseURL is used by tests to point the client at a local server.
func NewNWISWithBaseURL(baseURL, parameterCd string) *NWIS {
	c := NewNWIS(parameterCd)
	c.baseURL = baseURL
	return c
}

// WaterML 1.1 JSON response types. Only the fields we read.

type waterMLResponse struct {
	Value struct {
		TimeSeries []waterMLSeries `json:"timeSeries"`
	} `json:"value"`
}

type waterMLSeries struct {
	SourceInfo struct {
		SiteName string `json:"siteName"`
		SiteCode []struct {
			Value string `json:"value"`
		} `json:"siteCode"`
	} `json:"sourceInfo"`
	Variable struct {
		NoDataValue float64 `json:"noDataValue"`
	} `json:"variable"`
	Values []struct {
		Value []waterMLPoint `json:"value"`
	} `json:"values"`
}

type waterMLPoint struct {
	Value      string   `json:"value"`
	Qualifiers []string `json:"qualifiers"`
	DateTime   string   `json:"dateTime"`
}

// FetchCurrent returns the instantaneous readings for the trailing
// 7-day window, oldest first. An empty slice with a nil error means
// the site reported no recent data.
func (n *NWIS) FetchCurrent(ctx context.Context, siteNo string) ([]models.Reading, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -CurrentWindowDays)
	return n.fetchSeries(ctx, "iv", siteNo, start, end)
}

// FetchDaily returns the daily-value series for the given date range,
// oldest first. This is the long-run statistical baseline.
func (n *NWIS) FetchDaily(ctx context.Context, siteNo string, start, end time.Time) ([]models.Reading, error) {
	return n.fetchSeries(ctx, "dv", siteNo, start, end)
}

func (n *NWIS) fetchSeries(ctx context.Context, endpoint, siteNo string, start, end time.Time) ([]models.Reading, error) {
	params := url.Values{
		"format":      {"json"},
		"sites":       {siteNo},
		"parameterCd": {n.parameterCd},
		"startDT":     {start.Format("2006-01-02")},
		"endDT":       {end.Format("2006-01-02")},
	}
	fullURL := fmt.Sprintf("%s/nwis/%s/?%s", n.baseURL, endpoint, params.Encode())

	body, err := n.get(ctx, fullURL, siteNo, endpoint)
	if err != nil {
		return nil, err
	}

	var data waterMLResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal %s response: %w", endpoint, err)
	}

	return parseWaterML(&data, siteNo), nil
}

func (n *NWIS) get(ctx context.Context, fullURL, siteNo, endpoint string) ([]byte, error) {
	var body []byte
	started := time.Now()

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", endpoint, err)
		}
		defer resp.Body.Close()

		metrics.NWISAPICallsTotal.WithLabelValues(siteNo, endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("fetch %s: status %d", endpoint, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(b))))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	metrics.NWISAPILatency.WithLabelValues(siteNo, endpoint).Observe(time.Since(started).Seconds())
	return body, nil
}

// parseWaterML flattens a WaterML response into readings. Missing and
// unparseable values come through as NaN so downstream statistics can
// drop them uniformly.
func parseWaterML(data *waterMLResponse, siteNo string) []models.Reading {
	var readings []models.Reading

	for _, series := range data.Value.TimeSeries {
		noData := series.Variable.NoDataValue
		if noData == 0 {
			noData = NoDataValue
		}

		for _, block := range series.Values {
			for _, pt := range block.Value {
				observedAt, err := parseWaterMLTime(pt.DateTime)
				if err != nil {
					continue
				}

				value := math.NaN()
				if v, err := strconv.ParseFloat(pt.Value, 64); err == nil && v != noData {
					value = v
				}

				readings = append(readings, models.Reading{
					SiteNo:     siteNo,
					ObservedAt: observedAt,
					Value:      value,
					Qualifiers: strings.Join(pt.Qualifiers, ","),
				})
			}
		}
	}

	return readings
}

// waterMLTimeLayouts covers the timestamp shapes NWIS emits:
// zone-offset instantaneous values and zoneless daily values.
var waterMLTimeLayouts = []string{
	"2006-01-02T15:04:05.000-07:00",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseWaterMLTime(s string) (time.Time, error) {
	for _, layout := range waterMLTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Latest returns the most recent reading with a usable value, or nil
// when the window has no usable readings at all.
func Latest(readings []models.Reading) *models.Reading {
	var latest *models.Reading
	for i := range readings {
		r := &readings[i]
		if math.IsNaN(r.Value) {
			continue
		}
		if latest == nil || r.ObservedAt.After(latest.ObservedAt) {
			latest = r
		}
	}
	return latest
}
