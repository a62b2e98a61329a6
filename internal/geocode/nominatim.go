// Package geocode resolves free-form addresses to coordinates using
// the Nominatim (OpenStreetMap) search API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lox/riverwatch/internal/httputil"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim usage policy requires an identifying User-Agent.
const userAgent = "riverwatch/1.0"

// Result is a resolved location.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		client:  httputil.NewClient(),
	}
}

// NewClientWithBaseURL is used by tests to point at a local server.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  httputil.NewClient(),
	}
}

// Forward geocodes an address to coordinates. Returns ok=false when
// the address resolves to nothing, which is not an error.
func (c *Client) Forward(ctx context.Context, address string) (Result, bool, error) {
	params := url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}
	fullURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Result{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Result{}, false, fmt.Errorf("geocode: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var places []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Result{}, false, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return Result{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Result{}, false, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Result{}, false, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}

	return Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: places[0].DisplayName,
	}, true, nil
}
