package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const siteRDBFixture = `#
# US Geological Survey
# retrieved: 2026-08-29 10:00:00 EDT
#
agency_cd	site_no	station_nm	site_tp_cd	dec_lat_va	dec_long_va	coord_acy_cd	dec_coord_datum_cd	alt_va	alt_acy_va	alt_datum_cd	huc_cd
5s	15s	50s	7s	16s	16s	1s	10s	8s	3s	10s	16s
USGS	01646500	POTOMAC RIVER NEAR WASH, DC LITTLE FALLS PUMP STA	ST	38.94977778	-77.12763889	S	NAD83	 37.20	 .1	NAVD88	02070008
USGS	01648000	ROCK CREEK AT SHERRILL DRIVE WASHINGTON, DC	ST	38.97538889	-77.04121667	S	NAD83	 150	 .1	NAVD88	02070010
`

func TestParseSiteRDB(t *testing.T) {
	sites, err := parseSiteRDB(siteRDBFixture)
	if err != nil {
		t.Fatalf("parseSiteRDB: %v", err)
	}
	if len(sites) != 2 {
		t.Fatalf("len(sites) = %d, want 2", len(sites))
	}

	if sites[0].SiteNo != "01646500" {
		t.Errorf("SiteNo = %q, want 01646500", sites[0].SiteNo)
	}
	if !strings.HasPrefix(sites[0].Name, "POTOMAC RIVER") {
		t.Errorf("Name = %q", sites[0].Name)
	}
	if sites[0].Latitude < 38.9 || sites[0].Latitude > 39.0 {
		t.Errorf("Latitude = %v", sites[0].Latitude)
	}
	if sites[0].Longitude > -77.0 || sites[0].Longitude < -77.2 {
		t.Errorf("Longitude = %v", sites[0].Longitude)
	}
	if !sites[0].Active {
		t.Error("parsed sites should be active")
	}
}

func TestParseSiteRDB_MissingHeader(t *testing.T) {
	if _, err := parseSiteRDB("agency_cd\tstation_nm\n5s\t50s\nUSGS\tX\n"); err == nil {
		t.Error("expected error for header without site_no")
	}
}

func TestParseSiteRDB_Empty(t *testing.T) {
	sites, err := parseSiteRDB("# nothing here\n")
	if err != nil {
		t.Fatalf("parseSiteRDB: %v", err)
	}
	if len(sites) != 0 {
		t.Errorf("len(sites) = %d, want 0", len(sites))
	}
}

func TestFindSites(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("format") != "rdb" {
			t.Errorf("format = %q, want rdb", q.Get("format"))
		}
		if q.Get("hasDataTypeCd") != "dv" {
			t.Errorf("hasDataTypeCd = %q, want dv", q.Get("hasDataTypeCd"))
		}
		// 25 miles is ~0.362 degrees; the box should straddle the point.
		bbox := q.Get("bBox")
		if !strings.Contains(bbox, ",") {
			t.Errorf("bBox = %q", bbox)
		}
		w.Write([]byte(siteRDBFixture))
	}))
	defer server.Close()

	client := NewNWISWithBaseURL(server.URL, "00060")
	sites, err := client.FindSites(context.Background(), 38.95, -77.1, 25)
	if err != nil {
		t.Fatalf("FindSites: %v", err)
	}
	if len(sites) != 2 {
		t.Errorf("len(sites) = %d, want 2", len(sites))
	}
}
