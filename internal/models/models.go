package models

import (
	"database/sql"
	"time"
)

// Site is a monitored USGS stream gauge.
type Site struct {
	SiteNo    string
	Name      string
	Latitude  float64
	Longitude float64
	Active    bool
}

// Reading is a single timestamped gauge value. Value is NaN when NWIS
// reports its no-data sentinel or the raw value does not parse.
type Reading struct {
	SiteNo     string
	ObservedAt time.Time
	Value      float64
	Qualifiers string
}

// DailyValue is one cached row of the long-run daily series for a site.
type DailyValue struct {
	ID           int64
	SiteNo       string
	Date         time.Time
	Value        sql.NullFloat64
	Qualifiers   string
	QualityFlags string
	FetchedAt    time.Time
}

// SiteCondition is the per-site evaluation result for one monitoring
// run. Built once by the evaluator and immutable afterwards.
type SiteCondition struct {
	SiteNo           string          `json:"site_no"`
	SiteName         string          `json:"site_name,omitempty"`
	CurrentValue     float64         `json:"current_value"`
	CurrentTime      time.Time       `json:"current_time"`
	Percentile       sql.NullFloat64 `json:"-"`
	Severity         string          `json:"severity"`
	Description      string          `json:"description"`
	HistoricalMin    float64         `json:"historical_min"`
	HistoricalMax    float64         `json:"historical_max"`
	HistoricalMedian float64         `json:"historical_median"`
	SampleSize       int             `json:"sample_size"`
	EvaluatedAt      time.Time       `json:"evaluated_at"`
}

// FetchLog records the outcome of one NWIS fetch for diagnostics.
type FetchLog struct {
	ID            int64
	SiteNo        string
	Endpoint      string
	StartedAt     time.Time
	Success       bool
	HTTPStatus    sql.NullInt64
	RecordsParsed sql.NullInt64
	ErrorMessage  sql.NullString
}
