// Package monitor orchestrates per-site condition evaluation: latest
// reading from the recent window, historical baseline from the cache
// (topped up from NWIS), percentile rank and severity classification.
package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lox/riverwatch/internal/flow"
	"github.com/lox/riverwatch/internal/ingest"
	"github.com/lox/riverwatch/internal/metrics"
	"github.com/lox/riverwatch/internal/models"
	"github.com/lox/riverwatch/internal/store"
)

// DataSource provides gauge time series. *ingest.NWIS is the real one.
type DataSource interface {
	FetchCurrent(ctx context.Context, siteNo string) ([]models.Reading, error)
	FetchDaily(ctx context.Context, siteNo string, start, end time.Time) ([]models.Reading, error)
}

type Evaluator struct {
	source     DataSource
	store      *store.Store
	sites      []string
	thresholds flow.Thresholds
	startYear  int
}

func New(source DataSource, st *store.Store, sites []string, thresholds flow.Thresholds, startYear int) *Evaluator {
	return &Evaluator{
		source:     source,
		store:      st,
		sites:      sites,
		thresholds: thresholds,
		startYear:  startYear,
	}
}

// CheckAll evaluates every configured site. Sites with no data are
// skipped; a failure at one site never aborts the rest of the run.
func (e *Evaluator) CheckAll(ctx context.Context) []models.SiteCondition {
	var results []models.SiteCondition

	for _, siteNo := range e.sites {
		cond, err := e.CheckSite(ctx, siteNo)
		if err != nil {
			log.Printf("monitor: site %s: %v", siteNo, err)
			continue
		}
		if cond == nil {
			log.Printf("monitor: site %s: no data available", siteNo)
			continue
		}
		results = append(results, *cond)
	}

	return results
}

// CheckSite evaluates one site. A nil condition with a nil error means
// the site had no usable current reading and the caller should skip it.
// An UNKNOWN severity (historical series present but empty after
// filtering) is still a result, not a skip.
func (e *Evaluator) CheckSite(ctx context.Context, siteNo string) (*models.SiteCondition, error) {
	current, err := e.fetchCurrent(ctx, siteNo)
	if err != nil {
		metrics.SitesSkipped.WithLabelValues(siteNo, "current_fetch_failed").Inc()
		return nil, fmt.Errorf("current data: %w", err)
	}

	latest := ingest.Latest(current)
	if latest == nil {
		metrics.SitesSkipped.WithLabelValues(siteNo, "no_current_reading").Inc()
		return nil, nil
	}

	historical, err := e.historicalValues(ctx, siteNo)
	if err != nil {
		metrics.SitesSkipped.WithLabelValues(siteNo, "history_unavailable").Inc()
		return nil, fmt.Errorf("historical data: %w", err)
	}

	percentile := flow.PercentileRank(historical, latest.Value)
	severity, description := flow.Classify(percentile, e.thresholds)

	cond := &models.SiteCondition{
		SiteNo:       siteNo,
		CurrentValue: latest.Value,
		CurrentTime:  latest.ObservedAt,
		Percentile:   percentile,
		Severity:     string(severity),
		Description:  description,
		EvaluatedAt:  time.Now().UTC(),
	}

	if summary, ok := flow.Summarize(historical); ok {
		cond.HistoricalMin = summary.Min
		cond.HistoricalMax = summary.Max
		cond.HistoricalMedian = summary.Median
		cond.SampleSize = summary.N
	}

	if site, err := e.store.GetSite(siteNo); err == nil && site != nil {
		cond.SiteName = site.Name
	}

	metrics.SitesEvaluated.WithLabelValues(siteNo, cond.Severity).Inc()
	if percentile.Valid {
		metrics.SitePercentile.WithLabelValues(siteNo).Set(percentile.Float64)
	}

	return cond, nil
}

func (e *Evaluator) fetchCurrent(ctx context.Context, siteNo string) ([]models.Reading, error) {
	started := time.Now().UTC()
	readings, err := e.source.FetchCurrent(ctx, siteNo)
	e.logFetch(siteNo, "iv", started, len(readings), err)
	return readings, err
}

// historicalValues returns the long-run daily series for percentile
// computation, refreshing the cache tail from NWIS first. A fetch
// failure is tolerated when the cache already holds data; with an
// empty cache it means the historical sample could not be obtained at
// all.
func (e *Evaluator) historicalValues(ctx context.Context, siteNo string) ([]float64, error) {
	since := time.Date(e.startYear, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	fetchStart := since
	cached := false
	if last, ok, err := e.store.LatestDailyDate(siteNo); err != nil {
		return nil, err
	} else if ok {
		cached = true
		// Refetch a few trailing days so provisional values converge
		// on approved ones.
		fetchStart = last.AddDate(0, 0, -3)
	}

	if fetchStart.Before(now) {
		started := time.Now().UTC()
		readings, err := e.source.FetchDaily(ctx, siteNo, fetchStart, now)
		e.logFetch(siteNo, "dv", started, len(readings), err)

		switch {
		case err != nil && !cached:
			metrics.HistoryCacheHits.WithLabelValues(siteNo, "miss").Inc()
			return nil, err
		case err != nil:
			metrics.HistoryCacheHits.WithLabelValues(siteNo, "stale").Inc()
			log.Printf("monitor: site %s: history refresh failed, using cache: %v", siteNo, err)
		default:
			if cached {
				metrics.HistoryCacheHits.WithLabelValues(siteNo, "hit").Inc()
			} else {
				metrics.HistoryCacheHits.WithLabelValues(siteNo, "miss").Inc()
			}
			flags := make(map[time.Time][]string, len(readings))
			for i := range readings {
				if fl := ingest.ValidateReading(&readings[i]); len(fl) > 0 {
					flags[readings[i].ObservedAt] = fl
				}
			}
			if err := e.store.UpsertDailyValues(siteNo, readings, flags); err != nil {
				return nil, fmt.Errorf("cache daily values: %w", err)
			}
		}
	}

	return e.store.HistoricalValues(siteNo, since)
}

func (e *Evaluator) logFetch(siteNo, endpoint string, started time.Time, records int, err error) {
	fl := models.FetchLog{
		SiteNo:        siteNo,
		Endpoint:      endpoint,
		StartedAt:     started,
		Success:       err == nil,
		RecordsParsed: sql.NullInt64{Int64: int64(records), Valid: err == nil},
	}
	if err != nil {
		fl.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	}
	if logErr := e.store.RecordFetch(fl); logErr != nil {
		log.Printf("monitor: record fetch log: %v", logErr)
	}
}
