// Package store is the local SQLite cache: the gauge roster, the
// long-run daily-value series per site, and a log of NWIS fetches.
// Caching the historical series means a monitoring run only fetches
// the uncovered tail instead of decades of daily values every time.
package store

import (
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/lox/riverwatch/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertSite(site models.Site) error {
	_, err := s.db.Exec(`
		INSERT INTO sites (site_no, name, latitude, longitude, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(site_no) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			active = excluded.active
	`, site.SiteNo, site.Name, site.Latitude, site.Longitude, site.Active)
	return err
}

func (s *Store) GetSite(siteNo string) (*models.Site, error) {
	row := s.db.QueryRow(`SELECT site_no, name, latitude, longitude, active FROM sites WHERE site_no = ?`, siteNo)

	var site models.Site
	err := row.Scan(&site.SiteNo, &site.Name, &site.Latitude, &site.Longitude, &site.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *Store) GetActiveSites() ([]models.Site, error) {
	rows, err := s.db.Query(`SELECT site_no, name, latitude, longitude, active FROM sites WHERE active = TRUE ORDER BY site_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		var site models.Site
		if err := rows.Scan(&site.SiteNo, &site.Name, &site.Latitude, &site.Longitude, &site.Active); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// UpsertDailyValues caches a batch of daily readings. Re-fetched dates
// replace the cached row so provisional values converge on approved
// ones.
func (s *Store) UpsertDailyValues(siteNo string, readings []models.Reading, flags map[time.Time][]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_values (site_no, date, value, qualifiers, quality_flags, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_no, date) DO UPDATE SET
			value = excluded.value,
			qualifiers = excluded.qualifiers,
			quality_flags = excluded.quality_flags,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range readings {
		date := r.ObservedAt.Format("2006-01-02")

		value := sql.NullFloat64{}
		if !math.IsNaN(r.Value) {
			value = sql.NullFloat64{Float64: r.Value, Valid: true}
		}

		flagsJSON := ""
		if fl, ok := flags[r.ObservedAt]; ok && len(fl) > 0 {
			flagsJSON = joinFlags(fl)
		}

		if _, err := stmt.Exec(siteNo, date, value, r.Qualifiers, flagsJSON, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// HistoricalValues returns the cached series for a site from the given
// date onward, ordered by date. Rows with no value come back as NaN so
// the statistics layer can drop them the same way it drops NWIS
// no-data sentinels.
func (s *Store) HistoricalValues(siteNo string, since time.Time) ([]float64, error) {
	rows, err := s.db.Query(`
		SELECT value FROM daily_values
		WHERE site_no = ? AND date >= ?
		ORDER BY date ASC
	`, siteNo, since.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid {
			values = append(values, v.Float64)
		} else {
			values = append(values, math.NaN())
		}
	}
	return values, rows.Err()
}

// LatestDailyDate returns the most recent cached date for a site, or
// ok=false when the cache has nothing for it.
func (s *Store) LatestDailyDate(siteNo string) (time.Time, bool, error) {
	var date sql.NullString
	err := s.db.QueryRow(`SELECT MAX(date) FROM daily_values WHERE site_no = ?`, siteNo).Scan(&date)
	if err != nil {
		return time.Time{}, false, err
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}

	t, err := time.Parse("2006-01-02", date.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// DailyValueCount returns how many rows are cached for a site.
func (s *Store) DailyValueCount(siteNo string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM daily_values WHERE site_no = ?`, siteNo).Scan(&n)
	return n, err
}

func (s *Store) RecordFetch(fl models.FetchLog) error {
	_, err := s.db.Exec(`
		INSERT INTO fetch_log (site_no, endpoint, started_at, success, http_status, records_parsed, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, fl.SiteNo, fl.Endpoint, fl.StartedAt, fl.Success, fl.HTTPStatus, fl.RecordsParsed, fl.ErrorMessage)
	return err
}

// RecentFetches returns the latest fetch log entries, newest first.
func (s *Store) RecentFetches(limit int) ([]models.FetchLog, error) {
	rows, err := s.db.Query(`
		SELECT id, site_no, endpoint, started_at, success, http_status, records_parsed, error_message
		FROM fetch_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.FetchLog
	for rows.Next() {
		var fl models.FetchLog
		var siteNo sql.NullString
		if err := rows.Scan(&fl.ID, &siteNo, &fl.Endpoint, &fl.StartedAt, &fl.Success, &fl.HTTPStatus, &fl.RecordsParsed, &fl.ErrorMessage); err != nil {
			return nil, err
		}
		fl.SiteNo = siteNo.String
		logs = append(logs, fl)
	}
	return logs, rows.Err()
}

func joinFlags(flags []string) string {
	return strings.Join(flags, ",")
}
