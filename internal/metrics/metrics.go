package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NWISAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverwatch_nwis_api_calls_total",
			Help: "Total USGS NWIS API calls",
		},
		[]string{"site", "endpoint", "status"},
	)

	NWISAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riverwatch_nwis_api_latency_seconds",
			Help:    "NWIS API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"site", "endpoint"},
	)

	SitesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverwatch_sites_evaluated_total",
			Help: "Total per-site condition evaluations",
		},
		[]string{"site", "severity"},
	)

	SitesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverwatch_sites_skipped_total",
			Help: "Site evaluations skipped because no data was available",
		},
		[]string{"site", "reason"},
	)

	SitePercentile = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "riverwatch_site_percentile",
			Help: "Latest percentile rank of current discharge per site",
		},
		[]string{"site"},
	)

	HistoryCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riverwatch_history_cache_hits_total",
			Help: "Historical series requests answered from the local cache",
		},
		[]string{"site", "result"},
	)
)
