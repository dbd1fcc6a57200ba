// Package metrics holds the Prometheus collectors for the survey service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FilterPassesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "survey_filter_passes_total",
		Help: "Total number of full filter passes over the household set",
	})
	CriteriaChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_criteria_changes_total",
		Help: "Total number of criteria changes by selector",
	}, []string{"selector"})
	VisibleHouseholds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "survey_visible_households",
		Help: "Household count visible under the current criteria",
	})
	CulledHouseholdsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "survey_culled_households_total",
		Help: "Total number of households removed by load-time culling",
	})
	SourceLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "survey_source_loads_total",
		Help: "Total number of source loads by layer and result",
	}, []string{"layer", "result"})
)

// StatsFunc reports cache counters for the style cache collector.
type StatsFunc func() (name string, entries int, hits, misses int64)

type cacheCollector struct {
	stats   []StatsFunc
	entries *prometheus.Desc
	hits    *prometheus.Desc
	misses  *prometheus.Desc
}

// NewCacheCollector exposes style cache counters. Each StatsFunc is read on
// every scrape.
func NewCacheCollector(stats ...StatsFunc) prometheus.Collector {
	return &cacheCollector{
		stats:   stats,
		entries: prometheus.NewDesc("survey_style_cache_entries", "Entries in a style cache", []string{"cache"}, nil),
		hits:    prometheus.NewDesc("survey_style_cache_hits_total", "Style cache hits", []string{"cache"}, nil),
		misses:  prometheus.NewDesc("survey_style_cache_misses_total", "Style cache misses", []string{"cache"}, nil),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.hits
	ch <- c.misses
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	for _, fn := range c.stats {
		name, entries, hits, misses := fn()
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(entries), name)
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(hits), name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(misses), name)
	}
}

// NewRegistry returns a registry with the package collectors plus extra.
func NewRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		FilterPassesTotal,
		CriteriaChangesTotal,
		VisibleHouseholds,
		CulledHouseholdsTotal,
		SourceLoadsTotal,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
