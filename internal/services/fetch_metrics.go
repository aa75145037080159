package services

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"social-activity-recommender/internal/logging"
)

// FetchMetrics tracks per-source event yield, fallback use, concept cache
// hits and generation outcomes. Values are exported to Prometheus and kept in
// memory for the sources summary endpoint.
type FetchMetrics struct {
	mu                  sync.RWMutex
	sources             map[string]*SourceMetric
	aggregations        int64
	fallbackInvocations int64
	lastUpdated         time.Time

	fetchDuration  *prometheus.HistogramVec
	eventsFetched  *prometheus.CounterVec
	fetchRuns      *prometheus.CounterVec
	fallbacks      prometheus.Counter
	cacheLookups   *prometheus.CounterVec
	generations    *prometheus.CounterVec
	generationTime *prometheus.HistogramVec
}

// SourceMetric tracks metrics for a single event source
type SourceMetric struct {
	Source          string    `json:"source"`
	TotalRuns       int64     `json:"total_runs"`
	EmptyRuns       int64     `json:"empty_runs"`
	TotalEvents     int64     `json:"total_events"`
	AvgEventsPerRun float64   `json:"avg_events_per_run"`
	AvgDurationMs   float64   `json:"avg_duration_ms"`
	YieldRate       float64   `json:"yield_rate"`
	LastNonEmptyRun time.Time `json:"last_non_empty_run"`
}

var (
	globalFetchMetrics *FetchMetrics
	fetchMetricsOnce   sync.Once
)

// GetFetchMetrics returns the process-wide instance registered with the default registry
func GetFetchMetrics() *FetchMetrics {
	fetchMetricsOnce.Do(func() {
		globalFetchMetrics = NewFetchMetrics(prometheus.DefaultRegisterer)
	})
	return globalFetchMetrics
}

// NewFetchMetrics registers the collectors with reg. Collectors that are
// already registered are reused.
func NewFetchMetrics(reg prometheus.Registerer) *FetchMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &FetchMetrics{
		sources:     make(map[string]*SourceMetric),
		lastUpdated: time.Now(),

		fetchDuration: registerCollector(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recommender",
			Subsystem: "events",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent in each event source per aggregation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"})),
		eventsFetched: registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "events",
			Name:      "fetched_total",
			Help:      "Events returned by each source before dedup and filtering.",
		}, []string{"source"})),
		fetchRuns: registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "events",
			Name:      "fetch_runs_total",
			Help:      "Source invocations by outcome.",
		}, []string{"source", "outcome"})),
		fallbacks: registerCollector(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "events",
			Name:      "fallback_invocations_total",
			Help:      "Aggregations that escalated to the fallback source.",
		})),
		cacheLookups: registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "concepts",
			Name:      "cache_lookups_total",
			Help:      "Concept cache lookups by result.",
		}, []string{"tier", "result"})),
		generations: registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "generation",
			Name:      "runs_total",
			Help:      "Recommendation generation attempts by strategy and status.",
		}, []string{"strategy", "status"})),
		generationTime: registerCollector(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recommender",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Time spent generating recommendations per strategy.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		}, []string{"strategy"})),
	}
}

func registerCollector[T prometheus.Collector](reg prometheus.Registerer, collector T) T {
	if err := reg.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return collector
}

// RecordFetch records one source invocation
func (m *FetchMetrics) RecordFetch(source string, events int, duration time.Duration) {
	if m == nil {
		return
	}

	outcome := "events"
	if events == 0 {
		outcome = "empty"
	}
	m.fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.eventsFetched.WithLabelValues(source).Add(float64(events))
	m.fetchRuns.WithLabelValues(source, outcome).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	metric := m.sources[source]
	if metric == nil {
		metric = &SourceMetric{Source: source}
		m.sources[source] = metric
	}
	metric.TotalRuns++
	metric.TotalEvents += int64(events)
	if events == 0 {
		metric.EmptyRuns++
	} else {
		metric.LastNonEmptyRun = time.Now()
	}
	metric.AvgEventsPerRun = float64(metric.TotalEvents) / float64(metric.TotalRuns)
	metric.YieldRate = float64(metric.TotalRuns-metric.EmptyRuns) / float64(metric.TotalRuns)

	durationMs := float64(duration.Nanoseconds()) / 1e6
	if metric.AvgDurationMs == 0 {
		metric.AvgDurationMs = durationMs
	} else {
		// Exponential moving average
		metric.AvgDurationMs = 0.8*metric.AvgDurationMs + 0.2*durationMs
	}
	m.lastUpdated = time.Now()
}

// RecordAggregation counts one aggregation and whether it used the fallback
func (m *FetchMetrics) RecordAggregation(usedFallback bool) {
	if m == nil {
		return
	}
	if usedFallback {
		m.fallbacks.Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregations++
	if usedFallback {
		m.fallbackInvocations++
	}
	m.lastUpdated = time.Now()
}

// RecordCacheLookup counts a concept cache lookup on the given tier
func (m *FetchMetrics) RecordCacheLookup(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(tier, result).Inc()
}

// RecordGeneration records one strategy attempt
func (m *FetchMetrics) RecordGeneration(strategy string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.generations.WithLabelValues(strategy, status).Inc()
	m.generationTime.WithLabelValues(strategy).Observe(duration.Seconds())
}

// GetDashboardMetrics returns the in-memory summary for display
func (m *FetchMetrics) GetDashboardMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sources := make([]SourceMetric, 0, len(m.sources))
	for _, metric := range m.sources {
		sources = append(sources, *metric)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Source < sources[j].Source })

	var fallbackRate float64
	if m.aggregations > 0 {
		fallbackRate = float64(m.fallbackInvocations) / float64(m.aggregations)
	}

	return map[string]interface{}{
		"aggregations": m.aggregations,
		"fallback": map[string]interface{}{
			"invocations": m.fallbackInvocations,
			"rate":        fallbackRate,
		},
		"sources":      sources,
		"last_updated": m.lastUpdated,
	}
}

// LogMetricsSummary logs a summary of current metrics
func (m *FetchMetrics) LogMetricsSummary(logger *logging.Logger) {
	logger = logging.OrNop(logger)

	m.mu.RLock()
	defer m.mu.RUnlock()

	logger.Info("[METRICS] event source summary", "aggregations", m.aggregations, "fallbacks", m.fallbackInvocations, "sources", len(m.sources))
	for _, metric := range m.sources {
		logger.Info("[METRICS] source",
			"source", metric.Source,
			"runs", metric.TotalRuns,
			"yield_rate", metric.YieldRate,
			"avg_events", metric.AvgEventsPerRun,
			"avg_duration_ms", metric.AvgDurationMs,
		)
	}
}
