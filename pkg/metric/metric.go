// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the serving engine's instrumentation.
type Metrics struct {
	// Serving outcomes
	ServeAttempts *prometheus.CounterVec
	AdsServed     *prometheus.CounterVec
	EventsFired   *prometheus.CounterVec

	// Pipeline narrowing
	StageCandidates *prometheus.HistogramVec

	// Performance
	ServeDuration prometheus.Histogram
}

// NewMetrics creates and registers the metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ServeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adserve",
			Name:      "serve_attempts_total",
			Help:      "Serving attempts by ad type and outcome",
		}, []string{"ad_type", "outcome"}),
		AdsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adserve",
			Name:      "ads_served_total",
			Help:      "Ads served by ad type and segment",
		}, []string{"ad_type", "segment"}),
		EventsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adserve",
			Name:      "ad_events_total",
			Help:      "Ad lifecycle events recorded by confirmation type",
		}, []string{"confirmation_type"}),
		StageCandidates: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adserve",
			Name:      "stage_candidates",
			Help:      "Candidates remaining after each pipeline stage",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"stage"}),
		ServeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "adserve",
			Name:      "serve_duration_seconds",
			Help:      "End to end serving attempt latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.ServeAttempts, m.AdsServed, m.EventsFired, m.StageCandidates, m.ServeDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NopMetrics returns metrics backed by an unexported registry, for tests
// and embedders that do not scrape.
func NopMetrics() *Metrics {
	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		panic(err)
	}
	return m
}
