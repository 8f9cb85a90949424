// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes the experiment aggregates on the Prometheus
// registry as const metrics read from the live cells. The operational
// metrics in internal/metrics describe the engine; these describe the
// experiment arms.
type Collector struct {
	aggregator *Aggregator

	events         *prometheus.Desc
	predictions    *prometheus.Desc
	fallbacks      *prometheus.Desc
	meanEngagement *prometheus.Desc
	meanRisk       *prometheus.Desc
	decisions      *prometheus.Desc
	outcomes       *prometheus.Desc
	meanUplift     *prometheus.Desc
}

// NewCollector builds a collector over the aggregator.
func NewCollector(a *Aggregator) *Collector {
	return &Collector{
		aggregator: a,
		events: prometheus.NewDesc("directrix_experiment_events_total",
			"Events accepted per experiment variant", []string{"variant"}, nil),
		predictions: prometheus.NewDesc("directrix_experiment_predictions_total",
			"Ensemble predictions per experiment variant", []string{"variant"}, nil),
		fallbacks: prometheus.NewDesc("directrix_experiment_fallbacks_total",
			"Fallback decisions per experiment variant", []string{"variant"}, nil),
		meanEngagement: prometheus.NewDesc("directrix_experiment_mean_engagement",
			"Mean predicted engagement per experiment variant", []string{"variant"}, nil),
		meanRisk: prometheus.NewDesc("directrix_experiment_mean_risk",
			"Mean predicted abandonment risk per experiment variant", []string{"variant"}, nil),
		decisions: prometheus.NewDesc("directrix_experiment_decisions_total",
			"Decisions per experiment variant and action", []string{"variant", "action"}, nil),
		outcomes: prometheus.NewDesc("directrix_experiment_outcomes_total",
			"Observed action outcomes per experiment variant and action", []string{"variant", "action"}, nil),
		meanUplift: prometheus.NewDesc("directrix_experiment_mean_uplift",
			"Mean observed engagement uplift per experiment variant and action", []string{"variant", "action"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.events
	ch <- c.predictions
	ch <- c.fallbacks
	ch <- c.meanEngagement
	ch <- c.meanRisk
	ch <- c.decisions
	ch <- c.outcomes
	ch <- c.meanUplift
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, snap := range c.aggregator.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue,
			float64(snap.Events), snap.Variant)
		ch <- prometheus.MustNewConstMetric(c.predictions, prometheus.CounterValue,
			float64(snap.Predictions), snap.Variant)
		ch <- prometheus.MustNewConstMetric(c.fallbacks, prometheus.CounterValue,
			float64(snap.Fallbacks), snap.Variant)
		ch <- prometheus.MustNewConstMetric(c.meanEngagement, prometheus.GaugeValue,
			snap.MeanEngagement, snap.Variant)
		ch <- prometheus.MustNewConstMetric(c.meanRisk, prometheus.GaugeValue,
			snap.MeanRisk, snap.Variant)
		for action, n := range snap.Decisions {
			ch <- prometheus.MustNewConstMetric(c.decisions, prometheus.CounterValue,
				float64(n), snap.Variant, string(action))
		}
		for action, out := range snap.Outcomes {
			ch <- prometheus.MustNewConstMetric(c.outcomes, prometheus.CounterValue,
				float64(out.Observations), snap.Variant, string(action))
			ch <- prometheus.MustNewConstMetric(c.meanUplift, prometheus.GaugeValue,
				out.MeanUplift, snap.Variant, string(action))
		}
	}
}
