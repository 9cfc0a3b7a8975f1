package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the monitoring engine. Exposition is wired in cmd.
var (
	ActivitiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rotationwatch_activities_total",
		Help: "Rotation activities processed.",
	})

	ActivityFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rotationwatch_activity_failures_total",
		Help: "Failed rotation attempts processed.",
	})

	DetectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rotationwatch_detections_total",
		Help: "Detections produced, by pattern and severity.",
	}, []string{"pattern", "severity"})

	CorrelationsAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rotationwatch_correlations_analyzed_total",
		Help: "Correlation bundles analyzed.",
	})

	ActiveThreats = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rotationwatch_active_threats",
		Help: "Detections currently held in the threat store.",
	})

	SweepRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rotationwatch_sweep_removed_total",
		Help: "Entries removed by retention sweeps, by kind.",
	}, []string{"kind"})

	IndicatorRuleMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rotationwatch_indicator_rule_matches_total",
		Help: "Indicator rule matches attached to activities.",
	})

	ResponseActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rotationwatch_response_actions_total",
		Help: "Remediation actions dispatched, by action and outcome.",
	}, []string{"action", "outcome"})
)
