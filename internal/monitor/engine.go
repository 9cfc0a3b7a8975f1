package monitor

import (
	"context"
	"time"

	"rotationwatch/internal/logger"
	"rotationwatch/internal/metrics"
	"rotationwatch/internal/response"
	"rotationwatch/pkg/models"
)

// Config controls the monitoring engine.
type Config struct {
	Window           time.Duration // monitoring window for the activity log
	Detectors        DetectorConfig
	RealTimeResponse bool // dispatch responses synchronously from the request path
}

// Monitor is the rotation threat-detection engine. It is shared by many
// in-flight requests; the activity log, threat store, and baseline map
// are independently locked so read-heavy detectors run concurrently with
// unrelated requests and status queries.
type Monitor struct {
	cfg        Config
	recorder   *ActivityRecorder
	baselines  *BaselineTracker
	store      *ThreatStore
	detectors  *detectorSet
	analyzer   *CorrelationAnalyzer
	dispatcher *response.Dispatcher
	now        func() time.Time
}

// New creates a monitoring engine. The dispatcher may be nil when no
// real-time response is wanted.
func New(cfg Config, dispatcher *response.Dispatcher) *Monitor {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	cfg.Detectors = cfg.Detectors.withDefaults()

	recorder := NewActivityRecorder(cfg.Window)
	baselines := NewBaselineTracker()
	m := &Monitor{
		cfg:        cfg,
		recorder:   recorder,
		baselines:  baselines,
		store:      NewThreatStore(),
		analyzer:   NewCorrelationAnalyzer(cfg.Detectors.MinConfidence),
		dispatcher: dispatcher,
		now:        time.Now,
	}
	m.detectors = &detectorSet{
		cfg:       cfg.Detectors,
		recorder:  recorder,
		baselines: baselines,
		now:       time.Now,
	}
	return m
}

// MonitorRotationRequest records one rotation attempt, runs the detector
// battery against the updated window, folds the activity into the user
// baseline, stores any detections, and, when real-time response is
// enabled, dispatches them. Baselines are updated after detection so the
// current activity cannot vouch for itself.
func (m *Monitor) MonitorRotationRequest(ctx context.Context, activity *models.ActivityRecord) []*models.Detection {
	if activity == nil {
		return nil
	}

	m.recorder.Record(activity)
	metrics.ActivitiesTotal.Inc()
	if !activity.Success {
		metrics.ActivityFailuresTotal.Inc()
	}

	detections := m.detectors.Run(activity)

	if activity.UserID != "" {
		m.baselines.Observe(activity.UserID, activity)
	}

	for _, det := range detections {
		m.keep(ctx, det)
	}
	return detections
}

// ProcessCorrelation evaluates one saga bundle for staged attack
// progression and stores the detection through the same path the
// per-request detectors use.
func (m *Monitor) ProcessCorrelation(ctx context.Context, c *models.Correlation) *models.Detection {
	metrics.CorrelationsAnalyzed.Inc()
	det := m.analyzer.Analyze(c)
	if det == nil {
		return nil
	}
	m.keep(ctx, det)
	return det
}

func (m *Monitor) keep(ctx context.Context, det *models.Detection) {
	m.store.Insert(det)
	metrics.DetectionsTotal.WithLabelValues(string(det.Pattern), det.Severity.String()).Inc()
	metrics.ActiveThreats.Set(float64(m.store.Len()))
	logger.Warnf("Threat detected: pattern=%s severity=%s confidence=%.2f user=%s ops=%d",
		det.Pattern, det.Severity, det.Confidence, det.UserID, len(det.InvolvedOperations))

	if m.cfg.RealTimeResponse && m.dispatcher != nil {
		m.dispatcher.Dispatch(ctx, det)
	}
}

// ThreatsForUser resolves the user's recorded operation ids and returns
// every stored detection that involves any of them.
func (m *Monitor) ThreatsForUser(userID string) []*models.Detection {
	if userID == "" {
		return nil
	}
	return m.store.ByOperations(m.recorder.OperationsForUser(userID))
}

// Cleanup purges activity, resolved threats, and stale baselines older
// than the retention horizon. Intended for a periodic external trigger;
// safe to run alongside live detection.
func (m *Monitor) Cleanup(retention time.Duration) {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	cutoff := m.now().Add(-retention)

	activities := m.recorder.Sweep(cutoff)
	threats := m.store.Sweep(cutoff)
	baselines := m.baselines.Sweep(cutoff)

	metrics.SweepRemovedTotal.WithLabelValues("activities").Add(float64(activities))
	metrics.SweepRemovedTotal.WithLabelValues("threats").Add(float64(threats))
	metrics.SweepRemovedTotal.WithLabelValues("baselines").Add(float64(baselines))
	metrics.ActiveThreats.Set(float64(m.store.Len()))

	logger.Infof("Retention sweep: activities=%d threats=%d baselines=%d cutoff=%s",
		activities, threats, baselines, cutoff.Format(time.RFC3339))
}
