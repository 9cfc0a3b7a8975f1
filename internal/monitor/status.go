package monitor

import (
	"time"

	"rotationwatch/pkg/models"
)

// Status summarizes current engine state: maximum active severity,
// per-level counts, and last-hour activity rollups. Pure read.
func (m *Monitor) Status() *models.ThreatStatusSummary {
	summary := &models.ThreatStatusSummary{
		GeneratedAt:    m.now(),
		ThreatsByLevel: make(map[string]int, 4),
		TrackedUsers:   m.baselines.Len(),
	}

	for _, det := range m.store.All() {
		summary.ActiveThreats++
		summary.ThreatsByLevel[det.Severity.String()]++
		if det.Severity > summary.MaxSeverity {
			summary.MaxSeverity = det.Severity
		}
		if !det.Window.Closed() {
			summary.OpenWindows++
		}
	}

	recent := m.recorder.Recent(nil, time.Hour)
	summary.RecentActivity = len(recent)
	for _, row := range recent {
		if !row.Success {
			summary.RecentFailures++
		}
	}
	return summary
}
