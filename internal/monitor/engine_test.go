package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rotationwatch/pkg/models"
)

func TestMonitorStoresDetections(t *testing.T) {
	base := time.Date(2026, 3, 6, 2, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(base)

	dets := m.MonitorRotationRequest(context.Background(), testActivity("op-1", base))
	if len(dets) == 0 {
		t.Fatalf("expected at least one detection at 02:00")
	}
	if m.store.Len() != len(dets) {
		t.Fatalf("store holds %d detections, engine returned %d", m.store.Len(), len(dets))
	}
}

func TestThreatsForUserOnlyReturnsOwnOperations(t *testing.T) {
	base := time.Date(2026, 3, 6, 2, 0, 0, 0, time.UTC)
	m, clk := newTestMonitor(base)
	ctx := context.Background()

	m.MonitorRotationRequest(ctx, testActivity("op-u1", base))

	clk.t = base.Add(time.Minute)
	other := testActivity("op-u2", clk.t)
	other.UserID = "user-2"
	other.SourceIP = "10.9.9.9"
	m.MonitorRotationRequest(ctx, other)

	ownOps := m.recorder.OperationsForUser("user-1")
	for _, det := range m.ThreatsForUser("user-1") {
		found := false
		for _, op := range det.InvolvedOperations {
			if _, ok := ownOps[op]; ok {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("detection %s involves no operation of user-1", det.ID)
		}
	}
	if len(m.ThreatsForUser("user-3")) != 0 {
		t.Fatalf("unknown user must have no threats")
	}
}

func TestProcessCorrelationStoresThroughSamePath(t *testing.T) {
	base := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(base)

	det := m.ProcessCorrelation(context.Background(), testCorrelation(4, true, models.ReasonCompromise))
	if det == nil {
		t.Fatalf("expected detection")
	}
	if m.store.Len() != 1 {
		t.Fatalf("expected detection in store, got %d entries", m.store.Len())
	}
}

func TestCleanupSweepsAllRegions(t *testing.T) {
	base := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	m, clk := newTestMonitor(base)
	ctx := context.Background()

	// Seed detections and baselines at the base time.
	a := testActivity("op-old", base)
	a.Reason = models.ReasonCompromise
	m.MonitorRotationRequest(ctx, a)
	if m.store.Len() == 0 {
		t.Fatalf("expected seeded detection")
	}

	clk.t = base.Add(48 * time.Hour)
	m.Cleanup(24 * time.Hour)

	if m.recorder.Len() != 0 {
		t.Fatalf("expected activities swept, %d left", m.recorder.Len())
	}
	if m.store.Len() != 0 {
		t.Fatalf("expected closed threats swept, %d left", m.store.Len())
	}
	if m.baselines.Len() != 0 {
		t.Fatalf("expected baselines swept, %d left", m.baselines.Len())
	}
}

func TestStatusSummary(t *testing.T) {
	base := time.Date(2026, 3, 6, 2, 0, 0, 0, time.UTC)
	m, clk := newTestMonitor(base)
	ctx := context.Background()

	a := testActivity("op-1", base)
	a.Reason = models.ReasonCompromise
	m.MonitorRotationRequest(ctx, a)

	clk.t = base.Add(time.Minute)
	fail := testActivity("op-2", clk.t)
	fail.Success = false
	m.MonitorRotationRequest(ctx, fail)

	m.ProcessCorrelation(ctx, testCorrelation(4, true, models.ReasonCompromise))

	status := m.Status()
	if status.MaxSeverity != models.SeverityCritical {
		t.Fatalf("expected max severity critical, got %s", status.MaxSeverity)
	}
	if status.RecentActivity != 2 {
		t.Fatalf("expected 2 recent activities, got %d", status.RecentActivity)
	}
	if status.RecentFailures != 1 {
		t.Fatalf("expected 1 recent failure, got %d", status.RecentFailures)
	}
	if status.ActiveThreats != m.store.Len() {
		t.Fatalf("active threats %d != store size %d", status.ActiveThreats, m.store.Len())
	}
	if status.OpenWindows == 0 {
		t.Fatalf("expected the correlation threat to keep an open window")
	}
	if status.ThreatsByLevel["critical"] == 0 {
		t.Fatalf("expected critical count in per-level rollup")
	}
}

func TestStatusEmptyEngine(t *testing.T) {
	m, _ := newTestMonitor(time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC))
	status := m.Status()
	if status.MaxSeverity != 0 {
		t.Fatalf("expected zero max severity, got %d", status.MaxSeverity)
	}
	if status.ActiveThreats != 0 || status.RecentActivity != 0 {
		t.Fatalf("expected empty summary, got %+v", status)
	}
}

func TestConcurrentMonitoringAndStatus(t *testing.T) {
	base := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	m, _ := newTestMonitor(base)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			a := testActivity(fmt.Sprintf("op-a-%d", i), base)
			a.UserID = "writer"
			m.MonitorRotationRequest(ctx, a)
		}
	}()
	for i := 0; i < 200; i++ {
		m.Status()
		m.ThreatsForUser("writer")
		m.Cleanup(24 * time.Hour)
	}
	<-done
}
