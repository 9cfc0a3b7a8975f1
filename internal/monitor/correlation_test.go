package monitor

import (
	"errors"
	"testing"
	"time"

	"rotationwatch/pkg/models"
)

func testCorrelation(failed int, vpn bool, reason models.RotationReason) *models.Correlation {
	started := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	c := &models.Correlation{
		StartedAt:      started,
		FailedAttempts: failed,
		Reason:         reason,
		OperationIDs:   []string{"op-1", "op-2"},
		UserID:         "user-1",
	}
	if vpn {
		c.Metadata.Geolocation = &models.Geolocation{VPNOrProxy: vpn}
	}
	return c
}

func TestCorrelationFullEscalation(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	a.now = (&fakeClock{t: time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC)}).now

	det := a.Analyze(testCorrelation(4, true, models.ReasonCompromise))
	if det == nil {
		t.Fatalf("expected detection")
	}
	if det.Progression.Stage != 5 {
		t.Fatalf("expected stage 5, got %d", det.Progression.Stage)
	}
	if det.Severity != models.SeverityCritical {
		t.Fatalf("expected severity critical, got %s", det.Severity)
	}
	if det.Confidence < 0.9 {
		t.Fatalf("expected confidence >= 0.9, got %.2f", det.Confidence)
	}
	if len(det.Progression.Indicators) != 4 {
		t.Fatalf("expected 4 indicators, got %d", len(det.Progression.Indicators))
	}
	if det.Window.Closed() {
		t.Fatalf("in-flight saga must leave the window open")
	}
}

func TestCorrelationSingleFailureStaysQuiet(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	if det := a.Analyze(testCorrelation(1, false, models.ReasonUserInitiated)); det != nil {
		t.Fatalf("single-failure noise must not alert, got stage %d", det.Progression.Stage)
	}
}

func TestCorrelationPersistenceBelowConfidenceThreshold(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	// Stage 3 on failures alone accrues 0.5, under the minimum.
	if det := a.Analyze(testCorrelation(4, false, models.ReasonUserInitiated)); det != nil {
		t.Fatalf("expected no detection at confidence 0.5")
	}
}

func TestCorrelationEvasionStage(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	det := a.Analyze(testCorrelation(4, true, models.ReasonUserInitiated))
	if det == nil {
		t.Fatalf("expected detection at stage 4")
	}
	if det.Progression.Stage != 4 {
		t.Fatalf("expected stage 4, got %d", det.Progression.Stage)
	}
	if det.Severity != models.SeverityHigh {
		t.Fatalf("expected severity high, got %s", det.Severity)
	}
}

func TestCorrelationClosedWindow(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	c := testCorrelation(4, true, models.ReasonCompromise)
	done := c.StartedAt.Add(20 * time.Minute)
	c.CompletedAt = &done

	det := a.Analyze(c)
	if det == nil {
		t.Fatalf("expected detection")
	}
	if !det.Window.Closed() {
		t.Fatalf("completed saga must close the window")
	}
	if det.Window.Duration != 20*time.Minute {
		t.Fatalf("unexpected window duration %s", det.Window.Duration)
	}
}

func TestCorrelationRequiresOperations(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	c := testCorrelation(4, true, models.ReasonCompromise)
	c.OperationIDs = nil
	if det := a.Analyze(c); det != nil {
		t.Fatalf("correlation without operations must not produce a detection")
	}
}

func TestPrivilegeEscalationNotImplemented(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	det, err := a.AnalyzePrivilegeEscalation(testCorrelation(0, false, models.ReasonScheduled))
	if det != nil {
		t.Fatalf("expected no detection")
	}
	if !errors.Is(err, ErrPrivilegeEscalationAnalysis) {
		t.Fatalf("expected ErrPrivilegeEscalationAnalysis, got %v", err)
	}
}
