package response

import (
	"context"
	"errors"
	"testing"
	"time"

	"rotationwatch/pkg/models"
)

type recordingAudit struct {
	calls []string
	err   error
}

func (r *recordingAudit) LogSuspiciousPattern(ctx context.Context, operationID, pattern, description string, confidence float64, userID string) error {
	r.calls = append(r.calls, pattern)
	return r.err
}

func testDetection() *models.Detection {
	return &models.Detection{
		ID:                 "det-1",
		DetectedAt:         time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC),
		Pattern:            models.RepeatedFailedRotations,
		Severity:           models.SeverityHigh,
		Confidence:         0.8,
		InvolvedOperations: []string{"op-1", "op-2"},
		Description:        "test detection",
		RecommendedActions: []models.RemediationAction{models.ActionBlockIP, models.ActionUpdatePolicy},
		UserID:             "user-1",
		SourceIP:           "10.0.0.1",
	}
}

func TestDispatchAlwaysAudits(t *testing.T) {
	audit := &recordingAudit{}
	d := NewDispatcher(audit, nil, false)

	d.Dispatch(context.Background(), testDetection())
	if len(audit.calls) != 1 {
		t.Fatalf("expected 1 audit call, got %d", len(audit.calls))
	}
	if audit.calls[0] != string(models.RepeatedFailedRotations) {
		t.Fatalf("unexpected audited pattern %s", audit.calls[0])
	}
}

func TestDispatchSkipsHandlersWhenNotAutomated(t *testing.T) {
	called := 0
	handlers := map[models.RemediationAction]ActionHandler{
		models.ActionBlockIP: func(ctx context.Context, target Target) error {
			called++
			return nil
		},
	}
	d := NewDispatcher(&recordingAudit{}, handlers, false)
	d.Dispatch(context.Background(), testDetection())
	if called != 0 {
		t.Fatalf("handlers must not run when automation is disabled")
	}
}

func TestDispatchRunsMappedHandlers(t *testing.T) {
	var gotTarget Target
	called := 0
	handlers := map[models.RemediationAction]ActionHandler{
		models.ActionBlockIP: func(ctx context.Context, target Target) error {
			called++
			gotTarget = target
			return nil
		},
	}
	d := NewDispatcher(&recordingAudit{}, handlers, true)

	// ActionUpdatePolicy is unmapped and only logged as pending.
	d.Dispatch(context.Background(), testDetection())
	if called != 1 {
		t.Fatalf("expected block-ip handler once, got %d", called)
	}
	if gotTarget.IP != "10.0.0.1" || gotTarget.UserID != "user-1" {
		t.Fatalf("unexpected target %+v", gotTarget)
	}
}

func TestDispatchContainsFailures(t *testing.T) {
	audit := &recordingAudit{err: errors.New("audit backend down")}
	handlers := map[models.RemediationAction]ActionHandler{
		models.ActionBlockIP: func(ctx context.Context, target Target) error {
			return errors.New("enforcement down")
		},
	}
	d := NewDispatcher(audit, handlers, true)

	// Must not panic or propagate.
	d.Dispatch(context.Background(), testDetection())
	d.Dispatch(context.Background(), nil)
}
