package response

import (
	"context"

	"rotationwatch/internal/logger"
	"rotationwatch/internal/metrics"
	"rotationwatch/pkg/models"
)

// AuditLogger is the external audit collaborator. Implementations own
// persistence; the engine only calls.
type AuditLogger interface {
	LogSuspiciousPattern(ctx context.Context, operationID, pattern, description string, confidence float64, userID string) error
}

// Target identifies what a remediation action should act on.
type Target struct {
	IP        string
	UserID    string
	SessionID string
}

// ActionHandler executes one remediation action against its target.
// Handlers are injected at construction so tests can substitute
// recording stubs for real enforcement hooks.
type ActionHandler func(ctx context.Context, target Target) error

// Dispatcher converts detections into audit calls and, when automated
// response is enabled, remediation requests. Downstream failures are
// logged and contained: a degraded enforcement stack must never take
// detection down with it.
type Dispatcher struct {
	audit     AuditLogger
	handlers  map[models.RemediationAction]ActionHandler
	automated bool
}

// NewDispatcher creates a dispatcher over the given collaborators.
func NewDispatcher(audit AuditLogger, handlers map[models.RemediationAction]ActionHandler, automated bool) *Dispatcher {
	return &Dispatcher{audit: audit, handlers: handlers, automated: automated}
}

// Dispatch emits one audit call for the detection and, if enabled,
// requests each recommended remediation action.
func (d *Dispatcher) Dispatch(ctx context.Context, det *models.Detection) {
	if det == nil {
		return
	}

	opID := ""
	if len(det.InvolvedOperations) > 0 {
		opID = det.InvolvedOperations[len(det.InvolvedOperations)-1]
	}
	if d.audit != nil {
		if err := d.audit.LogSuspiciousPattern(ctx, opID, string(det.Pattern), det.Description, det.Confidence, det.UserID); err != nil {
			logger.Errorf("Audit log call failed for detection %s: %v", det.ID, err)
		}
	}

	if !d.automated {
		return
	}
	target := Target{IP: det.SourceIP, UserID: det.UserID, SessionID: det.UserID}
	for _, action := range det.RecommendedActions {
		handler, ok := d.handlers[action]
		if !ok {
			logger.Warnf("Remediation action %s pending: no handler registered", action)
			metrics.ResponseActionsTotal.WithLabelValues(string(action), "pending").Inc()
			continue
		}
		if err := handler(ctx, target); err != nil {
			logger.Errorf("Remediation action %s failed for detection %s: %v", action, det.ID, err)
			metrics.ResponseActionsTotal.WithLabelValues(string(action), "error").Inc()
			continue
		}
		metrics.ResponseActionsTotal.WithLabelValues(string(action), "ok").Inc()
	}
}
