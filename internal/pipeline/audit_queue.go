package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rotationwatch/pkg/models"
)

// AuditQueue buffers audit calls from the dispatcher for the pipeline's
// batching write loop. It satisfies response.AuditLogger; a full queue
// rejects the call rather than blocking the request path.
type AuditQueue struct {
	ch  chan *models.AuditEvent
	now func() time.Time
}

// NewAuditQueue creates a queue with the given capacity.
func NewAuditQueue(capacity int) *AuditQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &AuditQueue{
		ch:  make(chan *models.AuditEvent, capacity),
		now: time.Now,
	}
}

// LogSuspiciousPattern enqueues one audit event.
func (q *AuditQueue) LogSuspiciousPattern(ctx context.Context, operationID, pattern, description string, confidence float64, userID string) error {
	event := &models.AuditEvent{
		EventID:     uuid.NewString(),
		Timestamp:   q.now(),
		OperationID: operationID,
		Pattern:     pattern,
		Description: description,
		Confidence:  confidence,
		UserID:      userID,
	}
	select {
	case q.ch <- event:
		return nil
	default:
		return fmt.Errorf("audit queue full, dropping event for operation %s", operationID)
	}
}

// Events exposes the buffered events to the write loop.
func (q *AuditQueue) Events() <-chan *models.AuditEvent {
	return q.ch
}
