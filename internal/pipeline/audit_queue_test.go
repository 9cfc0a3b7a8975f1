package pipeline

import (
	"context"
	"testing"
)

func TestAuditQueueEnqueues(t *testing.T) {
	q := NewAuditQueue(2)
	ctx := context.Background()

	if err := q.LogSuspiciousPattern(ctx, "op-1", "off_hours_rotation", "test", 0.9, "user-1"); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	event := <-q.Events()
	if event.OperationID != "op-1" || event.Pattern != "off_hours_rotation" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.EventID == "" {
		t.Fatalf("expected generated event id")
	}
}

func TestAuditQueueRejectsWhenFull(t *testing.T) {
	q := NewAuditQueue(1)
	ctx := context.Background()

	if err := q.LogSuspiciousPattern(ctx, "op-1", "p", "d", 0.5, ""); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := q.LogSuspiciousPattern(ctx, "op-2", "p", "d", 0.5, ""); err == nil {
		t.Fatalf("expected error when queue is full")
	}
}
