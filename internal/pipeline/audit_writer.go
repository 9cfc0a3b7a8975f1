package pipeline

import "rotationwatch/pkg/models"

// AuditWriter persists audit events.
type AuditWriter interface {
	WriteEvents(events []*models.AuditEvent) error
	Close() error
}
