package models

import "time"

// ThreatStatusSummary aggregates current engine state for dashboards.
type ThreatStatusSummary struct {
	GeneratedAt    time.Time      `json:"generated_at"`
	MaxSeverity    Severity       `json:"max_severity"` // zero when no active threats
	ActiveThreats  int            `json:"active_threats"`
	ThreatsByLevel map[string]int `json:"threats_by_level,omitempty"`
	RecentActivity int            `json:"recent_activity"`
	RecentFailures int            `json:"recent_failures"`
	TrackedUsers   int            `json:"tracked_users"`
	OpenWindows    int            `json:"open_windows"`
}

// AuditEvent is one suspicious-pattern record emitted to the audit sink.
type AuditEvent struct {
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"ts"`
	OperationID string    `json:"operation_id"`
	Pattern     string    `json:"pattern"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"`
	UserID      string    `json:"user_id,omitempty"`
	Severity    string    `json:"severity,omitempty"`
}
