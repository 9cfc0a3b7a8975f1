package models

import "time"

// Correlation is an externally assembled summary of one multi-step
// rotation saga, used for attack-stage inference.
type Correlation struct {
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	FailedAttempts int              `json:"failed_attempts"`
	Reason         RotationReason   `json:"reason"`
	Metadata       SecurityMetadata `json:"metadata,omitempty"`
	OperationIDs   []string         `json:"operation_ids"`
	UserID         string           `json:"user_id,omitempty"`
}
