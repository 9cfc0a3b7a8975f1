package models

import "time"

// RotationReason is why a key rotation was requested.
type RotationReason string

const (
	ReasonUserInitiated RotationReason = "user_initiated"
	ReasonScheduled     RotationReason = "scheduled"
	ReasonCompromise    RotationReason = "compromise"
	ReasonExpiring      RotationReason = "expiring"
	ReasonPolicy        RotationReason = "policy"
	ReasonAdmin         RotationReason = "admin"
)

// Geolocation is resolved location context for a rotation request.
type Geolocation struct {
	Country    string `json:"country,omitempty"`
	Region     string `json:"region,omitempty"`
	City       string `json:"city,omitempty"`
	VPNOrProxy bool   `json:"vpn_or_proxy,omitempty"`
}

// SecurityMetadata is the opaque security context attached to a rotation
// request by upstream validation. Everything in it is optional.
type SecurityMetadata struct {
	SourceIP          string       `json:"source_ip,omitempty"`
	UserAgent         string       `json:"user_agent,omitempty"`
	Geolocation       *Geolocation `json:"geolocation,omitempty"`
	DeviceFingerprint string       `json:"device_fingerprint,omitempty"`
	AuthMethod        string       `json:"auth_method,omitempty"`
	RiskScore         float64      `json:"risk_score,omitempty"`
}

// ActivityRecord is one observed rotation attempt. Records are immutable
// once created; OperationID is globally unique and never reused.
type ActivityRecord struct {
	Timestamp   time.Time        `json:"ts"`
	OperationID string           `json:"operation_id"`
	UserID      string           `json:"user_id,omitempty"`
	SourceIP    string           `json:"source_ip,omitempty"`
	Reason      RotationReason   `json:"reason"`
	Success     bool             `json:"success"`
	RiskScore   float64          `json:"risk_score"`
	Metadata    SecurityMetadata `json:"metadata,omitempty"`

	IndicatorTags []IndicatorTag `json:"indicator_tags,omitempty"`
}

// Country returns the resolved country code, if any.
func (a *ActivityRecord) Country() string {
	if a == nil || a.Metadata.Geolocation == nil {
		return ""
	}
	return a.Metadata.Geolocation.Country
}

// ViaVPN reports whether the request came through a VPN or proxy.
func (a *ActivityRecord) ViaVPN() bool {
	if a == nil || a.Metadata.Geolocation == nil {
		return false
	}
	return a.Metadata.Geolocation.VPNOrProxy
}

// IndicatorTag is an annotation from a matched indicator rule.
type IndicatorTag struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Severity string `json:"severity,omitempty"`
}
