package models

import (
	"time"

	"github.com/google/uuid"
)

// ThreatPattern names one of the recognized rotation abuse patterns.
type ThreatPattern string

const (
	FrequentRotationRequests ThreatPattern = "frequent_rotation_requests"
	RepeatedFailedRotations  ThreatPattern = "repeated_failed_rotations"
	UnusualLocationRotation  ThreatPattern = "unusual_location_rotation"
	OffHoursRotation         ThreatPattern = "off_hours_rotation"
	ConcurrentRotations      ThreatPattern = "concurrent_rotation_attempts"
	CompromiseIndicators     ThreatPattern = "compromise_indicators"
	UnusualReasonPattern     ThreatPattern = "unusual_reason_pattern"
	GeographicAnomaly        ThreatPattern = "geographic_anomaly"
	DeviceAnomaly            ThreatPattern = "device_anomaly"
	SessionHijacking         ThreatPattern = "session_hijacking"
	AutomatedRotationPattern ThreatPattern = "automated_rotation_pattern"
	PrivilegeEscalation      ThreatPattern = "privilege_escalation"
)

// ThreatCategory is the cross-system taxonomy bucket for a pattern.
type ThreatCategory string

const (
	CategoryRateAbuse        ThreatCategory = "rate_abuse"
	CategoryAuthFailure      ThreatCategory = "auth_failure"
	CategoryGeoAnomaly       ThreatCategory = "geo_anomaly"
	CategoryTimeAnomaly      ThreatCategory = "time_anomaly"
	CategoryCompromise       ThreatCategory = "compromise"
	CategoryBehaviorDrift    ThreatCategory = "behavior_drift"
	CategoryAutomation       ThreatCategory = "automation"
	CategorySessionAbuse     ThreatCategory = "session_abuse"
	CategoryAccessEscalation ThreatCategory = "access_escalation"
)

// Severity orders threat levels from Low to Critical.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase level name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

var patternCategories = map[ThreatPattern]ThreatCategory{
	FrequentRotationRequests: CategoryRateAbuse,
	RepeatedFailedRotations:  CategoryAuthFailure,
	UnusualLocationRotation:  CategoryGeoAnomaly,
	OffHoursRotation:         CategoryTimeAnomaly,
	ConcurrentRotations:      CategoryRateAbuse,
	CompromiseIndicators:     CategoryCompromise,
	UnusualReasonPattern:     CategoryBehaviorDrift,
	GeographicAnomaly:        CategoryGeoAnomaly,
	DeviceAnomaly:            CategoryBehaviorDrift,
	SessionHijacking:         CategorySessionAbuse,
	AutomatedRotationPattern: CategoryAutomation,
	PrivilegeEscalation:      CategoryAccessEscalation,
}

var patternDefaultSeverities = map[ThreatPattern]Severity{
	FrequentRotationRequests: SeverityMedium,
	RepeatedFailedRotations:  SeverityHigh,
	UnusualLocationRotation:  SeverityMedium,
	OffHoursRotation:         SeverityLow,
	ConcurrentRotations:      SeverityMedium,
	CompromiseIndicators:     SeverityCritical,
	UnusualReasonPattern:     SeverityMedium,
	GeographicAnomaly:        SeverityMedium,
	DeviceAnomaly:            SeverityMedium,
	SessionHijacking:         SeverityCritical,
	AutomatedRotationPattern: SeverityHigh,
	PrivilegeEscalation:      SeverityCritical,
}

// Category returns the taxonomy bucket for the pattern.
func (p ThreatPattern) Category() ThreatCategory {
	if c, ok := patternCategories[p]; ok {
		return c
	}
	return CategoryBehaviorDrift
}

// DefaultSeverity returns the level used when a detector does not compute one.
func (p ThreatPattern) DefaultSeverity() Severity {
	if s, ok := patternDefaultSeverities[p]; ok {
		return s
	}
	return SeverityMedium
}

// RemediationAction is a recommended, never executed, response.
type RemediationAction string

const (
	ActionBlockIP            RemediationAction = "block_ip"
	ActionSuspendUser        RemediationAction = "suspend_user"
	ActionTerminateSession   RemediationAction = "terminate_session"
	ActionEnhancedMonitoring RemediationAction = "enhanced_monitoring"
	ActionAlertSecurityTeam  RemediationAction = "alert_security_team"
	ActionLockKeys           RemediationAction = "lock_keys"
	ActionIncidentResponse   RemediationAction = "incident_response"
	ActionReviewRotations    RemediationAction = "review_rotations"
	ActionUpdatePolicy       RemediationAction = "update_policy"
)

// ActivityWindow is the time span a detection covers. A nil End marks an
// ongoing threat that retention sweeps must preserve.
type ActivityWindow struct {
	Start    time.Time     `json:"start"`
	End      *time.Time    `json:"end,omitempty"`
	Duration time.Duration `json:"duration"`
	PeakAt   *time.Time    `json:"peak_at,omitempty"`
}

// Closed reports whether the window has a defined end.
func (w ActivityWindow) Closed() bool {
	return w.End != nil
}

// AttackProgression estimates how far an attack sequence has advanced.
type AttackProgression struct {
	Stage          int      `json:"stage"` // 1..5
	Confidence     float64  `json:"confidence"`
	Indicators     []string `json:"indicators,omitempty"`
	PredictedSteps []string `json:"predicted_steps,omitempty"`
}

// Detection is one detector or correlation finding.
type Detection struct {
	ID                 string              `json:"id"`
	DetectedAt         time.Time           `json:"detected_at"`
	Pattern            ThreatPattern       `json:"pattern"`
	Severity           Severity            `json:"severity"`
	Confidence         float64             `json:"confidence"`
	InvolvedOperations []string            `json:"involved_operations"`
	Description        string              `json:"description"`
	Window             ActivityWindow      `json:"window"`
	Progression        AttackProgression   `json:"progression"`
	RecommendedActions []RemediationAction `json:"recommended_actions,omitempty"`
	UserID             string              `json:"user_id,omitempty"`
	SourceIP           string              `json:"source_ip,omitempty"`
}

// ClampConfidence bounds a confidence value to [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NewDetectionID returns a fresh detection identifier.
func NewDetectionID() string {
	return uuid.NewString()
}
