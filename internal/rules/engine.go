package rules

import "rotationwatch/pkg/models"

// Engine applies indicator rules to rotation activities.
type Engine interface {
	Apply(activity *models.ActivityRecord) []models.IndicatorTag
}

// NoopEngine returns no tags.
type NoopEngine struct{}

// Apply returns an empty tag list.
func (n *NoopEngine) Apply(activity *models.ActivityRecord) []models.IndicatorTag {
	return nil
}

// RiskFloor returns the minimum risk score implied by a tag severity.
// Matched rules never lower an activity's precomputed risk.
func RiskFloor(severity string) float64 {
	switch severity {
	case "critical":
		return 0.9
	case "high":
		return 0.8
	case "medium":
		return 0.5
	default:
		return 0
	}
}
