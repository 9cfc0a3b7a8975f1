package monitor

import (
	"errors"
	"time"

	"rotationwatch/pkg/models"
)

// ErrPrivilegeEscalationAnalysis marks the privilege-escalation check as
// not yet implemented, so callers can distinguish "not covered" from
// "no escalation found".
var ErrPrivilegeEscalationAnalysis = errors.New("privilege escalation analysis not implemented")

// CorrelationAnalyzer infers attack progression from a completed or
// in-flight rotation saga, independent of the per-request detectors.
type CorrelationAnalyzer struct {
	minConfidence float64
	now           func() time.Time
}

// NewCorrelationAnalyzer creates an analyzer gated by the confidence minimum.
func NewCorrelationAnalyzer(minConfidence float64) *CorrelationAnalyzer {
	if minConfidence <= 0 {
		minConfidence = 0.7
	}
	return &CorrelationAnalyzer{minConfidence: minConfidence, now: time.Now}
}

// stageSeverities maps an attack stage to its threat level.
var stageSeverities = map[int]models.Severity{
	1: models.SeverityLow,
	2: models.SeverityLow,
	3: models.SeverityMedium,
	4: models.SeverityHigh,
	5: models.SeverityCritical,
}

var stagePatterns = map[int]models.ThreatPattern{
	3: models.RepeatedFailedRotations,
	4: models.SessionHijacking,
	5: models.CompromiseIndicators,
}

// Analyze accumulates stage evidence over the correlation bundle. Each
// satisfied rung strictly raises the stage and adds confidence; the
// analyzer only alerts past stage 2, so single-failure noise stays quiet.
func (a *CorrelationAnalyzer) Analyze(c *models.Correlation) *models.Detection {
	if c == nil || len(c.OperationIDs) == 0 {
		return nil
	}

	stage := 1
	confidence := 0.0
	indicators := make([]string, 0, 4)

	if c.FailedAttempts > 0 {
		stage = 2
		confidence += 0.2
		indicators = append(indicators, "failed attempts detected")
	}
	if c.FailedAttempts > 3 {
		stage = 3
		confidence += 0.3
		indicators = append(indicators, "persistence across repeated failures")
	}
	if c.Metadata.Geolocation != nil && c.Metadata.Geolocation.VPNOrProxy {
		stage = 4
		confidence += 0.3
		indicators = append(indicators, "evasion via VPN or proxy")
	}
	if c.Reason == models.ReasonCompromise {
		stage = 5
		confidence += 0.4
		indicators = append(indicators, "explicit compromise report")
	}

	confidence = models.ClampConfidence(confidence)
	if confidence < a.minConfidence || stage <= 2 {
		return nil
	}

	pattern := stagePatterns[stage]
	window := models.ActivityWindow{
		Start: c.StartedAt,
		End:   c.CompletedAt,
	}
	if c.CompletedAt != nil {
		window.Duration = c.CompletedAt.Sub(c.StartedAt)
	} else {
		window.Duration = a.now().Sub(c.StartedAt)
	}

	return &models.Detection{
		ID:                 models.NewDetectionID(),
		DetectedAt:         a.now(),
		Pattern:            pattern,
		Severity:           stageSeverities[stage],
		Confidence:         confidence,
		InvolvedOperations: append([]string(nil), c.OperationIDs...),
		Description:        "staged attack progression across rotation saga",
		Window:             window,
		Progression: models.AttackProgression{
			Stage:          stage,
			Confidence:     confidence,
			Indicators:     indicators,
			PredictedSteps: predictedSteps(pattern),
		},
		RecommendedActions: recommendedActions[pattern],
		UserID:             c.UserID,
		SourceIP:           c.Metadata.SourceIP,
	}
}

// AnalyzePrivilegeEscalation is an open gap in the current design.
func (a *CorrelationAnalyzer) AnalyzePrivilegeEscalation(c *models.Correlation) (*models.Detection, error) {
	return nil, ErrPrivilegeEscalationAnalysis
}
