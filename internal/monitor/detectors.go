package monitor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"rotationwatch/pkg/models"
)

// DetectorConfig tunes the pattern detector battery.
type DetectorConfig struct {
	MinConfidence float64

	FrequentWindow    time.Duration
	FrequentThreshold int

	FailureWindow    time.Duration
	FailureThreshold int

	AutomationWindow      time.Duration
	AutomationMinSamples  int
	AutomationMaxCV       float64
	AutomationMaxInterval time.Duration

	HighRiskScore float64
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.7
	}
	if c.FrequentWindow <= 0 {
		c.FrequentWindow = time.Hour
	}
	if c.FrequentThreshold <= 0 {
		c.FrequentThreshold = 10
	}
	if c.FailureWindow <= 0 {
		c.FailureWindow = 30 * time.Minute
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.AutomationWindow <= 0 {
		c.AutomationWindow = 4 * time.Hour
	}
	if c.AutomationMinSamples <= 0 {
		c.AutomationMinSamples = 5
	}
	if c.AutomationMaxCV <= 0 {
		c.AutomationMaxCV = 0.1
	}
	if c.AutomationMaxInterval <= 0 {
		c.AutomationMaxInterval = time.Hour
	}
	if c.HighRiskScore <= 0 {
		c.HighRiskScore = 0.8
	}
	return c
}

var recommendedActions = map[models.ThreatPattern][]models.RemediationAction{
	models.FrequentRotationRequests: {models.ActionEnhancedMonitoring, models.ActionReviewRotations},
	models.RepeatedFailedRotations:  {models.ActionBlockIP, models.ActionAlertSecurityTeam},
	models.UnusualLocationRotation:  {models.ActionEnhancedMonitoring, models.ActionAlertSecurityTeam},
	models.OffHoursRotation:         {models.ActionEnhancedMonitoring},
	models.AutomatedRotationPattern: {models.ActionBlockIP, models.ActionEnhancedMonitoring, models.ActionReviewRotations},
	models.CompromiseIndicators:     {models.ActionLockKeys, models.ActionSuspendUser, models.ActionIncidentResponse},
	models.SessionHijacking:         {models.ActionTerminateSession, models.ActionAlertSecurityTeam},
	models.PrivilegeEscalation:      {models.ActionSuspendUser, models.ActionIncidentResponse, models.ActionUpdatePolicy},
}

// detectorSet runs the six pattern detectors. Each detector reads the
// recorder and baseline through their own locks and scores lock-free;
// every detector is total and answers nil when the data is insufficient.
type detectorSet struct {
	cfg       DetectorConfig
	recorder  *ActivityRecorder
	baselines *BaselineTracker
	now       func() time.Time
}

type detectorFunc func(*models.ActivityRecord) *models.Detection

// Run applies every detector to the activity, which must already be
// recorded, and returns the detections that fired.
func (d *detectorSet) Run(activity *models.ActivityRecord) []*models.Detection {
	if activity == nil {
		return nil
	}
	detectors := []detectorFunc{
		d.detectFrequentRequests,
		d.detectRepeatedFailures,
		d.detectUnusualLocation,
		d.detectOffHours,
		d.detectAutomatedPattern,
		d.detectCompromiseIndicators,
	}
	out := make([]*models.Detection, 0, 2)
	for _, detect := range detectors {
		if det := detect(activity); det != nil {
			out = append(out, det)
		}
	}
	return out
}

// detectFrequentRequests fires when the last hour holds more rotation
// requests from the same user or the same source than the threshold.
func (d *detectorSet) detectFrequentRequests(activity *models.ActivityRecord) *models.Detection {
	if activity.UserID == "" && activity.SourceIP == "" {
		return nil
	}
	matched := d.recorder.Recent(func(row *models.ActivityRecord) bool {
		return sharesUser(row, activity) || sharesSource(row, activity)
	}, d.cfg.FrequentWindow)

	countUser := 0
	countIP := 0
	for _, row := range matched {
		if sharesUser(row, activity) {
			countUser++
		}
		if sharesSource(row, activity) {
			countIP++
		}
	}
	count := countUser
	if countIP > count {
		count = countIP
	}
	if count <= d.cfg.FrequentThreshold {
		return nil
	}

	confidence := math.Min(1.0, float64(count-d.cfg.FrequentThreshold)/float64(d.cfg.FrequentThreshold))
	desc := fmt.Sprintf("%d rotation requests within one hour from the same user or source (threshold %d)",
		count, d.cfg.FrequentThreshold)
	return d.newDetection(models.FrequentRotationRequests, models.SeverityMedium, confidence, matched, activity, desc)
}

// detectRepeatedFailures fires on a failed attempt preceded by too many
// failures from the same user or source in the last half hour.
func (d *detectorSet) detectRepeatedFailures(activity *models.ActivityRecord) *models.Detection {
	if activity.Success {
		return nil
	}
	matched := d.recorder.Recent(func(row *models.ActivityRecord) bool {
		if row.Success {
			return false
		}
		return sharesUser(row, activity) || sharesSource(row, activity)
	}, d.cfg.FailureWindow)

	count := len(matched)
	if count <= d.cfg.FailureThreshold {
		return nil
	}

	confidence := math.Min(1.0, float64(count-d.cfg.FailureThreshold)/float64(d.cfg.FailureThreshold))
	desc := fmt.Sprintf("%d failed rotation attempts within %s (threshold %d)",
		count, d.cfg.FailureWindow, d.cfg.FailureThreshold)
	return d.newDetection(models.RepeatedFailedRotations, models.SeverityHigh, confidence, matched, activity, desc)
}

// detectUnusualLocation fires when a user with an established baseline
// rotates from a country the baseline has never seen.
func (d *detectorSet) detectUnusualLocation(activity *models.ActivityRecord) *models.Detection {
	country := activity.Country()
	if activity.UserID == "" || country == "" {
		return nil
	}
	baseline := d.baselines.BaselineFor(activity.UserID)
	if baseline == nil {
		return nil
	}
	if baseline.KnowsCountry(country) {
		return nil
	}

	desc := fmt.Sprintf("rotation from country %s not present in user baseline", country)
	return d.newDetection(models.UnusualLocationRotation, models.SeverityMedium, 0.8,
		[]*models.ActivityRecord{activity}, activity, desc)
}

// detectOffHours fires outside business hours (09:00-17:59 local), with
// higher confidence for the dead of night.
func (d *detectorSet) detectOffHours(activity *models.ActivityRecord) *models.Detection {
	hour := activity.Timestamp.Hour()
	if hour >= 9 && hour <= 17 {
		return nil
	}

	confidence := 0.6
	if hour < 6 || hour >= 22 {
		confidence = 0.9
	}
	desc := fmt.Sprintf("rotation at %02d:00 outside business hours", hour)
	return d.newDetection(models.OffHoursRotation, models.SeverityLow, confidence,
		[]*models.ActivityRecord{activity}, activity, desc)
}

// detectAutomatedPattern fires when requests from the same (user, source)
// pair arrive on a suspiciously regular sub-hour cadence. Regularity is
// measured by the coefficient of variation of inter-arrival intervals:
// humans do not rotate keys on a metronome.
func (d *detectorSet) detectAutomatedPattern(activity *models.ActivityRecord) *models.Detection {
	if activity.UserID == "" || activity.SourceIP == "" {
		return nil
	}
	matched := d.recorder.Recent(func(row *models.ActivityRecord) bool {
		return row.UserID == activity.UserID && row.SourceIP == activity.SourceIP
	}, d.cfg.AutomationWindow)
	if len(matched) < d.cfg.AutomationMinSamples {
		return nil
	}

	intervals := make([]float64, 0, len(matched)-1)
	for i := 1; i < len(matched); i++ {
		intervals = append(intervals, matched[i].Timestamp.Sub(matched[i-1].Timestamp).Seconds())
	}
	mean, stddev := meanStddev(intervals)
	if mean <= 0 {
		return nil
	}
	cv := stddev / mean
	if cv >= d.cfg.AutomationMaxCV || mean >= d.cfg.AutomationMaxInterval.Seconds() {
		return nil
	}

	confidence := math.Min(1.0, 1.0-cv*10)
	desc := fmt.Sprintf("%d rotations with near-constant %.0fs spacing (cv=%.3f) from the same user and source",
		len(matched), mean, cv)
	return d.newDetection(models.AutomatedRotationPattern, models.SeverityHigh, confidence, matched, activity, desc)
}

// detectCompromiseIndicators scores additive compromise signals and
// fires only when the accumulated confidence clears the configured
// minimum with at least one indicator present.
func (d *detectorSet) detectCompromiseIndicators(activity *models.ActivityRecord) *models.Detection {
	score := 0.0
	indicators := make([]string, 0, 4)

	if activity.Reason == models.ReasonCompromise {
		score += 0.8
		indicators = append(indicators, "rotation reason reported as compromise")
	}
	if activity.RiskScore > d.cfg.HighRiskScore {
		score += 0.3
		indicators = append(indicators, fmt.Sprintf("upstream risk score %.2f", activity.RiskScore))
	}
	if activity.ViaVPN() {
		score += 0.2
		indicators = append(indicators, "request routed through VPN or proxy")
	}
	if d.isNewDeviceForSource(activity) {
		score += 0.2
		indicators = append(indicators, "device fingerprint not seen before from this source")
	}

	if len(indicators) == 0 {
		return nil
	}
	confidence := models.ClampConfidence(score)
	if confidence < d.cfg.MinConfidence {
		return nil
	}

	desc := fmt.Sprintf("compromise indicators: %s", strings.Join(indicators, "; "))
	det := d.newDetection(models.CompromiseIndicators, models.SeverityCritical, confidence,
		[]*models.ActivityRecord{activity}, activity, desc)
	det.Progression.Indicators = indicators
	return det
}

func (d *detectorSet) isNewDeviceForSource(activity *models.ActivityRecord) bool {
	fp := activity.Metadata.DeviceFingerprint
	if fp == "" || activity.SourceIP == "" {
		return false
	}
	prior := d.recorder.Recent(func(row *models.ActivityRecord) bool {
		return row.OperationID != activity.OperationID &&
			row.SourceIP == activity.SourceIP &&
			row.Metadata.DeviceFingerprint == fp
	}, 0)
	return len(prior) == 0
}

// newDetection assembles a detection with a fresh id, a closed activity
// window ending at the triggering activity, and a stage-1 progression.
func (d *detectorSet) newDetection(pattern models.ThreatPattern, severity models.Severity, confidence float64, involved []*models.ActivityRecord, activity *models.ActivityRecord, description string) *models.Detection {
	ops := make([]string, 0, len(involved))
	start := activity.Timestamp
	for _, row := range involved {
		if row.OperationID != "" {
			ops = append(ops, row.OperationID)
		}
		if row.Timestamp.Before(start) {
			start = row.Timestamp
		}
	}
	if len(ops) == 0 {
		ops = append(ops, activity.OperationID)
	}
	end := activity.Timestamp

	return &models.Detection{
		ID:                 models.NewDetectionID(),
		DetectedAt:         d.now(),
		Pattern:            pattern,
		Severity:           severity,
		Confidence:         models.ClampConfidence(confidence),
		InvolvedOperations: ops,
		Description:        description,
		Window: models.ActivityWindow{
			Start:    start,
			End:      &end,
			Duration: end.Sub(start),
		},
		Progression: models.AttackProgression{
			Stage:          1,
			Confidence:     models.ClampConfidence(confidence),
			PredictedSteps: predictedSteps(pattern),
		},
		RecommendedActions: recommendedActions[pattern],
		UserID:             activity.UserID,
		SourceIP:           activity.SourceIP,
	}
}

func predictedSteps(pattern models.ThreatPattern) []string {
	switch pattern.Category() {
	case models.CategoryRateAbuse, models.CategoryAutomation:
		return []string{"sustained rotation attempts", "lockout probing"}
	case models.CategoryAuthFailure:
		return []string{"credential stuffing", "account takeover"}
	case models.CategoryCompromise, models.CategorySessionAbuse:
		return []string{"key material exfiltration", "lateral movement"}
	default:
		return []string{"continued anomalous rotations"}
	}
}

func sharesUser(row, activity *models.ActivityRecord) bool {
	return activity.UserID != "" && row.UserID == activity.UserID
}

func sharesSource(row, activity *models.ActivityRecord) bool {
	return activity.SourceIP != "" && row.SourceIP == activity.SourceIP
}

func meanStddev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
