package models

import "testing"

func TestEveryPatternHasTaxonomyEntries(t *testing.T) {
	patterns := []ThreatPattern{
		FrequentRotationRequests, RepeatedFailedRotations, UnusualLocationRotation,
		OffHoursRotation, ConcurrentRotations, CompromiseIndicators,
		UnusualReasonPattern, GeographicAnomaly, DeviceAnomaly,
		SessionHijacking, AutomatedRotationPattern, PrivilegeEscalation,
	}
	if len(patterns) != 12 {
		t.Fatalf("expected the closed set of 12 patterns, got %d", len(patterns))
	}
	for _, p := range patterns {
		if _, ok := patternCategories[p]; !ok {
			t.Fatalf("pattern %s has no category", p)
		}
		if _, ok := patternDefaultSeverities[p]; !ok {
			t.Fatalf("pattern %s has no default severity", p)
		}
	}
}

func TestSeverityOrderingAndNames(t *testing.T) {
	if !(SeverityLow < SeverityMedium && SeverityMedium < SeverityHigh && SeverityHigh < SeverityCritical) {
		t.Fatalf("severity levels are not ordered")
	}
	if SeverityCritical.String() != "critical" || Severity(0).String() != "unknown" {
		t.Fatalf("unexpected severity names")
	}
}

func TestClampConfidence(t *testing.T) {
	if ClampConfidence(1.5) != 1.0 {
		t.Fatalf("expected clamp to 1.0")
	}
	if ClampConfidence(-0.2) != 0 {
		t.Fatalf("expected clamp to 0")
	}
	if ClampConfidence(0.42) != 0.42 {
		t.Fatalf("in-range value must pass through")
	}
}

func TestNewDetectionIDsUnique(t *testing.T) {
	a, b := NewDetectionID(), NewDetectionID()
	if a == "" || a == b {
		t.Fatalf("expected unique non-empty ids, got %q and %q", a, b)
	}
}
