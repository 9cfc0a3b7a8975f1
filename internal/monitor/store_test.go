package monitor

import (
	"testing"
	"time"

	"rotationwatch/pkg/models"
)

func storedDetection(id string, start time.Time, end *time.Time, ops ...string) *models.Detection {
	return &models.Detection{
		ID:                 id,
		DetectedAt:         start,
		Pattern:            models.FrequentRotationRequests,
		Severity:           models.SeverityMedium,
		Confidence:         0.5,
		InvolvedOperations: ops,
		Window:             models.ActivityWindow{Start: start, End: end},
	}
}

func TestStoreRejectsDuplicateIDs(t *testing.T) {
	base := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s := NewThreatStore()

	first := storedDetection("d-1", base, nil, "op-1")
	second := storedDetection("d-1", base.Add(time.Minute), nil, "op-2")
	s.Insert(first)
	s.Insert(second)

	if s.Len() != 1 {
		t.Fatalf("expected 1 stored detection, got %d", s.Len())
	}
	got := s.All()
	if got[0].InvolvedOperations[0] != "op-1" {
		t.Fatalf("duplicate insert must not replace the original")
	}
}

func TestStoreByOperationsIntersection(t *testing.T) {
	base := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s := NewThreatStore()

	s.Insert(storedDetection("d-1", base, nil, "op-1", "op-2"))
	s.Insert(storedDetection("d-2", base.Add(time.Minute), nil, "op-3"))

	got := s.ByOperations(map[string]struct{}{"op-2": {}})
	if len(got) != 1 || got[0].ID != "d-1" {
		t.Fatalf("expected only d-1, got %d results", len(got))
	}

	if got := s.ByOperations(map[string]struct{}{"op-9": {}}); len(got) != 0 {
		t.Fatalf("expected no results for unknown operation, got %d", len(got))
	}
	if got := s.ByOperations(nil); got != nil {
		t.Fatalf("expected nil for empty operation set")
	}
}

func TestStoreSweepKeepsOpenWindows(t *testing.T) {
	base := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s := NewThreatStore()

	oldEnd := base.Add(10 * time.Minute)
	s.Insert(storedDetection("closed-old", base, &oldEnd, "op-1"))
	s.Insert(storedDetection("open-old", base, nil, "op-2"))
	newEnd := base.Add(3 * time.Hour)
	s.Insert(storedDetection("closed-new", base.Add(3*time.Hour), &newEnd, "op-3"))

	cutoff := base.Add(time.Hour)
	removed := s.Sweep(cutoff)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", s.Len())
	}
	for _, d := range s.All() {
		if d.ID == "closed-old" {
			t.Fatalf("closed-old should have been swept")
		}
	}
}

func TestStoreSweepIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	s := NewThreatStore()

	end := base.Add(time.Minute)
	s.Insert(storedDetection("d-1", base, &end, "op-1"))
	s.Insert(storedDetection("d-2", base, nil, "op-2"))

	cutoff := base.Add(time.Hour)
	s.Sweep(cutoff)
	firstLen := s.Len()
	s.Sweep(cutoff)
	if s.Len() != firstLen {
		t.Fatalf("second sweep changed the set: %d != %d", s.Len(), firstLen)
	}
}
