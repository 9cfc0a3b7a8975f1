package monitor

import (
	"sort"
	"sync"
	"time"

	"rotationwatch/pkg/models"
)

// ThreatStore holds active detections keyed by detection id.
type ThreatStore struct {
	mu      sync.RWMutex
	threats map[string]*models.Detection
}

// NewThreatStore creates an empty store.
func NewThreatStore() *ThreatStore {
	return &ThreatStore{threats: make(map[string]*models.Detection, 64)}
}

// Insert stores a detection. A detection with an id already present is
// dropped; ids are unique by construction.
func (s *ThreatStore) Insert(d *models.Detection) {
	if d == nil || d.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.threats[d.ID]; exists {
		return
	}
	s.threats[d.ID] = d
}

// ByOperations returns every detection whose involved operations
// intersect the given id set, ordered by detection time.
func (s *ThreatStore) ByOperations(opIDs map[string]struct{}) []*models.Detection {
	if len(opIDs) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Detection, 0, 8)
	for _, d := range s.threats {
		for _, op := range d.InvolvedOperations {
			if _, ok := opIDs[op]; ok {
				out = append(out, d)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out
}

// All returns a snapshot of every stored detection.
func (s *ThreatStore) All() []*models.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Detection, 0, len(s.threats))
	for _, d := range s.threats {
		out = append(out, d)
	}
	return out
}

// Len returns the number of stored detections.
func (s *ThreatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threats)
}

// Sweep removes detections whose window started before the cutoff and
// has a defined end. Open-ended windows are ongoing threats and are kept
// regardless of age. Sweeping twice with the same cutoff is a no-op the
// second time.
func (s *ThreatStore) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, d := range s.threats {
		if d.Window.Start.Before(cutoff) && d.Window.Closed() {
			delete(s.threats, id)
			removed++
		}
	}
	return removed
}
