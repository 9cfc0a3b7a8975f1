package monitor

import (
	"sync"
	"time"

	"rotationwatch/pkg/models"
)

// ActivityRecorder keeps a time-bounded, append-only log of rotation
// activity. Entries older than the monitoring window are trimmed on each
// append; the retention sweeper applies a coarser horizon.
type ActivityRecorder struct {
	mu     sync.RWMutex
	window time.Duration
	rows   []*models.ActivityRecord
	now    func() time.Time
}

// NewActivityRecorder creates a recorder with the given monitoring window.
func NewActivityRecorder(window time.Duration) *ActivityRecorder {
	if window <= 0 {
		window = time.Hour
	}
	return &ActivityRecorder{
		window: window,
		rows:   make([]*models.ActivityRecord, 0, 256),
		now:    time.Now,
	}
}

// Record appends one activity and trims entries past the window.
// Callers guarantee operation ids are unique.
func (r *ActivityRecorder) Record(activity *models.ActivityRecord) {
	if activity == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if activity.Timestamp.IsZero() {
		activity.Timestamp = r.now()
	}
	r.rows = append(r.rows, activity)
	r.trimLocked(r.now().Add(-r.window))
}

// Recent returns activities within the given window matching the
// predicate, oldest first. A nil predicate matches everything; a
// non-positive window falls back to the recorder's own.
func (r *ActivityRecorder) Recent(match func(*models.ActivityRecord) bool, window time.Duration) []*models.ActivityRecord {
	if window <= 0 {
		window = r.window
	}
	cutoff := r.now().Add(-window)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ActivityRecord, 0, len(r.rows))
	for _, row := range r.rows {
		if row.Timestamp.Before(cutoff) {
			continue
		}
		if match != nil && !match(row) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// OperationsForUser returns every retained operation id recorded for the user.
func (r *ActivityRecorder) OperationsForUser(userID string) map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]struct{}, 16)
	for _, row := range r.rows {
		if row.UserID == userID && row.OperationID != "" {
			out[row.OperationID] = struct{}{}
		}
	}
	return out
}

// Len returns the number of retained activities.
func (r *ActivityRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

// Sweep removes activities older than the cutoff. Returns the number removed.
func (r *ActivityRecorder) Sweep(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.rows)
	r.trimLocked(cutoff)
	return before - len(r.rows)
}

func (r *ActivityRecorder) trimLocked(cutoff time.Time) {
	idx := 0
	for idx < len(r.rows) {
		ts := r.rows[idx].Timestamp
		if ts.After(cutoff) || ts.Equal(cutoff) {
			break
		}
		idx++
	}
	if idx > 0 {
		r.rows = r.rows[idx:]
	}
}
