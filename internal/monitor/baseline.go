package monitor

import (
	"sync"
	"time"

	"rotationwatch/pkg/models"
)

// UserBehaviorBaseline is the accumulated profile of one user's normal
// rotation behavior. Sets only grow; the histogram only increments. The
// unbounded growth is a known trade-off: over long lifetimes baselines
// absorb noise, which weakens the location and device detectors until
// the retention sweep retires the user.
type UserBehaviorBaseline struct {
	UserID           string
	TypicalHours     map[int]struct{}
	TypicalCountries map[string]struct{}
	TypicalDevices   map[string]struct{}
	ReasonCounts     map[models.RotationReason]int
	LastUpdated      time.Time
}

// KnowsCountry reports whether the country appears in the baseline.
func (b *UserBehaviorBaseline) KnowsCountry(country string) bool {
	if b == nil || country == "" {
		return false
	}
	_, ok := b.TypicalCountries[country]
	return ok
}

// KnowsDevice reports whether the fingerprint appears in the baseline.
func (b *UserBehaviorBaseline) KnowsDevice(fingerprint string) bool {
	if b == nil || fingerprint == "" {
		return false
	}
	_, ok := b.TypicalDevices[fingerprint]
	return ok
}

// BaselineTracker owns per-user baselines. Observe is the only mutator;
// detectors read via BaselineFor.
type BaselineTracker struct {
	mu    sync.RWMutex
	users map[string]*UserBehaviorBaseline
	now   func() time.Time
}

// NewBaselineTracker creates an empty tracker.
func NewBaselineTracker() *BaselineTracker {
	return &BaselineTracker{
		users: make(map[string]*UserBehaviorBaseline, 64),
		now:   time.Now,
	}
}

// Observe folds one activity into the user's baseline, creating it on
// first sight.
func (t *BaselineTracker) Observe(userID string, activity *models.ActivityRecord) {
	if userID == "" || activity == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.users[userID]
	if b == nil {
		b = &UserBehaviorBaseline{
			UserID:           userID,
			TypicalHours:     make(map[int]struct{}, 8),
			TypicalCountries: make(map[string]struct{}, 4),
			TypicalDevices:   make(map[string]struct{}, 4),
			ReasonCounts:     make(map[models.RotationReason]int, 4),
		}
		t.users[userID] = b
	}

	b.TypicalHours[activity.Timestamp.Hour()] = struct{}{}
	if country := activity.Country(); country != "" {
		b.TypicalCountries[country] = struct{}{}
	}
	if fp := activity.Metadata.DeviceFingerprint; fp != "" {
		b.TypicalDevices[fp] = struct{}{}
	}
	b.ReasonCounts[activity.Reason]++
	b.LastUpdated = t.now()
}

// BaselineFor returns a copy of the user's baseline, or nil when the
// user has never been observed. Copying keeps detectors lock-free while
// they score.
func (t *BaselineTracker) BaselineFor(userID string) *UserBehaviorBaseline {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b := t.users[userID]
	if b == nil {
		return nil
	}
	out := &UserBehaviorBaseline{
		UserID:           b.UserID,
		TypicalHours:     make(map[int]struct{}, len(b.TypicalHours)),
		TypicalCountries: make(map[string]struct{}, len(b.TypicalCountries)),
		TypicalDevices:   make(map[string]struct{}, len(b.TypicalDevices)),
		ReasonCounts:     make(map[models.RotationReason]int, len(b.ReasonCounts)),
		LastUpdated:      b.LastUpdated,
	}
	for h := range b.TypicalHours {
		out.TypicalHours[h] = struct{}{}
	}
	for c := range b.TypicalCountries {
		out.TypicalCountries[c] = struct{}{}
	}
	for d := range b.TypicalDevices {
		out.TypicalDevices[d] = struct{}{}
	}
	for r, n := range b.ReasonCounts {
		out.ReasonCounts[r] = n
	}
	return out
}

// Len returns the number of tracked users.
func (t *BaselineTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.users)
}

// Sweep removes baselines not updated since the cutoff. Returns the
// number removed.
func (t *BaselineTracker) Sweep(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for userID, b := range t.users {
		if b.LastUpdated.Before(cutoff) {
			delete(t.users, userID)
			removed++
		}
	}
	return removed
}
