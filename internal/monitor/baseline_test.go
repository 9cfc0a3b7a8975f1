package monitor

import (
	"testing"
	"time"

	"rotationwatch/pkg/models"
)

func geoActivity(op string, ts time.Time, country, device string) *models.ActivityRecord {
	a := testActivity(op, ts)
	a.Metadata.DeviceFingerprint = device
	a.Metadata.Geolocation = &models.Geolocation{Country: country}
	return a
}

func TestBaselineGrowsAdditively(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clk := &fakeClock{t: base}
	tr := NewBaselineTracker()
	tr.now = clk.now

	tr.Observe("user-1", geoActivity("op-1", base, "DE", "dev-1"))
	tr.Observe("user-1", geoActivity("op-2", base.Add(3*time.Hour), "DE", "dev-2"))

	b := tr.BaselineFor("user-1")
	if b == nil {
		t.Fatalf("expected baseline for user-1")
	}
	if len(b.TypicalHours) != 2 {
		t.Fatalf("expected 2 typical hours, got %d", len(b.TypicalHours))
	}
	if len(b.TypicalCountries) != 1 || !b.KnowsCountry("DE") {
		t.Fatalf("unexpected typical countries: %v", b.TypicalCountries)
	}
	if !b.KnowsDevice("dev-1") || !b.KnowsDevice("dev-2") {
		t.Fatalf("expected both devices in baseline")
	}
	if b.ReasonCounts[models.ReasonScheduled] != 2 {
		t.Fatalf("expected reason count 2, got %d", b.ReasonCounts[models.ReasonScheduled])
	}
}

func TestBaselineForReturnsCopy(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tr := NewBaselineTracker()
	tr.now = (&fakeClock{t: base}).now

	tr.Observe("user-1", geoActivity("op-1", base, "DE", "dev-1"))

	b := tr.BaselineFor("user-1")
	b.TypicalCountries["XX"] = struct{}{}

	if tr.BaselineFor("user-1").KnowsCountry("XX") {
		t.Fatalf("mutating a returned baseline must not affect tracker state")
	}
}

func TestBaselineForUnknownUser(t *testing.T) {
	tr := NewBaselineTracker()
	if b := tr.BaselineFor("nobody"); b != nil {
		t.Fatalf("expected nil baseline, got %+v", b)
	}
}

func TestBaselineSweepRemovesStale(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clk := &fakeClock{t: base}
	tr := NewBaselineTracker()
	tr.now = clk.now

	tr.Observe("stale", testActivity("op-1", base))
	clk.t = base.Add(48 * time.Hour)
	tr.Observe("fresh", testActivity("op-2", clk.t))

	removed := tr.Sweep(base.Add(24 * time.Hour))
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if tr.BaselineFor("stale") != nil {
		t.Fatalf("expected stale baseline removed")
	}
	if tr.BaselineFor("fresh") == nil {
		t.Fatalf("expected fresh baseline kept")
	}
}
