package models

import (
	"math"
	"testing"
	"time"
)

func fixedClock(t *testing.T, at time.Time) {
	t.Helper()
	old := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = old })
}

// TestNewRunning verifies pace = duration / distance and the running payload.
func TestNewRunning(t *testing.T) {
	fixedClock(t, time.Date(2026, 4, 14, 8, 0, 0, 0, time.UTC))

	w := NewRunning(Coords{Lat: 40, Lng: -73}, 5, 25, 150)
	if w.Kind != KindRunning {
		t.Errorf("kind = %q, want %q", w.Kind, KindRunning)
	}
	if w.Running == nil || w.Cycling != nil {
		t.Fatalf("payload = %+v / %+v, want running only", w.Running, w.Cycling)
	}
	if w.Running.PaceMinPerKm != 5.0 {
		t.Errorf("pace = %v, want 5", w.Running.PaceMinPerKm)
	}
	if w.Running.CadenceSpm != 150 {
		t.Errorf("cadence = %d, want 150", w.Running.CadenceSpm)
	}
	if w.Description != "Running on April 14" {
		t.Errorf("description = %q, want %q", w.Description, "Running on April 14")
	}
	if w.Coords != (Coords{Lat: 40, Lng: -73}) {
		t.Errorf("coords = %+v", w.Coords)
	}
}

// TestNewCycling verifies speed = distance / (duration / 60) and that zero
// elevation is kept as-is.
func TestNewCycling(t *testing.T) {
	fixedClock(t, time.Date(2026, 12, 3, 18, 0, 0, 0, time.UTC))

	w := NewCycling(Coords{Lat: 1, Lng: 2}, 27, 95, 0)
	if w.Kind != KindCycling {
		t.Errorf("kind = %q, want %q", w.Kind, KindCycling)
	}
	if w.Cycling == nil || w.Running != nil {
		t.Fatalf("payload = %+v / %+v, want cycling only", w.Running, w.Cycling)
	}
	want := 27 / (95.0 / 60)
	if math.Abs(w.Cycling.SpeedKmPerH-want) > 1e-9 {
		t.Errorf("speed = %v, want %v", w.Cycling.SpeedKmPerH, want)
	}
	if w.Cycling.ElevationGainM != 0 {
		t.Errorf("elevation = %v, want 0", w.Cycling.ElevationGainM)
	}
	if w.Description != "Cycling on December 3" {
		t.Errorf("description = %q", w.Description)
	}
}

func TestDerivedFormulas(t *testing.T) {
	cases := []struct {
		dist, dur float64
	}{
		{5, 25},
		{0.4, 3.7},
		{42.195, 181.5},
		{120, 300},
	}
	for _, c := range cases {
		r := NewRunning(Coords{}, c.dist, c.dur, 170)
		if got, want := r.Derived(), c.dur/c.dist; math.Abs(got-want) > 1e-12 {
			t.Errorf("pace(%v, %v) = %v, want %v", c.dist, c.dur, got, want)
		}
		cy := NewCycling(Coords{}, c.dist, c.dur, 10)
		if got, want := cy.Derived(), c.dist/(c.dur/60); math.Abs(got-want) > 1e-9 {
			t.Errorf("speed(%v, %v) = %v, want %v", c.dist, c.dur, got, want)
		}
	}
}

// TestIDsUnique verifies IDs do not collide for workouts created in the
// same instant.
func TestIDsUnique(t *testing.T) {
	fixedClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		w := NewRunning(Coords{}, 1, 1, 1)
		if seen[w.ID] {
			t.Fatalf("duplicate id %s after %d workouts", w.ID, i)
		}
		seen[w.ID] = true
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind("running"); !ok || k != KindRunning {
		t.Errorf("ParseKind(running) = %q, %v", k, ok)
	}
	if k, ok := ParseKind("cycling"); !ok || k != KindCycling {
		t.Errorf("ParseKind(cycling) = %q, %v", k, ok)
	}
	for _, s := range []string{"", "Running", "swimming"} {
		if _, ok := ParseKind(s); ok {
			t.Errorf("ParseKind(%q) accepted", s)
		}
	}
}

func TestMetric(t *testing.T) {
	if got := NewRunning(Coords{}, 5, 25, 160).Metric(); got != 160 {
		t.Errorf("running metric = %v, want 160", got)
	}
	if got := NewCycling(Coords{}, 5, 25, 320).Metric(); got != 320 {
		t.Errorf("cycling metric = %v, want 320", got)
	}
}
