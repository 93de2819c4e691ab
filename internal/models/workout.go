package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the workout variants.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ParseKind maps a form or storage value to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindRunning, KindCycling:
		return Kind(s), true
	}
	return "", false
}

// Label returns the capitalized kind name used in titles.
func (k Kind) Label() string {
	switch k {
	case KindRunning:
		return "Running"
	case KindCycling:
		return "Cycling"
	}
	return string(k)
}

// Icon returns the emoji shown next to the kind in popups and list entries.
func (k Kind) Icon() string {
	switch k {
	case KindRunning:
		return "🏃‍♂️"
	case KindCycling:
		return "🚴‍♀️"
	}
	return "❓"
}

// Coords is a latitude/longitude pair in degrees.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Workout is a single recorded session. Exactly one of Running or Cycling
// is set, matching Kind. Values are built by NewRunning/NewCycling and not
// modified afterwards.
type Workout struct {
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	Coords      Coords        `json:"coords"`
	DistanceKm  float64       `json:"distance_km"`
	DurationMin float64       `json:"duration_min"`
	Kind        Kind          `json:"kind"`
	Description string        `json:"description"`
	Running     *RunningStats `json:"running,omitempty"`
	Cycling     *CyclingStats `json:"cycling,omitempty"`
}

// RunningStats is the running-specific payload.
type RunningStats struct {
	CadenceSpm   int     `json:"cadence_spm"`
	PaceMinPerKm float64 `json:"pace_min_per_km"`
}

// CyclingStats is the cycling-specific payload.
type CyclingStats struct {
	ElevationGainM float64 `json:"elevation_gain_m"`
	SpeedKmPerH    float64 `json:"speed_km_per_h"`
}

var (
	now   = time.Now
	newID = func() string { return uuid.Must(uuid.NewV7()).String() }
)

// NewRunning builds a running workout and computes its pace.
// Inputs are expected to be validated by the caller.
func NewRunning(at Coords, distanceKm, durationMin float64, cadenceSpm int) Workout {
	w := newBase(KindRunning, at, distanceKm, durationMin)
	w.Running = &RunningStats{
		CadenceSpm:   cadenceSpm,
		PaceMinPerKm: Pace(distanceKm, durationMin),
	}
	return w
}

// NewCycling builds a cycling workout and computes its speed.
// Inputs are expected to be validated by the caller.
func NewCycling(at Coords, distanceKm, durationMin, elevationGainM float64) Workout {
	w := newBase(KindCycling, at, distanceKm, durationMin)
	w.Cycling = &CyclingStats{
		ElevationGainM: elevationGainM,
		SpeedKmPerH:    Speed(distanceKm, durationMin),
	}
	return w
}

func newBase(kind Kind, at Coords, distanceKm, durationMin float64) Workout {
	created := now()
	return Workout{
		ID:          newID(),
		CreatedAt:   created,
		Coords:      at,
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
		Kind:        kind,
		Description: Describe(kind, created),
	}
}

// Pace is minutes per kilometre.
func Pace(distanceKm, durationMin float64) float64 {
	return durationMin / distanceKm
}

// Speed is kilometres per hour.
func Speed(distanceKm, durationMin float64) float64 {
	return distanceKm / (durationMin / 60)
}

// Describe formats the title shown for a workout, e.g. "Running on April 14".
func Describe(kind Kind, at time.Time) string {
	return fmt.Sprintf("%s on %s %d", kind.Label(), at.Month(), at.Day())
}

// Metric returns the kind-specific raw input: cadence for running,
// elevation gain for cycling.
func (w Workout) Metric() float64 {
	switch w.Kind {
	case KindRunning:
		if w.Running != nil {
			return float64(w.Running.CadenceSpm)
		}
	case KindCycling:
		if w.Cycling != nil {
			return w.Cycling.ElevationGainM
		}
	}
	return 0
}

// Derived returns the kind-specific derived value: pace for running,
// speed for cycling.
func (w Workout) Derived() float64 {
	switch w.Kind {
	case KindRunning:
		if w.Running != nil {
			return w.Running.PaceMinPerKm
		}
	case KindCycling:
		if w.Cycling != nil {
			return w.Cycling.SpeedKmPerH
		}
	}
	return 0
}
