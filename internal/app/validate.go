package app

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/claude/mapty/internal/models"
)

// ErrInvalidInput matches every *ValidationError.
var ErrInvalidInput = errors.New("invalid workout input")

// MsgInvalidInput is the alert shown for a rejected submission.
const MsgInvalidInput = "Inputs have to be positive numbers!"

// FormInput is the form as typed: raw field values.
type FormInput struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence"`
	Elevation string `json:"elevation"`
}

// Submission is a validated form.
type Submission struct {
	Kind        models.Kind
	DistanceKm  float64
	DurationMin float64
	CadenceSpm  int
	ElevationM  float64
}

// ValidationError names the fields that failed.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// parseNumber reads a form value. Blank or non-numeric input is NaN.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

type field struct {
	name  string
	value float64
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func notFinite(fields ...field) []string {
	var bad []string
	for _, f := range fields {
		if !isFinite(f.value) {
			bad = append(bad, f.name)
		}
	}
	return bad
}

func notPositive(fields ...field) []string {
	var bad []string
	for _, f := range fields {
		if !(f.value > 0) {
			bad = append(bad, f.name)
		}
	}
	return bad
}

// Validate checks a form. Every numeric input must be finite; distance,
// duration and cadence must be positive; elevation gain may be zero. The
// derived pace or speed must be finite too.
func Validate(in FormInput) (Submission, error) {
	kind, ok := models.ParseKind(in.Type)
	if !ok {
		return Submission{}, &ValidationError{Fields: []string{"type"}, Reason: "unknown workout type"}
	}

	distance := field{"distance", parseNumber(in.Distance)}
	duration := field{"duration", parseNumber(in.Duration)}
	sub := Submission{Kind: kind, DistanceKm: distance.value, DurationMin: duration.value}

	switch kind {
	case models.KindRunning:
		cadence := field{"cadence", parseNumber(in.Cadence)}
		if bad := notFinite(distance, duration, cadence); len(bad) > 0 {
			return Submission{}, &ValidationError{Fields: bad, Reason: "not a number"}
		}
		if bad := notPositive(distance, duration, cadence); len(bad) > 0 {
			return Submission{}, &ValidationError{Fields: bad, Reason: "must be positive"}
		}
		if cadence.value != math.Trunc(cadence.value) || cadence.value > math.MaxInt32 {
			return Submission{}, &ValidationError{Fields: []string{"cadence"}, Reason: "must be a whole number"}
		}
		sub.CadenceSpm = int(cadence.value)
		if pace := models.Pace(sub.DistanceKm, sub.DurationMin); !isFinite(pace) {
			return Submission{}, &ValidationError{Fields: []string{"distance", "duration"}, Reason: "pace out of range"}
		}

	case models.KindCycling:
		elevation := field{"elevation", parseNumber(in.Elevation)}
		if bad := notFinite(distance, duration, elevation); len(bad) > 0 {
			return Submission{}, &ValidationError{Fields: bad, Reason: "not a number"}
		}
		if bad := notPositive(distance, duration); len(bad) > 0 {
			return Submission{}, &ValidationError{Fields: bad, Reason: "must be positive"}
		}
		if elevation.value < 0 {
			return Submission{}, &ValidationError{Fields: []string{"elevation"}, Reason: "must not be negative"}
		}
		sub.ElevationM = elevation.value
		if speed := models.Speed(sub.DistanceKm, sub.DurationMin); !isFinite(speed) {
			return Submission{}, &ValidationError{Fields: []string{"distance", "duration"}, Reason: "speed out of range"}
		}
	}
	return sub, nil
}

// Build constructs the workout for a validated submission at the given spot.
func (s Submission) Build(at models.Coords) models.Workout {
	if s.Kind == models.KindCycling {
		return models.NewCycling(at, s.DistanceKm, s.DurationMin, s.ElevationM)
	}
	return models.NewRunning(at, s.DistanceKm, s.DurationMin, s.CadenceSpm)
}
