// Package codec converts the workout collection to and from the text stored
// in a persistence slot.
//
// The stored form is a JSON array of flat records, one per workout, in
// canonical order:
//
//	[{"id":"...","date":"2026-04-14T08:00:00Z","coords":[40,-73],
//	  "distance":5,"duration":25,"type":"running","description":"Running on April 14",
//	  "cadence":150,"pace":5}]
//
// Derived fields are stored and trusted on decode; they are only recomputed
// when missing from a record.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/claude/mapty/internal/models"
)

type record struct {
	ID          string      `json:"id"`
	Date        time.Time   `json:"date"`
	Coords      [2]*float64 `json:"coords"`
	Distance    float64     `json:"distance"`
	Duration    float64     `json:"duration"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`

	Cadence *float64 `json:"cadence,omitempty"`
	Pace    *float64 `json:"pace,omitempty"`

	ElevationGain *float64 `json:"elevationGain,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
}

// Skipped describes a stored entry that could not be restored.
type Skipped struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Report lists the entries dropped by Decode.
type Report struct {
	Total   int
	Skipped []Skipped
}

// Encode serializes workouts in the given order.
func Encode(workouts []models.Workout) (string, error) {
	recs := make([]record, 0, len(workouts))
	for _, w := range workouts {
		rec, err := toRecord(w)
		if err != nil {
			return "", err
		}
		recs = append(recs, rec)
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("encoding workouts: %w", err)
	}
	return string(data), nil
}

func toRecord(w models.Workout) (record, error) {
	lat, lng := w.Coords.Lat, w.Coords.Lng
	rec := record{
		ID:          w.ID,
		Date:        w.CreatedAt,
		Coords:      [2]*float64{&lat, &lng},
		Distance:    w.DistanceKm,
		Duration:    w.DurationMin,
		Type:        string(w.Kind),
		Description: w.Description,
	}
	switch w.Kind {
	case models.KindRunning:
		if w.Running == nil {
			return record{}, fmt.Errorf("workout %s: running payload missing", w.ID)
		}
		cadence := float64(w.Running.CadenceSpm)
		pace := w.Running.PaceMinPerKm
		rec.Cadence, rec.Pace = &cadence, &pace
	case models.KindCycling:
		if w.Cycling == nil {
			return record{}, fmt.Errorf("workout %s: cycling payload missing", w.ID)
		}
		elev := w.Cycling.ElevationGainM
		speed := w.Cycling.SpeedKmPerH
		rec.ElevationGain, rec.Speed = &elev, &speed
	default:
		return record{}, fmt.Errorf("workout %s: unknown kind %q", w.ID, w.Kind)
	}
	return rec, nil
}

// Decode restores a collection. Entries that are malformed, carry an
// unknown type, or repeat an earlier id are skipped and listed in the
// report. Only text that is not a JSON array at all returns an error.
func Decode(text string) ([]models.Workout, Report, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(text), &raws); err != nil {
		return nil, Report{}, fmt.Errorf("decoding workouts: %w", err)
	}

	report := Report{Total: len(raws)}
	workouts := make([]models.Workout, 0, len(raws))
	seen := make(map[string]bool, len(raws))

	for i, raw := range raws {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			report.Skipped = append(report.Skipped, Skipped{Index: i, Reason: err.Error()})
			continue
		}
		w, err := fromRecord(rec)
		if err != nil {
			report.Skipped = append(report.Skipped, Skipped{Index: i, ID: rec.ID, Reason: err.Error()})
			continue
		}
		if seen[w.ID] {
			report.Skipped = append(report.Skipped, Skipped{Index: i, ID: w.ID, Reason: "duplicate id"})
			continue
		}
		seen[w.ID] = true
		workouts = append(workouts, w)
	}
	return workouts, report, nil
}

func fromRecord(rec record) (models.Workout, error) {
	if rec.ID == "" {
		return models.Workout{}, fmt.Errorf("missing id")
	}
	if rec.Coords[0] == nil || rec.Coords[1] == nil {
		return models.Workout{}, fmt.Errorf("missing coords")
	}
	if !positive(rec.Distance) || !positive(rec.Duration) {
		return models.Workout{}, fmt.Errorf("distance and duration must be positive")
	}

	kind, ok := models.ParseKind(rec.Type)
	if !ok {
		return models.Workout{}, fmt.Errorf("unknown type %q", rec.Type)
	}

	w := models.Workout{
		ID:          rec.ID,
		CreatedAt:   rec.Date,
		Coords:      models.Coords{Lat: *rec.Coords[0], Lng: *rec.Coords[1]},
		DistanceKm:  rec.Distance,
		DurationMin: rec.Duration,
		Kind:        kind,
		Description: rec.Description,
	}
	if w.Description == "" {
		w.Description = models.Describe(kind, rec.Date)
	}

	switch kind {
	case models.KindRunning:
		if rec.Cadence == nil || !positive(*rec.Cadence) || *rec.Cadence != math.Trunc(*rec.Cadence) || *rec.Cadence > math.MaxInt32 {
			return models.Workout{}, fmt.Errorf("running entry needs a positive whole cadence")
		}
		pace := models.Pace(rec.Distance, rec.Duration)
		if rec.Pace != nil {
			pace = *rec.Pace
		}
		if !finite(pace) {
			return models.Workout{}, fmt.Errorf("pace out of range")
		}
		w.Running = &models.RunningStats{CadenceSpm: int(*rec.Cadence), PaceMinPerKm: pace}
	case models.KindCycling:
		if rec.ElevationGain == nil || !finite(*rec.ElevationGain) || *rec.ElevationGain < 0 {
			return models.Workout{}, fmt.Errorf("cycling entry needs a non-negative elevation gain")
		}
		speed := models.Speed(rec.Distance, rec.Duration)
		if rec.Speed != nil {
			speed = *rec.Speed
		}
		if !finite(speed) {
			return models.Workout{}, fmt.Errorf("speed out of range")
		}
		w.Cycling = &models.CyclingStats{ElevationGainM: *rec.ElevationGain, SpeedKmPerH: speed}
	}
	return w, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return finite(v) && v > 0
}
