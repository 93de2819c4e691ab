// Package listview renders the sidebar list of workouts.
package listview

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/claude/mapty/internal/models"
)

var entryTmpl = template.Must(template.New("entry").Parse(`<li class="workout workout--{{.Kind}}" data-id="{{.ID}}">
  <h2 class="workout__title">{{.Title}}</h2>
  <div class="workout__details">
    <span class="workout__icon">{{.Icon}}</span>
    <span class="workout__value">{{.Distance}}</span>
    <span class="workout__unit">km</span>
  </div>
  <div class="workout__details">
    <span class="workout__icon">⏱</span>
    <span class="workout__value">{{.Duration}}</span>
    <span class="workout__unit">min</span>
  </div>
  <div class="workout__details">
    <span class="workout__icon">⚡️</span>
    <span class="workout__value">{{.Derived}}</span>
    <span class="workout__unit">{{.DerivedUnit}}</span>
  </div>
  <div class="workout__details">
    <span class="workout__icon">{{.MetricIcon}}</span>
    <span class="workout__value">{{.Metric}}</span>
    <span class="workout__unit">{{.MetricUnit}}</span>
  </div>
</li>`))

type entryData struct {
	ID, Kind, Title, Icon          string
	Distance, Duration             string
	Derived, DerivedUnit           string
	MetricIcon, Metric, MetricUnit string
}

// Entry is one rendered list item. ID addresses the workout it shows.
type Entry struct {
	ID   string        `json:"id"`
	Kind models.Kind   `json:"kind"`
	HTML template.HTML `json:"html"`
}

// View is the ordered list of rendered entries.
type View struct {
	entries []Entry
}

func New() *View {
	return &View{}
}

// Append renders w and adds it at the end of the list.
func (v *View) Append(w models.Workout) error {
	e, err := Render(w)
	if err != nil {
		return err
	}
	v.entries = append(v.entries, e)
	return nil
}

// Rebuild replaces the list with workouts in the given order. The old list
// is kept if any entry fails to render.
func (v *View) Rebuild(workouts []models.Workout) error {
	next := make([]Entry, 0, len(workouts))
	for _, w := range workouts {
		e, err := Render(w)
		if err != nil {
			return err
		}
		next = append(next, e)
	}
	v.entries = next
	return nil
}

// Entries returns a copy of the rendered list in display order.
func (v *View) Entries() []Entry {
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// IDs returns the workout ids in display order.
func (v *View) IDs() []string {
	ids := make([]string, len(v.entries))
	for i, e := range v.entries {
		ids[i] = e.ID
	}
	return ids
}

// Lookup returns the entry for a workout id.
func (v *View) Lookup(id string) (Entry, bool) {
	for _, e := range v.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of rendered entries.
func (v *View) Len() int {
	return len(v.entries)
}

// Render produces the list item for a single workout.
func Render(w models.Workout) (Entry, error) {
	d := entryData{
		ID:       w.ID,
		Kind:     string(w.Kind),
		Title:    w.Description,
		Icon:     w.Kind.Icon(),
		Distance: verbatim(w.DistanceKm),
		Duration: verbatim(w.DurationMin),
	}
	switch w.Kind {
	case models.KindRunning:
		if w.Running == nil {
			return Entry{}, fmt.Errorf("workout %s: running payload missing", w.ID)
		}
		d.Derived, d.DerivedUnit = oneDecimal(w.Running.PaceMinPerKm), "min/km"
		d.MetricIcon, d.Metric, d.MetricUnit = "🦶🏼", strconv.Itoa(w.Running.CadenceSpm), "spm"
	case models.KindCycling:
		if w.Cycling == nil {
			return Entry{}, fmt.Errorf("workout %s: cycling payload missing", w.ID)
		}
		d.Derived, d.DerivedUnit = oneDecimal(w.Cycling.SpeedKmPerH), "km/h"
		d.MetricIcon, d.Metric, d.MetricUnit = "⛰", verbatim(w.Cycling.ElevationGainM), "m"
	default:
		return Entry{}, fmt.Errorf("workout %s: unknown kind %q", w.ID, w.Kind)
	}

	var buf bytes.Buffer
	if err := entryTmpl.Execute(&buf, d); err != nil {
		return Entry{}, fmt.Errorf("rendering workout %s: %w", w.ID, err)
	}
	return Entry{ID: w.ID, Kind: w.Kind, HTML: template.HTML(buf.String())}, nil
}

func verbatim(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
