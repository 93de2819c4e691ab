// Package app owns the workout collection and keeps the map, the list and
// storage in step with it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/claude/mapty/internal/codec"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/notify"
	"github.com/claude/mapty/internal/observability"
	"github.com/claude/mapty/internal/storage"
)

var (
	// ErrFormClosed is returned by Submit when no map click opened the form.
	ErrFormClosed = errors.New("form is not open")
	// ErrMapUnavailable is returned for map interactions before the map is up.
	ErrMapUnavailable = errors.New("map unavailable")
)

// Messages shown to the user.
const (
	MsgMapLoaded      = "Map loaded"
	MsgLocationFailed = "Could not get your position"
	MsgWorkoutAdded   = "Workout added"
	MsgSaveFailed     = "Could not save workouts; they are kept until you close the page"
	MsgLoadFailed     = "Could not load saved workouts"
	MsgCleared        = "Workouts cleared"
	MsgClearFailed    = "Could not clear saved workouts"
)

// State is the form flow state.
type State string

const (
	StateIdle     State = "idle"
	StateFormOpen State = "form_open"
)

// MapView is the map the controller draws on.
type MapView interface {
	Init(anchor models.Coords, onClick func(models.Coords))
	Ready() bool
	Render(w models.Workout)
	Recenter(w models.Workout) bool
	Reset()
}

// ListView is the sidebar list the controller renders into.
type ListView interface {
	Append(w models.Workout) error
	Rebuild(workouts []models.Workout) error
}

// Form is what the page needs to draw the form.
type Form struct {
	Open bool        `json:"open"`
	Type models.Kind `json:"type"`
	// Visible is the kind-specific field shown: "cadence" or "elevation".
	Visible string    `json:"visible"`
	Focus   string    `json:"focus,omitempty"`
	Values  FormInput `json:"values"`
}

// Controller is not safe for concurrent use; run its methods through a
// Dispatcher.
type Controller struct {
	slot  storage.Slot
	maps  MapView
	list  ListView
	notes notify.Notifier
	log   *slog.Logger

	workouts []models.Workout
	state    State
	pending  *models.Coords
	formType models.Kind
	values   FormInput
	focus    string
	sorted   bool
}

// New creates a controller with an empty collection. Call Restore to load
// stored workouts.
func New(slot storage.Slot, maps MapView, list ListView, notes notify.Notifier, log *slog.Logger) *Controller {
	return &Controller{
		slot:     slot,
		maps:     maps,
		list:     list,
		notes:    notes,
		log:      log,
		state:    StateIdle,
		formType: models.KindRunning,
	}
}

// Restore replaces the collection with the stored one and renders the
// list. Markers are drawn only if the map is already up; otherwise MapReady
// draws them. The map must not hold workout markers yet.
func (c *Controller) Restore(ctx context.Context) error {
	c.workouts = nil
	c.sorted = false
	defer c.refresh()

	text, ok, err := c.slot.Load(ctx)
	if err != nil {
		observability.RecordStorageFailure("load")
		c.log.Error("loading workouts", "error", err)
		c.notes.Toast(MsgLoadFailed)
		return fmt.Errorf("restoring workouts: %w", err)
	}
	if !ok {
		c.log.Info("no stored workouts")
		return nil
	}

	workouts, report, err := codec.Decode(text)
	if err != nil {
		observability.RecordRestoreSkipped(1)
		c.log.Warn("stored workouts unreadable, starting empty", "error", err)
		c.notes.Toast(MsgLoadFailed)
		return nil
	}
	for _, s := range report.Skipped {
		c.log.Warn("skipping stored workout", "index", s.Index, "id", s.ID, "reason", s.Reason)
	}
	observability.RecordRestoreSkipped(len(report.Skipped))

	c.workouts = workouts
	c.log.Info("workouts restored", "count", len(workouts), "skipped", len(report.Skipped))
	return nil
}

// refresh redraws the list from canonical order and, when the map is up,
// every marker.
func (c *Controller) refresh() {
	if err := c.list.Rebuild(c.workouts); err != nil {
		c.log.Error("rendering workout list", "error", err)
	}
	if c.maps.Ready() {
		for _, w := range c.workouts {
			c.maps.Render(w)
		}
	}
	observability.SetCollectionSize(len(c.workouts))
}

// MapReady initializes the map at the user's position and draws every
// workout already in the collection. Later calls are ignored.
func (c *Controller) MapReady(anchor models.Coords) {
	if c.maps.Ready() {
		return
	}
	c.maps.Init(anchor, c.handleMapClick)
	for _, w := range c.workouts {
		c.maps.Render(w)
	}
	c.log.Info("map ready", "lat", anchor.Lat, "lng", anchor.Lng, "markers", len(c.workouts))
	c.notes.Toast(MsgMapLoaded)
}

// MapFailed reports that the position could not be obtained. The app keeps
// running without a map.
func (c *Controller) MapFailed(err error) {
	c.log.Warn("map unavailable", "error", err)
	c.notes.Alert(MsgLocationFailed)
}

// handleMapClick opens the form for a new workout at the clicked spot. A
// click while the form is open only moves the pending spot.
func (c *Controller) handleMapClick(at models.Coords) {
	c.pending = &at
	c.state = StateFormOpen
	c.focus = "distance"
}

// SetType switches the form between running and cycling.
func (c *Controller) SetType(kind models.Kind) {
	c.formType = kind
	c.values.Type = string(kind)
}

// Submit validates the form and, on success, records the workout at the
// pending click spot. A failed save is reported but does not undo the
// commit.
func (c *Controller) Submit(ctx context.Context, in FormInput) (models.Workout, error) {
	if c.state != StateFormOpen || c.pending == nil {
		return models.Workout{}, ErrFormClosed
	}
	if kind, ok := models.ParseKind(in.Type); ok {
		c.formType = kind
	}
	c.values = in
	c.focus = ""

	sub, err := Validate(in)
	if err != nil {
		observability.RecordValidationFailure()
		c.log.Info("workout rejected", "error", err)
		c.notes.Alert(MsgInvalidInput)
		return models.Workout{}, err
	}

	w := sub.Build(*c.pending)
	c.workouts = append(c.workouts, w)
	observability.RecordCommit(string(w.Kind))
	observability.SetCollectionSize(len(c.workouts))

	c.maps.Render(w)
	if c.sorted {
		err = c.list.Rebuild(sortedByDistance(c.workouts))
	} else {
		err = c.list.Append(w)
	}
	if err != nil {
		c.log.Error("rendering workout", "id", w.ID, "error", err)
	}

	c.log.Info("workout added", "id", w.ID, "kind", w.Kind, "distance_km", w.DistanceKm, "duration_min", w.DurationMin)
	c.closeForm()

	if err := c.persist(ctx); err != nil {
		c.notes.Toast(MsgSaveFailed)
	} else {
		c.notes.Toast(MsgWorkoutAdded)
	}
	return w, nil
}

func (c *Controller) persist(ctx context.Context) error {
	text, err := codec.Encode(c.workouts)
	if err == nil {
		err = c.slot.Save(ctx, text)
	}
	if err != nil {
		observability.RecordStorageFailure("save")
		c.log.Error("saving workouts", "count", len(c.workouts), "error", err)
		return err
	}
	return nil
}

// DismissForm closes the form without adding a workout.
func (c *Controller) DismissForm() {
	c.closeForm()
}

func (c *Controller) closeForm() {
	c.state = StateIdle
	c.pending = nil
	c.focus = ""
	c.values = FormInput{Type: string(c.formType)}
}

// ToggleSort flips between distance-ascending and canonical order in the
// list. The collection itself and the map are not touched.
func (c *Controller) ToggleSort() error {
	sorted := !c.sorted
	view := c.workouts
	if sorted {
		view = sortedByDistance(c.workouts)
	}
	if err := c.list.Rebuild(view); err != nil {
		return fmt.Errorf("rendering sorted list: %w", err)
	}
	c.sorted = sorted
	return nil
}

func sortedByDistance(workouts []models.Workout) []models.Workout {
	out := make([]models.Workout, len(workouts))
	copy(out, workouts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

// Recenter moves the map to the workout with the given id. Unknown ids and
// the empty id are ignored.
func (c *Controller) Recenter(id string) bool {
	w, ok := c.Lookup(id)
	if !ok {
		return false
	}
	return c.maps.Recenter(w)
}

// Reset clears storage and reloads from it, leaving an empty app. The map
// keeps its position.
func (c *Controller) Reset(ctx context.Context) error {
	if err := c.slot.Clear(ctx); err != nil {
		observability.RecordStorageFailure("clear")
		c.log.Error("clearing workouts", "error", err)
		c.notes.Alert(MsgClearFailed)
		return fmt.Errorf("resetting: %w", err)
	}

	c.closeForm()
	c.maps.Reset()
	if err := c.Restore(ctx); err != nil {
		return err
	}
	c.log.Info("workouts cleared")
	c.notes.Toast(MsgCleared)
	return nil
}

// Workouts returns the collection in canonical order.
func (c *Controller) Workouts() []models.Workout {
	out := make([]models.Workout, len(c.workouts))
	copy(out, c.workouts)
	return out
}

// Lookup finds a workout by id.
func (c *Controller) Lookup(id string) (models.Workout, bool) {
	if id == "" {
		return models.Workout{}, false
	}
	for _, w := range c.workouts {
		if w.ID == id {
			return w, true
		}
	}
	return models.Workout{}, false
}

// State returns the form flow state.
func (c *Controller) State() State {
	return c.state
}

// Pending returns the spot the next submission will use.
func (c *Controller) Pending() (models.Coords, bool) {
	if c.pending == nil {
		return models.Coords{}, false
	}
	return *c.pending, true
}

// Sorted reports whether the list is sorted by distance.
func (c *Controller) Sorted() bool {
	return c.sorted
}

// Form describes the form for the page.
func (c *Controller) Form() Form {
	visible := "cadence"
	if c.formType == models.KindCycling {
		visible = "elevation"
	}
	values := c.values
	if values.Type == "" {
		values.Type = string(c.formType)
	}
	return Form{
		Open:    c.state == StateFormOpen,
		Type:    c.formType,
		Visible: visible,
		Focus:   c.focus,
		Values:  values,
	}
}
