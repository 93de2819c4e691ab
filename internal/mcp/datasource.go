package mcp

import (
	"context"
	"errors"

	"github.com/claude/mapty/internal/app"
	"github.com/claude/mapty/internal/models"
)

// ErrNotFound is returned by GetWorkout for an unknown id.
var ErrNotFound = errors.New("workout not found")

// DataSource abstracts where MCP tools read workouts from. Both Local (in
// process) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListWorkouts(ctx context.Context) ([]models.Workout, error)
	GetWorkout(ctx context.Context, id string) (models.Workout, error)
}

// Local reads straight from the controller, queuing each read as an event.
type Local struct {
	ctrl   *app.Controller
	events *app.Dispatcher
}

// Compile-time check: *Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

func NewLocal(ctrl *app.Controller, events *app.Dispatcher) *Local {
	return &Local{ctrl: ctrl, events: events}
}

func (l *Local) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	var out []models.Workout
	if err := l.events.Do(ctx, func() { out = l.ctrl.Workouts() }); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Local) GetWorkout(ctx context.Context, id string) (models.Workout, error) {
	var (
		w  models.Workout
		ok bool
	)
	if err := l.events.Do(ctx, func() { w, ok = l.ctrl.Lookup(id) }); err != nil {
		return models.Workout{}, err
	}
	if !ok {
		return models.Workout{}, ErrNotFound
	}
	return w, nil
}
