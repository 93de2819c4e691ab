package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/claude/mapty/internal/app"
	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/listview"
	"github.com/claude/mapty/internal/mapview"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/notify"
	"github.com/go-chi/chi/v5"
)

// Snapshot is everything the page needs to redraw itself.
type Snapshot struct {
	State         app.State             `json:"state"`
	Pending       *models.Coords        `json:"pending,omitempty"`
	Sorted        bool                  `json:"sorted"`
	Form          app.Form              `json:"form"`
	List          []listview.Entry      `json:"list"`
	Map           mapview.SceneState    `json:"map"`
	Notifications []notify.Notification `json:"notifications"`
}

// snapshot must run on the dispatcher. It drains pending notifications.
func (s *Server) snapshot() Snapshot {
	snap := Snapshot{
		State:         s.ctrl.State(),
		Sorted:        s.ctrl.Sorted(),
		Form:          s.ctrl.Form(),
		List:          s.list.Entries(),
		Map:           s.scene.State(),
		Notifications: s.notes.Drain(),
	}
	if at, ok := s.ctrl.Pending(); ok {
		snap.Pending = &at
	}
	return snap
}

// dispatch runs fn as one event and captures the snapshot it leaves behind.
func (s *Server) dispatch(ctx context.Context, fn func() error) (Snapshot, error) {
	var (
		snap  Snapshot
		fnErr error
	)
	err := s.events.Do(ctx, func() {
		fnErr = fn()
		snap = s.snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, fnErr
}

// respond writes the snapshot with a status derived from err.
func (s *Server) respond(w http.ResponseWriter, snap Snapshot, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, app.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, snap)
	case errors.Is(err, app.ErrFormClosed), errors.Is(err, app.ErrMapUnavailable):
		writeJSON(w, http.StatusConflict, snap)
	case errors.Is(err, app.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, app.ErrEventPanicked):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		s.log.Error("event failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, snap)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dispatch(r.Context(), func() error { return nil })
	s.respond(w, snap, err)
}

type locationRequest struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Error string  `json:"error,omitempty"`
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	if s.locator == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "location is not taken from the browser"})
		return
	}
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var reportErr error
	at := models.Coords{Lat: req.Lat, Lng: req.Lng}
	switch {
	case req.Error != "":
		reportErr = errors.New(req.Error)
	case !geo.ValidCoords(at):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "coordinates out of range"})
		return
	}
	if !s.locator.Report(at, reportErr) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "location already reported"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var at models.Coords
	if err := json.NewDecoder(r.Body).Decode(&at); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if !geo.ValidCoords(at) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "coordinates out of range"})
		return
	}

	snap, err := s.dispatch(r.Context(), func() error {
		if !s.scene.Click(at) {
			return app.ErrMapUnavailable
		}
		return nil
	})
	s.respond(w, snap, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in app.FormInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	// The commit must not be cut short by a client that hangs up mid-save.
	ctx := context.WithoutCancel(r.Context())
	snap, err := s.dispatch(r.Context(), func() error {
		_, err := s.ctrl.Submit(ctx, in)
		return err
	})
	s.respond(w, snap, err)
}

func (s *Server) handleFormType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	kind, ok := models.ParseKind(req.Type)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown workout type"})
		return
	}

	snap, err := s.dispatch(r.Context(), func() error {
		s.ctrl.SetType(kind)
		return nil
	})
	s.respond(w, snap, err)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dispatch(r.Context(), func() error {
		s.ctrl.DismissForm()
		return nil
	})
	s.respond(w, snap, err)
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dispatch(r.Context(), s.ctrl.ToggleSort)
	s.respond(w, snap, err)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	snap, err := s.dispatch(r.Context(), func() error {
		s.ctrl.Recenter(req.ID)
		return nil
	})
	s.respond(w, snap, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	snap, err := s.dispatch(r.Context(), func() error {
		return s.ctrl.Reset(ctx)
	})
	s.respond(w, snap, err)
}

func (s *Server) handleWorkouts(w http.ResponseWriter, r *http.Request) {
	var workouts []models.Workout
	err := s.events.Do(r.Context(), func() {
		workouts = s.ctrl.Workouts()
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var (
		workout models.Workout
		found   bool
	)
	err := s.events.Do(r.Context(), func() {
		workout, found = s.ctrl.Lookup(id)
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
