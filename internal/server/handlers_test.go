package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/claude/mapty/internal/app"
	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/listview"
	"github.com/claude/mapty/internal/mapview"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/notify"
	"github.com/claude/mapty/internal/storage"
)

var home = models.Coords{Lat: 40.0, Lng: -73.0}

type testEnv struct {
	srv    *Server
	ctrl   *app.Controller
	events *app.Dispatcher
	slot   *storage.Memory
}

func newTestEnv(t *testing.T, mapUp bool) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	slot := storage.NewMemory()
	scene := mapview.NewScene(mapview.Tiles{URL: "https://tiles/{z}/{x}/{y}.png"})
	list := listview.New()
	notes := notify.NewCenter(log)
	ctrl := app.New(slot, mapview.New(scene, 13), list, notes, log)
	events := app.NewDispatcher(log)

	ctx, cancel := context.WithCancel(context.Background())
	go events.Run(ctx)
	t.Cleanup(cancel)

	err := events.Do(ctx, func() {
		ctrl.Restore(ctx)
		if mapUp {
			ctrl.MapReady(home)
		}
		notes.Drain()
	})
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{
		srv:    New(ctrl, events, scene, list, notes, log),
		ctrl:   ctrl,
		events: events,
		slot:   slot,
	}
}

func (e *testEnv) call(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, Snapshot) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)

	var snap Snapshot
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		json.Unmarshal(rec.Body.Bytes(), &snap)
	}
	return rec, snap
}

// TestStateEmpty verifies the initial snapshot of a fresh app.
func TestStateEmpty(t *testing.T) {
	env := newTestEnv(t, true)
	rec, snap := env.call(t, http.MethodGet, "/api/v1/state", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if snap.State != app.StateIdle {
		t.Errorf("state = %q, want idle", snap.State)
	}
	if !snap.Map.Ready || len(snap.Map.Layers) != 1 {
		t.Errorf("map = %+v, want ready with anchor", snap.Map)
	}
	if len(snap.List) != 0 {
		t.Errorf("list = %d entries, want 0", len(snap.List))
	}
	if snap.Form.Visible != "cadence" {
		t.Errorf("form.visible = %q, want cadence", snap.Form.Visible)
	}
}

// TestClickSubmitFlow drives a workout from click to list over HTTP.
func TestClickSubmitFlow(t *testing.T) {
	env := newTestEnv(t, true)

	rec, snap := env.call(t, http.MethodPost, "/api/v1/map/click", `{"lat":40.01,"lng":-73.02}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("click status = %d, want 200", rec.Code)
	}
	if snap.State != app.StateFormOpen || snap.Form.Focus != "distance" {
		t.Fatalf("after click: state=%s form=%+v", snap.State, snap.Form)
	}
	if snap.Pending == nil || *snap.Pending != (models.Coords{Lat: 40.01, Lng: -73.02}) {
		t.Errorf("pending = %+v", snap.Pending)
	}

	rec, snap = env.call(t, http.MethodPost, "/api/v1/form",
		`{"type":"running","distance":"5","duration":"25","cadence":"150"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if snap.State != app.StateIdle || snap.Pending != nil {
		t.Errorf("after submit: state=%s pending=%+v", snap.State, snap.Pending)
	}
	if len(snap.List) != 1 || snap.List[0].Kind != models.KindRunning {
		t.Fatalf("list = %+v", snap.List)
	}
	if n := len(snap.Map.Layers); n != 3 {
		t.Errorf("layers = %d, want 3", n)
	}
	if len(snap.Notifications) != 1 || snap.Notifications[0].Message != app.MsgWorkoutAdded {
		t.Errorf("notifications = %+v", snap.Notifications)
	}

	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/workouts", nil))
	var workouts []models.Workout
	if err := json.NewDecoder(rec.Body).Decode(&workouts); err != nil {
		t.Fatal(err)
	}
	if len(workouts) != 1 || workouts[0].Running == nil || workouts[0].Running.PaceMinPerKm != 5 {
		t.Errorf("workouts = %+v", workouts)
	}

	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/workouts/"+workouts[0].ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get workout status = %d, want 200", rec.Code)
	}

	if _, ok, _ := env.slot.Load(context.Background()); !ok {
		t.Error("workout not persisted")
	}
}

// TestSubmitInvalid verifies 422 with the alert in the snapshot.
func TestSubmitInvalid(t *testing.T) {
	env := newTestEnv(t, true)
	env.call(t, http.MethodPost, "/api/v1/map/click", `{"lat":40,"lng":-73}`)

	rec, snap := env.call(t, http.MethodPost, "/api/v1/form",
		`{"type":"cycling","distance":"abc","duration":"60","elevation":"10"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if snap.State != app.StateFormOpen {
		t.Errorf("state = %s, want form_open", snap.State)
	}
	if snap.Form.Values.Distance != "abc" || snap.Form.Visible != "elevation" {
		t.Errorf("form = %+v", snap.Form)
	}
	if len(snap.Notifications) != 1 || snap.Notifications[0].Level != notify.LevelAlert {
		t.Errorf("notifications = %+v", snap.Notifications)
	}
	if len(snap.List) != 0 {
		t.Errorf("list = %d, want 0", len(snap.List))
	}
}

func TestSubmitWithoutClick(t *testing.T) {
	env := newTestEnv(t, true)
	rec, _ := env.call(t, http.MethodPost, "/api/v1/form",
		`{"type":"running","distance":"5","duration":"25","cadence":"150"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

// TestClickWithoutMap verifies clicks are refused until the map is up.
func TestClickWithoutMap(t *testing.T) {
	env := newTestEnv(t, false)
	rec, snap := env.call(t, http.MethodPost, "/api/v1/map/click", `{"lat":40,"lng":-73}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if snap.State != app.StateIdle || snap.Map.Ready {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestBadRequests(t *testing.T) {
	env := newTestEnv(t, true)
	cases := []struct {
		path, body string
	}{
		{"/api/v1/map/click", `not json`},
		{"/api/v1/map/click", `{"lat":91,"lng":0}`},
		{"/api/v1/form", `[`},
		{"/api/v1/form/type", `{"type":"swimming"}`},
		{"/api/v1/list/select", `{`},
	}
	for _, tc := range cases {
		rec, _ := env.call(t, http.MethodPost, tc.path, tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s %s: status = %d, want 400", tc.path, tc.body, rec.Code)
		}
	}
}

func TestFormTypeAndDismiss(t *testing.T) {
	env := newTestEnv(t, true)

	_, snap := env.call(t, http.MethodPost, "/api/v1/form/type", `{"type":"cycling"}`)
	if snap.Form.Type != models.KindCycling || snap.Form.Visible != "elevation" {
		t.Errorf("form = %+v", snap.Form)
	}

	env.call(t, http.MethodPost, "/api/v1/map/click", `{"lat":40,"lng":-73}`)
	_, snap = env.call(t, http.MethodPost, "/api/v1/form/dismiss", "")
	if snap.State != app.StateIdle || snap.Form.Open {
		t.Errorf("after dismiss: state=%s form=%+v", snap.State, snap.Form)
	}
}

// TestSortAndSelect checks list ordering and recentering over HTTP.
func TestSortAndSelect(t *testing.T) {
	env := newTestEnv(t, true)
	for _, body := range []string{
		`{"type":"running","distance":"5","duration":"25","cadence":"150"}`,
		`{"type":"cycling","distance":"2","duration":"10","elevation":"0"}`,
	} {
		env.call(t, http.MethodPost, "/api/v1/map/click", `{"lat":48.85,"lng":2.35}`)
		if rec, _ := env.call(t, http.MethodPost, "/api/v1/form", body); rec.Code != http.StatusOK {
			t.Fatalf("submit %s: status %d", body, rec.Code)
		}
	}

	_, snap := env.call(t, http.MethodPost, "/api/v1/list/sort", "")
	if !snap.Sorted || len(snap.List) != 2 || snap.List[0].Kind != models.KindCycling {
		t.Fatalf("sorted list = %+v", snap.List)
	}

	seq := snap.Map.Camera.Seq
	_, snap = env.call(t, http.MethodPost, "/api/v1/list/select", `{"id":"unknown"}`)
	if snap.Map.Camera.Seq != seq {
		t.Error("camera moved for unknown id")
	}

	_, snap = env.call(t, http.MethodPost, "/api/v1/list/select", `{"id":"`+snap.List[0].ID+`"}`)
	if snap.Map.Camera.Seq == seq || !snap.Map.Camera.Options.Animate {
		t.Errorf("camera = %+v, want animated move", snap.Map.Camera)
	}
	if snap.Map.Camera.Center != (models.Coords{Lat: 48.85, Lng: 2.35}) {
		t.Errorf("center = %+v", snap.Map.Camera.Center)
	}

	_, snap = env.call(t, http.MethodPost, "/api/v1/list/sort", "")
	if snap.Sorted || snap.List[0].Kind != models.KindRunning {
		t.Errorf("unsorted list = %+v", snap.List)
	}
}

func TestReset(t *testing.T) {
	env := newTestEnv(t, true)
	env.call(t, http.MethodPost, "/api/v1/map/click", `{"lat":40,"lng":-73}`)
	env.call(t, http.MethodPost, "/api/v1/form", `{"type":"running","distance":"5","duration":"25","cadence":"150"}`)

	rec, snap := env.call(t, http.MethodPost, "/api/v1/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(snap.List) != 0 || len(snap.Map.Layers) != 1 {
		t.Errorf("after reset: list=%d layers=%d", len(snap.List), len(snap.Map.Layers))
	}
	if _, ok, _ := env.slot.Load(context.Background()); ok {
		t.Error("slot not cleared")
	}
}

func TestGetWorkoutNotFound(t *testing.T) {
	env := newTestEnv(t, true)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/workouts/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestLocation covers the browser geolocation report endpoint.
func TestLocation(t *testing.T) {
	env := newTestEnv(t, false)

	rec, _ := env.call(t, http.MethodPost, "/api/v1/location", `{"lat":1,"lng":2}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("without locator: status = %d, want 409", rec.Code)
	}

	b := geo.NewBrowser()
	env.srv.SetLocator(b)

	rec, _ = env.call(t, http.MethodPost, "/api/v1/location", `{"lat":100,"lng":2}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out of range: status = %d, want 400", rec.Code)
	}

	rec, _ = env.call(t, http.MethodPost, "/api/v1/location", `{"lat":1,"lng":2}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	at, err := b.Locate(context.Background())
	if err != nil || at != (models.Coords{Lat: 1, Lng: 2}) {
		t.Errorf("Locate = %+v, %v", at, err)
	}

	rec, _ = env.call(t, http.MethodPost, "/api/v1/location", `{"error":"denied"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("second report: status = %d, want 409", rec.Code)
	}
}

// TestStoppedDispatcher verifies requests fail cleanly after shutdown.
func TestStoppedDispatcher(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	scene := mapview.NewScene(mapview.Tiles{})
	list := listview.New()
	notes := notify.NewCenter(log)
	ctrl := app.New(storage.NewMemory(), mapview.New(scene, 13), list, notes, log)
	events := app.NewDispatcher(log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events.Run(ctx)

	srv := New(ctrl, events, scene, list, notes, log)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, true)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mapty_workouts_in_collection") {
		t.Error("metrics output missing mapty_workouts_in_collection")
	}
}

// TestFrontendFallback verifies unknown paths serve index.html.
func TestFrontendFallback(t *testing.T) {
	env := newTestEnv(t, true)
	env.srv.SetFrontend(fstest.MapFS{
		"index.html": {Data: []byte("<html>mapty</html>")},
		"app.js":     {Data: []byte("console.log(1)")},
	})

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	if !strings.Contains(rec.Body.String(), "console.log") {
		t.Errorf("/app.js body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/some/page", nil))
	if !strings.Contains(rec.Body.String(), "mapty") {
		t.Errorf("fallback body = %q", rec.Body.String())
	}
}
