package mapview

import (
	"strings"
	"testing"

	"github.com/claude/mapty/internal/models"
)

var home = models.Coords{Lat: 40.0, Lng: -73.0}

func newView() (*View, *Scene) {
	s := NewScene(Tiles{URL: "https://tiles/{z}/{x}/{y}.png"})
	return New(s, 13), s
}

func TestInitDrawsAnchor(t *testing.T) {
	v, s := newView()
	if v.Ready() {
		t.Fatal("ready before Init")
	}
	if s.State().Ready {
		t.Fatal("scene ready before Init")
	}

	v.Init(home, func(models.Coords) {})

	st := s.State()
	if !st.Ready || st.Camera == nil {
		t.Fatalf("state = %+v, want ready with camera", st)
	}
	if st.Camera.Center != home || st.Camera.Zoom != 13 || st.Camera.Options.Animate {
		t.Errorf("camera = %+v", st.Camera)
	}
	if len(st.Layers) != 1 || st.Layers[0].Marker == nil {
		t.Fatalf("layers = %+v, want anchor marker", st.Layers)
	}
	if got := st.Layers[0].Marker.Popup.Content; got != "📍 Current Location" {
		t.Errorf("anchor popup = %q", got)
	}
}

func TestRenderMarkerAndLine(t *testing.T) {
	v, s := newView()
	v.Init(home, func(models.Coords) {})

	run := models.NewRunning(models.Coords{Lat: 40.01, Lng: -73.01}, 5, 25, 150)
	ride := models.NewCycling(models.Coords{Lat: 40.1, Lng: -73.2}, 20, 60, 100)
	v.Render(run)
	v.Render(ride)

	layers := s.State().Layers
	if len(layers) != 5 {
		t.Fatalf("layers = %d, want anchor + 2 per workout", len(layers))
	}

	m := layers[1].Marker
	if m == nil || m.WorkoutID != run.ID || m.At != run.Coords {
		t.Fatalf("marker = %+v", m)
	}
	if m.Popup.AutoClose || m.Popup.CloseOnClick {
		t.Errorf("popup should stay open: %+v", m.Popup)
	}
	if !strings.HasPrefix(m.Popup.Content, "🏃‍♂️ "+run.Description) {
		t.Errorf("popup content = %q", m.Popup.Content)
	}
	if m.Popup.ClassName != "running-popup" {
		t.Errorf("popup class = %q", m.Popup.ClassName)
	}

	line := layers[2].Polyline
	if line == nil || len(line.Points) != 2 || line.Points[0] != home || line.Points[1] != run.Coords {
		t.Fatalf("line = %+v", line)
	}
	if line.Style.Color != ColorRunning || line.Style.DashArray == "" {
		t.Errorf("running line style = %+v", line.Style)
	}
	if got := layers[4].Polyline.Style.Color; got != ColorCycling {
		t.Errorf("cycling line color = %q, want %q", got, ColorCycling)
	}
}

func TestRenderBeforeInitIsNoop(t *testing.T) {
	v, s := newView()
	v.Render(models.NewRunning(home, 1, 1, 1))
	if n := len(s.State().Layers); n != 0 {
		t.Errorf("layers = %d, want 0", n)
	}
	if v.Recenter(models.NewRunning(home, 1, 1, 1)) {
		t.Error("Recenter succeeded before Init")
	}
}

func TestRecenter(t *testing.T) {
	v, s := newView()
	v.Init(home, func(models.Coords) {})
	before := s.State().Camera.Seq

	w := models.NewCycling(models.Coords{Lat: 48.85, Lng: 2.35}, 10, 30, 0)
	if !v.Recenter(w) {
		t.Fatal("Recenter returned false")
	}
	cam := s.State().Camera
	if cam.Center != w.Coords || cam.Zoom != RecenterZoom {
		t.Errorf("camera = %+v", cam)
	}
	if !cam.Options.Animate || cam.Options.DurationSec != 1 {
		t.Errorf("options = %+v, want animated", cam.Options)
	}
	if cam.Seq <= before {
		t.Errorf("seq = %d, want > %d", cam.Seq, before)
	}
}

func TestSceneClick(t *testing.T) {
	v, s := newView()
	if s.Click(home) {
		t.Fatal("click handled before Init")
	}

	var got models.Coords
	v.Init(home, func(at models.Coords) { got = at })
	if !s.Click(models.Coords{Lat: 1, Lng: 2}) {
		t.Fatal("click not handled")
	}
	if got != (models.Coords{Lat: 1, Lng: 2}) {
		t.Errorf("handler got %+v", got)
	}
}

func TestReset(t *testing.T) {
	v, s := newView()
	clicks := 0
	v.Init(home, func(models.Coords) { clicks++ })
	v.Render(models.NewRunning(home, 1, 1, 1))

	v.Reset()

	st := s.State()
	if len(st.Layers) != 1 {
		t.Errorf("layers after reset = %d, want anchor only", len(st.Layers))
	}
	if !s.Click(home) || clicks != 1 {
		t.Error("click handler not restored after reset")
	}
}
