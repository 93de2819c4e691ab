package mapview

import "github.com/claude/mapty/internal/models"

// Tiles is the base layer the page loads.
type Tiles struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// Layer is one recorded marker or polyline.
type Layer struct {
	Type     string    `json:"type"`
	Marker   *Marker   `json:"marker,omitempty"`
	Polyline *Polyline `json:"polyline,omitempty"`
}

// Camera is the last requested view. Seq increases on every SetView so the
// page can tell a new move from one it already applied.
type Camera struct {
	Center  models.Coords `json:"center"`
	Zoom    int           `json:"zoom"`
	Options ViewOptions   `json:"options"`
	Seq     int           `json:"seq"`
}

// SceneState is the JSON form of a Scene.
type SceneState struct {
	Ready  bool    `json:"ready"`
	Tiles  Tiles   `json:"tiles"`
	Camera *Camera `json:"camera,omitempty"`
	Layers []Layer `json:"layers"`
}

// Scene is a Widget that records what was drawn. It is not safe for
// concurrent use.
type Scene struct {
	tiles   Tiles
	camera  *Camera
	seq     int
	layers  []Layer
	onClick func(models.Coords)
}

func NewScene(tiles Tiles) *Scene {
	return &Scene{tiles: tiles}
}

func (s *Scene) SetView(center models.Coords, zoom int, opts ViewOptions) {
	s.seq++
	s.camera = &Camera{Center: center, Zoom: zoom, Options: opts, Seq: s.seq}
}

func (s *Scene) AddMarker(m Marker) {
	s.layers = append(s.layers, Layer{Type: "marker", Marker: &m})
}

func (s *Scene) AddPolyline(l Polyline) {
	l.Points = append([]models.Coords(nil), l.Points...)
	s.layers = append(s.layers, Layer{Type: "polyline", Polyline: &l})
}

func (s *Scene) OnClick(fn func(models.Coords)) {
	s.onClick = fn
}

func (s *Scene) Clear() {
	s.layers = nil
	s.camera = nil
	s.onClick = nil
}

// Click delivers a click on the map surface. It returns false when no
// handler is registered, i.e. the map is not available.
func (s *Scene) Click(at models.Coords) bool {
	if s.onClick == nil {
		return false
	}
	s.onClick(at)
	return true
}

// State returns a copy of the scene for the page.
func (s *Scene) State() SceneState {
	st := SceneState{
		Ready:  s.camera != nil,
		Tiles:  s.tiles,
		Layers: make([]Layer, len(s.layers)),
	}
	copy(st.Layers, s.layers)
	if s.camera != nil {
		c := *s.camera
		st.Camera = &c
	}
	return st
}
