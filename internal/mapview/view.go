package mapview

import (
	"fmt"

	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/models"
)

// Line colors per kind.
const (
	ColorRunning = "#00c46a"
	ColorCycling = "#ffb545"
)

// RecenterZoom is the zoom used when jumping to a workout.
const RecenterZoom = 13

// View draws the current position and workouts through a Widget.
type View struct {
	widget  Widget
	zoom    int
	anchor  models.Coords
	ready   bool
	onClick func(models.Coords)
}

// New returns a view that is not ready until Init is called.
func New(w Widget, zoom int) *View {
	if zoom <= 0 {
		zoom = RecenterZoom
	}
	return &View{widget: w, zoom: zoom}
}

// Init centers the map on anchor, marks it, and starts forwarding clicks.
func (v *View) Init(anchor models.Coords, onClick func(models.Coords)) {
	v.anchor = anchor
	v.onClick = onClick
	v.ready = true
	v.draw()
}

func (v *View) draw() {
	v.widget.SetView(v.anchor, v.zoom, ViewOptions{})
	v.widget.AddMarker(Marker{
		At: v.anchor,
		Popup: Popup{
			Content:  "📍 Current Location",
			MaxWidth: 250,
			MinWidth: 100,
		},
	})
	v.widget.OnClick(v.onClick)
}

// Ready reports whether the map has been initialized.
func (v *View) Ready() bool {
	return v.ready
}

// Anchor returns the current position the map was centered on.
func (v *View) Anchor() (models.Coords, bool) {
	return v.anchor, v.ready
}

// Render adds a workout's marker, popup and dashed line from the anchor.
// It does nothing before Init.
func (v *View) Render(w models.Workout) {
	if !v.ready {
		return
	}
	v.widget.AddMarker(Marker{
		At:        w.Coords,
		Popup:     PopupFor(w, v.anchor),
		WorkoutID: w.ID,
	})
	v.widget.AddPolyline(Polyline{
		Points:    []models.Coords{v.anchor, w.Coords},
		Style:     LineStyle{Color: LineColor(w.Kind), Weight: 3, DashArray: "10, 10"},
		WorkoutID: w.ID,
	})
}

// Recenter pans to the workout at RecenterZoom with an animated move.
func (v *View) Recenter(w models.Workout) bool {
	if !v.ready {
		return false
	}
	v.widget.SetView(w.Coords, RecenterZoom, ViewOptions{Animate: true, DurationSec: 1})
	return true
}

// Reset removes all workout layers and redraws the initial map.
func (v *View) Reset() {
	v.widget.Clear()
	if v.ready {
		v.draw()
	}
}

// LineColor picks the palette entry for a kind.
func LineColor(k models.Kind) string {
	if k == models.KindCycling {
		return ColorCycling
	}
	return ColorRunning
}

// PopupFor builds the popup shown above a workout's marker.
func PopupFor(w models.Workout, anchor models.Coords) Popup {
	km := geo.HaversineKm(anchor.Lat, anchor.Lng, w.Coords.Lat, w.Coords.Lng)
	return Popup{
		Content:      fmt.Sprintf("%s %s · %.1f km away", w.Kind.Icon(), w.Description, km),
		ClassName:    string(w.Kind) + "-popup",
		MaxWidth:     250,
		MinWidth:     100,
		AutoClose:    false,
		CloseOnClick: false,
	}
}
