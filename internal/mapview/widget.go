// Package mapview draws workouts on the map.
//
// The map itself lives in the browser. Widget is the narrow surface the
// view draws through; Scene implements it by recording layers that the
// page replays with its mapping library.
package mapview

import "github.com/claude/mapty/internal/models"

// ViewOptions controls how SetView moves the map.
type ViewOptions struct {
	Animate     bool    `json:"animate"`
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// Popup is the bubble bound to a marker.
type Popup struct {
	Content      string `json:"content"`
	ClassName    string `json:"class_name,omitempty"`
	MaxWidth     int    `json:"max_width"`
	MinWidth     int    `json:"min_width"`
	AutoClose    bool   `json:"auto_close"`
	CloseOnClick bool   `json:"close_on_click"`
}

// Marker is a pin with an opened popup.
type Marker struct {
	At        models.Coords `json:"at"`
	Popup     Popup         `json:"popup"`
	WorkoutID string        `json:"workout_id,omitempty"`
}

// LineStyle is the stroke used for a polyline.
type LineStyle struct {
	Color     string `json:"color"`
	Weight    int    `json:"weight"`
	DashArray string `json:"dash_array,omitempty"`
}

// Polyline connects points in order.
type Polyline struct {
	Points    []models.Coords `json:"points"`
	Style     LineStyle       `json:"style"`
	WorkoutID string          `json:"workout_id,omitempty"`
}

// Widget is the mapping surface.
type Widget interface {
	SetView(center models.Coords, zoom int, opts ViewOptions)
	AddMarker(m Marker)
	AddPolyline(l Polyline)
	// OnClick registers the handler for clicks on the map surface.
	OnClick(fn func(at models.Coords))
	// Clear removes every layer and the click handler.
	Clear()
}
