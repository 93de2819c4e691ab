// Package geo supplies the one-shot current position used to center the map.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/claude/mapty/internal/models"
)

// ErrUnavailable is returned when the position is denied or cannot be found.
var ErrUnavailable = errors.New("location unavailable")

// Provider returns the current position once.
type Provider interface {
	Locate(ctx context.Context) (models.Coords, error)
}

// Static always reports a fixed position.
type Static struct {
	At models.Coords
}

func (s Static) Locate(context.Context) (models.Coords, error) {
	return s.At, nil
}

// Denied always fails, as when the user refuses location access.
type Denied struct{}

func (Denied) Locate(context.Context) (models.Coords, error) {
	return models.Coords{}, fmt.Errorf("%w: disabled", ErrUnavailable)
}

// Browser waits for the page to report navigator.geolocation's result.
// Only the first report counts.
type Browser struct {
	once   sync.Once
	result chan report
}

type report struct {
	at  models.Coords
	err error
}

func NewBrowser() *Browser {
	return &Browser{result: make(chan report, 1)}
}

// Report delivers the browser's answer. It returns false if a result was
// already delivered.
func (b *Browser) Report(at models.Coords, err error) bool {
	delivered := false
	b.once.Do(func() {
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		b.result <- report{at: at, err: err}
		delivered = true
	})
	return delivered
}

func (b *Browser) Locate(ctx context.Context) (models.Coords, error) {
	select {
	case r := <-b.result:
		return r.at, r.err
	case <-ctx.Done():
		return models.Coords{}, ctx.Err()
	}
}

// ValidCoords reports whether c is a finite position on the globe.
func ValidCoords(c models.Coords) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
