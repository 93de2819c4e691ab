package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// filter narrows a workout list. Zero fields match everything.
type filter struct {
	kind     models.Kind
	start    time.Time
	end      time.Time
	near     *models.Coords
	withinKm float64
}

func (f filter) match(w models.Workout) bool {
	if f.kind != "" && w.Kind != f.kind {
		return false
	}
	if !f.start.IsZero() && w.CreatedAt.Before(f.start) {
		return false
	}
	if !f.end.IsZero() && !w.CreatedAt.Before(f.end) {
		return false
	}
	if f.near != nil && geo.HaversineKm(f.near.Lat, f.near.Lng, w.Coords.Lat, w.Coords.Lng) > f.withinKm {
		return false
	}
	return true
}

func (f filter) apply(workouts []models.Workout) []models.Workout {
	out := make([]models.Workout, 0, len(workouts))
	for _, w := range workouts {
		if f.match(w) {
			out = append(out, w)
		}
	}
	return out
}

// parseFilter reads the shared type/start/end/near arguments.
func parseFilter(req mcp.CallToolRequest) (filter, error) {
	var f filter
	if t := req.GetString("type", ""); t != "" {
		kind, ok := models.ParseKind(t)
		if !ok {
			return f, fmt.Errorf("unknown workout type %q", t)
		}
		f.kind = kind
	}

	var err error
	if s := req.GetString("start", ""); s != "" {
		if f.start, err = parseFlexTime(s); err != nil {
			return f, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if s := req.GetString("end", ""); s != "" {
		if f.end, err = parseFlexTime(s); err != nil {
			return f, fmt.Errorf("invalid end date: %w", err)
		}
		// A bare date includes the whole day.
		if len(s) == len("2006-01-02") {
			f.end = f.end.Add(24 * time.Hour)
		}
	}

	args := req.GetArguments()
	_, hasLat := args["near_lat"]
	_, hasLng := args["near_lng"]
	if hasLat != hasLng {
		return f, errors.New("near_lat and near_lng must be given together")
	}
	if hasLat {
		at := models.Coords{Lat: req.GetFloat("near_lat", 0), Lng: req.GetFloat("near_lng", 0)}
		if !geo.ValidCoords(at) {
			return f, errors.New("near coordinates out of range")
		}
		f.near = &at
		f.withinKm = req.GetFloat("within_km", 5)
	}
	return f, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// KindSummary aggregates the workouts of one kind. Average pace and speed
// are computed from the totals, not averaged per workout.
type KindSummary struct {
	Kind             models.Kind `json:"kind"`
	Count            int         `json:"count"`
	TotalDistanceKm  float64     `json:"total_distance_km"`
	TotalDurationMin float64     `json:"total_duration_min"`
	LongestKm        float64     `json:"longest_km"`

	AvgPaceMinPerKm float64 `json:"avg_pace_min_per_km,omitempty"`
	AvgCadenceSpm   float64 `json:"avg_cadence_spm,omitempty"`

	AvgSpeedKmPerH      float64 `json:"avg_speed_km_per_h,omitempty"`
	TotalElevationGainM float64 `json:"total_elevation_gain_m,omitempty"`
}

// Summary is the result of workout_summary.
type Summary struct {
	Count            int           `json:"count"`
	TotalDistanceKm  float64       `json:"total_distance_km"`
	TotalDurationMin float64       `json:"total_duration_min"`
	First            *time.Time    `json:"first,omitempty"`
	Last             *time.Time    `json:"last,omitempty"`
	ByKind           []KindSummary `json:"by_kind"`
}

func summarize(workouts []models.Workout) Summary {
	s := Summary{ByKind: []KindSummary{}}
	byKind := map[models.Kind]*KindSummary{}
	cadence := map[models.Kind]int{}

	for _, w := range workouts {
		s.Count++
		s.TotalDistanceKm += w.DistanceKm
		s.TotalDurationMin += w.DurationMin
		if s.First == nil || w.CreatedAt.Before(*s.First) {
			t := w.CreatedAt
			s.First = &t
		}
		if s.Last == nil || w.CreatedAt.After(*s.Last) {
			t := w.CreatedAt
			s.Last = &t
		}

		ks, ok := byKind[w.Kind]
		if !ok {
			ks = &KindSummary{Kind: w.Kind}
			byKind[w.Kind] = ks
		}
		ks.Count++
		ks.TotalDistanceKm += w.DistanceKm
		ks.TotalDurationMin += w.DurationMin
		if w.DistanceKm > ks.LongestKm {
			ks.LongestKm = w.DistanceKm
		}
		switch {
		case w.Running != nil:
			cadence[w.Kind] += w.Running.CadenceSpm
		case w.Cycling != nil:
			ks.TotalElevationGainM += w.Cycling.ElevationGainM
		}
	}

	for kind, ks := range byKind {
		switch kind {
		case models.KindRunning:
			ks.AvgPaceMinPerKm = models.Pace(ks.TotalDistanceKm, ks.TotalDurationMin)
			ks.AvgCadenceSpm = float64(cadence[kind]) / float64(ks.Count)
		case models.KindCycling:
			ks.AvgSpeedKmPerH = models.Speed(ks.TotalDistanceKm, ks.TotalDurationMin)
		}
		s.ByKind = append(s.ByKind, *ks)
	}
	sort.Slice(s.ByKind, func(i, j int) bool { return s.ByKind[i].Kind < s.ByKind[j].Kind })
	return s
}

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List logged workouts with optional filters. Returns id, date, coordinates, distance, duration, and the running (cadence, pace) or cycling (elevation gain, speed) figures."),
	mcp.WithString("type", mcp.Description("Only this workout type."), mcp.Enum("running", "cycling")),
	mcp.WithString("start", mcp.Description("Earliest date (ISO 8601 or YYYY-MM-DD).")),
	mcp.WithString("end", mcp.Description("Latest date (ISO 8601 or YYYY-MM-DD, inclusive for a bare date).")),
	mcp.WithNumber("near_lat", mcp.Description("Latitude to search around. Requires near_lng.")),
	mcp.WithNumber("near_lng", mcp.Description("Longitude to search around. Requires near_lat.")),
	mcp.WithNumber("within_km", mcp.Description("Radius around near_lat/near_lng in km. Defaults to 5.")),
	mcp.WithString("order", mcp.Description("'added' (default) or 'distance' (shortest first)."), mcp.Enum("added", "distance")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

var toolWorkoutSummary = mcp.NewTool("workout_summary",
	mcp.WithDescription("Totals and averages per workout type: count, distance, duration, longest, average pace and cadence for runs, average speed and total elevation gain for rides."),
	mcp.WithString("type", mcp.Description("Only this workout type."), mcp.Enum("running", "cycling")),
	mcp.WithString("start", mcp.Description("Earliest date (ISO 8601 or YYYY-MM-DD).")),
	mcp.WithString("end", mcp.Description("Latest date (ISO 8601 or YYYY-MM-DD).")),
	mcp.WithNumber("near_lat", mcp.Description("Latitude to search around. Requires near_lng.")),
	mcp.WithNumber("near_lng", mcp.Description("Longitude to search around. Requires near_lat.")),
	mcp.WithNumber("within_km", mcp.Description("Radius in km. Defaults to 5.")),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := parseFilter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	workouts, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	workouts = f.apply(workouts)

	if req.GetString("order", "added") == "distance" {
		sort.SliceStable(workouts, func(i, j int) bool {
			return workouts[i].DistanceKm < workouts[j].DistanceKm
		})
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	w, err := h.ds.GetWorkout(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "id", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(w)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) workoutSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := parseFilter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	workouts, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp workout_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summarize(f.apply(workouts)))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
