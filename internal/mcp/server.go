package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Mapty", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Mapty workout log. Each workout is a run or a ride pinned to a map location, with distance (km), duration (min) and either cadence and pace or elevation gain and speed. Read-only."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolWorkoutSummary, Handler: h.workoutSummary},
	)

	s.AddResources(
		server.ServerResource{Resource: resWorkouts, Handler: h.allWorkouts},
		server.ServerResource{Resource: resSummary, Handler: h.summaryResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resWorkouts = mcp.NewResource(
	"mapty://workouts",
	"Workouts",
	mcp.WithResourceDescription("Every logged workout in the order it was added"),
	mcp.WithMIMEType("application/json"),
)

var resSummary = mcp.NewResource(
	"mapty://summary",
	"Workout Summary",
	mcp.WithResourceDescription("Totals and averages per workout type"),
	mcp.WithMIMEType("application/json"),
)
