package server

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/claude/mapty/internal/app"
	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/listview"
	"github.com/claude/mapty/internal/mapview"
	"github.com/claude/mapty/internal/notify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds dependencies for HTTP handlers. Every handler touching the
// controller or its views runs through events.
type Server struct {
	ctrl    *app.Controller
	events  *app.Dispatcher
	scene   *mapview.Scene
	list    *listview.View
	notes   *notify.Center
	locator *geo.Browser
	log     *slog.Logger
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(ctrl *app.Controller, events *app.Dispatcher, scene *mapview.Scene, list *listview.View, notes *notify.Center, log *slog.Logger) *Server {
	s := &Server{
		ctrl:   ctrl,
		events: events,
		scene:  scene,
		list:   list,
		notes:  notes,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/location", s.handleLocation)
		r.Post("/map/click", s.handleMapClick)
		r.Post("/form", s.handleSubmit)
		r.Post("/form/type", s.handleFormType)
		r.Post("/form/dismiss", s.handleDismiss)
		r.Post("/list/sort", s.handleSort)
		r.Post("/list/select", s.handleSelect)
		r.Post("/reset", s.handleReset)
		r.Get("/workouts", s.handleWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
	})

	s.router.Handle("/metrics", promhttp.Handler())
}

// SetLocator lets the page deliver the browser's geolocation result.
// Without one, POST /api/v1/location answers 409.
func (s *Server) SetLocator(b *geo.Browser) {
	s.locator = b
}

// Handle registers an extra handler, e.g. the MCP endpoint.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.router.Handle(pattern, h)
}

// SetFrontend mounts the embedded SPA filesystem.
// Unmatched routes serve index.html.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		f, err := webFS.Open(r.URL.Path[1:])
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
