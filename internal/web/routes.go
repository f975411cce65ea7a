package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/facegate/internal/web/handlers"
	"github.com/kozaktomas/facegate/internal/web/static"
)

func (s *Server) setupRoutes() {
	c := s.console

	// Liveness of the console itself
	s.router.Get("/healthz", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Stylesheet
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.GetFileSystem())))

	// Live camera stream, not subject to the page timeout
	s.router.Get("/camera/preview.mjpeg", c.CameraPreview)

	s.router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(pageTimeout))

		r.Get("/", c.Dashboard)
		r.Get("/previews/{id}", c.Preview)

		// Camera
		r.Post("/camera/start", c.CameraStart)
		r.Post("/camera/stop", c.CameraStop)
		r.Post("/camera/capture", c.CameraCapture)

		// Operation pages: enroll, verify, identify
		r.Get("/{op}", c.Page)
		r.Post("/{op}", c.Action)
		r.Get("/{op}/state", c.State)
	})
}
