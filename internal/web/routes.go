package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-pages/internal/web/handlers"
	"github.com/kozaktomas/photo-pages/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	projectsHandler := handlers.NewProjectsHandler(s.service)
	exportJobsHandler := handlers.NewExportJobsHandler(s.service, s.jobManager)
	configHandler := handlers.NewConfigHandler(s.service.Defaults())

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.apiToken))

		// Config
		r.Get("/config", configHandler.Get)

		// Projects
		r.Get("/projects", projectsHandler.ListProjects)
		r.Post("/projects", projectsHandler.CreateProject)
		r.Get("/projects/{id}", projectsHandler.GetProject)
		r.Delete("/projects/{id}", projectsHandler.DeleteProject)
		r.Put("/projects/{id}/settings", projectsHandler.UpdateSettings)

		// Photos
		r.Post("/projects/{id}/photos", projectsHandler.AddPhotos)
		r.Delete("/projects/{id}/photos/{photoId}", projectsHandler.RemovePhoto)
		r.Post("/projects/{id}/import", projectsHandler.ImportAlbum)
		r.Put("/photos/{id}/caption", projectsHandler.UpdatePhotoCaption)

		// Pages
		r.Put("/pages/{id}/title", projectsHandler.UpdatePageTitle)
		r.Put("/pages/{id}/order", projectsHandler.ReorderPhotos)

		// Export (long-running)
		r.Get("/projects/{id}/export", projectsHandler.Export)
		r.Post("/projects/{id}/export", projectsHandler.ExportToFile)

		// Export jobs
		r.Post("/projects/{id}/export/jobs", exportJobsHandler.Start)
		r.Get("/export-jobs", exportJobsHandler.List)
		r.Get("/export-jobs/{jobId}", exportJobsHandler.Status)
		r.Get("/export-jobs/{jobId}/events", exportJobsHandler.Events)
		r.Post("/export-jobs/{jobId}/cancel", exportJobsHandler.Cancel)
		r.Delete("/export-jobs/{jobId}", exportJobsHandler.Delete)
	})
}
