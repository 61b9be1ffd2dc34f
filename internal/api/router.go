package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/jobcopilot/jobstore/internal/api/middleware"
)

// Dependencies holds all handler dependencies for the router.
type Dependencies struct {
	HealthHandler http.HandlerFunc

	CreateRecord  http.HandlerFunc
	ListRecords   http.HandlerFunc
	GetRecord     http.HandlerFunc
	UpdateRecord  http.HandlerFunc
	DeleteRecord  http.HandlerFunc
	BatchCreate   http.HandlerFunc
	RecordStats   http.HandlerFunc
	ExportRecords http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", deps.HealthHandler)

	r.Route("/api/v1/records", func(r chi.Router) {
		r.Post("/", deps.CreateRecord)
		r.Get("/", deps.ListRecords)
		r.Post("/batch", deps.BatchCreate)
		r.Get("/stats", deps.RecordStats)
		r.Get("/export", deps.ExportRecords)

		r.Get("/{recordID}", deps.GetRecord)
		r.Put("/{recordID}", deps.UpdateRecord)
		r.Delete("/{recordID}", deps.DeleteRecord)
	})

	return r
}
