package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	// The service is consumed by browser frontends on other origins.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(requestLogger(app.Logger))

	r.Get("/health", app.Health)
	r.Post("/scrape", app.Scrape)
	r.Get("/job/{id}", app.JobStatus)
	r.Get("/download/{id}", app.Download)

	return r
}
