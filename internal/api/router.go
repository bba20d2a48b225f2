package api

import (
	"net/http"

	"rdwrapper/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Router struct {
	chi    *chi.Mux
	apiKey string
}

func NewRouter(apiKey string) *Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(logger.L.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	return &Router{
		chi:    r,
		apiKey: apiKey,
	}
}

// Auth requires the X-API-Key header when an API key is configured.
func (rt *Router) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get("X-API-Key") != rt.apiKey {
			sendError(w, http.StatusUnauthorized, ErrorResponse{Error: "missing or invalid API key", Code: CodeUnauthorized})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rt *Router) Handler() http.Handler {
	return rt.chi
}

// MountV1 serves handler under /api/v1 behind Auth.
func (rt *Router) MountV1(handler http.Handler) {
	v1 := chi.NewRouter()
	v1.Use(rt.Auth)
	v1.Mount("/", handler)
	rt.chi.Mount("/api/v1", v1)
}
