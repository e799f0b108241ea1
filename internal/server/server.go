// Package server exposes the conversational agent over HTTP: the chat API,
// account endpoints, event email delivery, and operational probes.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/socialsync/internal/agent"
	"github.com/MrWong99/socialsync/internal/health"
	"github.com/MrWong99/socialsync/internal/mailer"
	"github.com/MrWong99/socialsync/internal/observe"
	"github.com/MrWong99/socialsync/pkg/profile"
)

// maxRequestBodySize caps request bodies at 1MB.
const maxRequestBodySize = 1 << 20

// Server bundles the HTTP handlers and their dependencies.
type Server struct {
	controller *agent.Controller
	profiles   profile.Store
	mailer     *mailer.Mailer
	health     *health.Handler
	metrics    *observe.Metrics

	allowedOrigins []string
}

// Option configures optional server behavior.
type Option func(*Server)

// WithProfiles enables the /api/register and /api/login endpoints.
func WithProfiles(store profile.Store) Option {
	return func(s *Server) { s.profiles = store }
}

// WithMailer enables the /api/send-event-email endpoint.
func WithMailer(m *mailer.Mailer) Option {
	return func(s *Server) { s.mailer = m }
}

// WithHealth installs the /healthz and /readyz probes.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics records HTTP request durations and exposes /metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAllowedOrigins sets the CORS origin allowlist. Defaults to "*".
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// New creates a Server around the dialogue controller.
func New(controller *agent.Controller, opts ...Option) *Server {
	s := &Server{
		controller:     controller,
		allowedOrigins: []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes assembles the chi router with all registered endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(s.allowedOrigins))
	if s.metrics != nil {
		r.Use(observe.Middleware(s.metrics))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/reset", s.handleReset)
		if s.profiles != nil {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		}
		if s.mailer != nil {
			r.Post("/send-event-email", s.handleSendEventEmail)
		}
	})

	if s.health != nil {
		r.Get("/healthz", s.health.Healthz)
		r.Get("/readyz", s.health.Readyz)
	}
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// NewHTTPServer wraps the router in an http.Server with sane timeouts.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
}

// corsMiddleware echoes allowed origins and answers preflight requests.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}
			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
