// Package api is the HTTP surface of the Gridlock backend: accounts and
// sessions, level CRUD with publish gating, score submission, and share
// images. Every score and publish request goes through the replay
// verification engine; nothing the client claims is stored unverified.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/gridlock-dev/gridlock/internal/store"
)

// Server handles HTTP requests
type Server struct {
	db         store.DB
	log        *logrus.Logger
	sessionTTL time.Duration
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(db store.DB, log *logrus.Logger, sessionTTL time.Duration) *Server {
	return &Server{
		db:         db,
		log:        log,
		sessionTTL: sessionTTL,
		startTime:  time.Now(),
	}
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Get("/levels", s.handleListLevels)
			r.Get("/levels/{levelID}", s.handleGetLevel)
			r.Get("/levels/{levelID}/scores", s.handleLeaderboard)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Use(s.requireAuth)
			r.Get("/me", s.handleMe)

			r.Group(func(r chi.Router) {
				r.Use(s.requireCSRF)
				r.Post("/logout", s.handleLogout)
				r.Post("/levels", s.handleCreateLevel)
				r.Put("/levels/{levelID}", s.handleUpdateLevel)
				r.Delete("/levels/{levelID}", s.handleDeleteLevel)
				r.Post("/levels/{levelID}/publish", s.handlePublishLevel)
				r.Post("/levels/{levelID}/scores", s.handleSubmitScore)
			})
		})
	})

	r.Get("/share/{levelID}.png", s.handleShareImage)

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON parses a request body, capped to keep level grids and replays
// within reason.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status        string `json:"status"`
	EngineVersion string `json:"engine_version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		EngineVersion: EngineVersion,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
