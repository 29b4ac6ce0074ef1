// Package api serves the HTTP surface: the public race display, admin
// mutations, sessions, club management, and the dashboard.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	accessservice "github.com/bmxtools/raceday/app/modules/access/application"
	activityservice "github.com/bmxtools/raceday/app/modules/activity/application"
	clubservice "github.com/bmxtools/raceday/app/modules/club/application"
	raceservice "github.com/bmxtools/raceday/app/modules/race/application"
	transferservice "github.com/bmxtools/raceday/app/modules/transfer/application"
	userservice "github.com/bmxtools/raceday/app/modules/user/application"
	"github.com/bmxtools/raceday/config"
	"github.com/bmxtools/raceday/pkg/jwt"
)

// Deps carries everything the HTTP layer serves.
type Deps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Races      raceservice.Service
	Clubs      clubservice.Service
	Users      userservice.Service
	Activities activityservice.Service
	Transfers  transferservice.Service
	Access     accessservice.Service
	Sessions   jwt.Service
}

// Server is the HTTP front of the application.
type Server struct {
	deps       Deps
	httpServer *http.Server
}

// NewServer builds the router and the http.Server around it.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}

	limiter := NewIPRateLimiter(
		rate.Limit(deps.Config.HTTP.RateLimitPerSecond),
		deps.Config.HTTP.RateLimitBurst,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(CORSMiddleware(deps.Config.HTTP.AllowedOrigins))

	r.Get("/healthz", s.handleHealth)

	// Sessions.
	r.With(RateLimitMiddleware(limiter)).Post("/sessions", s.handleLogin)
	r.With(SessionMiddleware(deps.Sessions)).Delete("/sessions", s.handleLogout)

	// Transfer completion is reached from the emailed link; the bearer may
	// not hold a session.
	r.With(RateLimitMiddleware(limiter)).Post("/transfers/{token}/complete", s.handleCompleteTransfer)
	r.Get("/transfers/{token}", s.handleGetTransfer)

	// Admin surfaces: session plus per-request gate checks in the handlers.
	r.Route("/admin", func(r chi.Router) {
		r.Use(SessionMiddleware(deps.Sessions))
		r.Use(RateLimitMiddleware(limiter))

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/dashboard/chart.png", s.handleDashboardChart)

		r.Route("/clubs", func(r chi.Router) {
			r.Get("/", s.handleListClubs)
			r.Post("/", s.handleCreateClub)
			r.Route("/{clubUUID}", func(r chi.Router) {
				r.Get("/", s.handleGetClub)
				r.Patch("/", s.handleUpdateClub)
				r.Delete("/", s.handleSoftDeleteClub)
				r.Post("/restore", s.handleRestoreClub)
				r.Delete("/purge", s.handleHardDeleteClub)

				r.Get("/members", s.handleListMembers)
				r.Post("/members", s.handleAddMember)
				r.Patch("/members/{userUUID}", s.handleUpdateMember)
				r.Delete("/members/{userUUID}", s.handleRemoveMember)
			})
		})
	})

	// Per-club surfaces. The public race display stays unauthenticated; the
	// nested admin block carries the session and the gate.
	r.Route("/{clubSlug}", func(r chi.Router) {
		r.Get("/", s.handleRaceState)

		r.Route("/admin", func(r chi.Router) {
			r.Use(SessionMiddleware(deps.Sessions))
			r.Use(RateLimitMiddleware(limiter))

			r.Put("/counters", s.handleUpdateCounters)
			r.Post("/reset", s.handleResetRace)
			r.Get("/settings", s.handleGetSettings)
			r.Patch("/settings", s.handleUpdateSettings)
			r.Get("/activity", s.handleActivityFeed)
			r.Get("/activity/export", s.handleActivityExport)
			r.Post("/transfers", s.handleInitiateTransfer)
			r.Delete("/transfers/{token}", s.handleCancelTransfer)
		})
	})

	s.httpServer = &http.Server{
		Addr:              deps.Config.HTTP.Address,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until the listener closes.
func (s *Server) Start() error {
	s.deps.Logger.Info("HTTP server listening", slog.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// identity pulls the session identity; the middleware guarantees presence on
// admin routes.
func identity(r *http.Request) (accessservice.Identity, bool) {
	return accessservice.IdentityFromContext(r.Context())
}
