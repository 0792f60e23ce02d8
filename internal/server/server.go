package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/sweepy/internal/auth"
	"github.com/dukerupert/sweepy/internal/chore"
	"github.com/dukerupert/sweepy/internal/config"
	"github.com/dukerupert/sweepy/internal/handler"
	"github.com/dukerupert/sweepy/internal/middleware"
	"github.com/dukerupert/sweepy/internal/refresh"
	"github.com/dukerupert/sweepy/internal/store"
	ws "github.com/dukerupert/sweepy/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	service        *chore.Service
	authH          *handler.AuthHandler
	taskH          *handler.TaskHandler
	memberH        *handler.MemberHandler
	tokens         *auth.Tokens
	authThrottle   *middleware.Throttle
	allowedOrigins []string
	scheduler      *refresh.Scheduler
	logger         *slog.Logger
}

// New wires stores, the scheduler service and handlers over db. clock may be
// nil for the wall clock.
func New(db *sql.DB, cfg config.Config, clock chore.Clock, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	memberStore := store.NewMemberStore(db)
	taskStore := store.NewTaskStore(db)

	svc := chore.NewService(taskStore, memberStore, clock, logger.With("component", "chore"))
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	s := &Server{
		db:             db,
		hub:            hub,
		service:        svc,
		authH:          handler.NewAuthHandler(householdStore, tokens, logger.With("component", "auth")),
		taskH:          handler.NewTaskHandler(svc, hub, logger.With("component", "task")),
		memberH:        handler.NewMemberHandler(svc, memberStore, hub, logger.With("component", "member")),
		tokens:         tokens,
		authThrottle:   middleware.NewThrottle(cfg.LoginRateLimit, time.Minute),
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
	}

	if cfg.RefreshInterval > 0 {
		s.scheduler = refresh.NewScheduler(householdStore, svc, cfg.RefreshInterval, func(hid string, created int) {
			hub.Broadcast(hid, ws.NewMessage("task", "refreshed", "", map[string]any{"count": created}))
		}, logger.With("component", "refresh"))
	}
	return s
}

// Scheduler returns the horizon refresher, or nil when refreshing is disabled.
func (s *Server) Scheduler() *refresh.Scheduler {
	return s.scheduler
}

// RunRateLimitCleanup drops expired auth throttle entries every interval
// until ctx is done.
func (s *Server) RunRateLimitCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.authThrottle.Prune(); n > 0 {
				s.logger.Debug("auth throttle pruned", "tracked", n)
			}
		}
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	return middleware.Throttled(s.authThrottle, middleware.AuthAttemptKey)(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("PUT /api/members/sort", s.memberH.UpdateSortOrder)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)
	mux.HandleFunc("GET /api/leaderboard", s.memberH.Leaderboard)

	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("POST /api/tasks/generate-future", s.taskH.GenerateFuture)
	mux.HandleFunc("POST /api/tasks/distribute", s.taskH.Distribute)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("PUT /api/tasks/{id}/complete", s.taskH.Complete)

	mux.HandleFunc("GET /ws", s.hub.HandleWebSocket(s.allowedOrigins))
}
