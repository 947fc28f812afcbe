package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/user/hero-dispatch/internal/history"
	"github.com/user/hero-dispatch/internal/interfaces"
	"github.com/user/hero-dispatch/internal/types"
	"go.uber.org/zap"
)

// Engine is the dispatch service plus the read models the HTTP surface exposes
type Engine interface {
	interfaces.DispatchService
	ListActiveMissions() []*types.MissionSpec
	ShiftHistory() []types.ShiftSummary
	MissionRemaining(missionID string) (time.Duration, error)
}

// History is the mission ledger read side
type History interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Stats(ctx context.Context) (history.Stats, error)
}

// Server holds the HTTP handlers
type Server struct {
	engine  Engine
	history History
	feed    http.Handler
	logger  *zap.Logger
}

// Option customizes a Server
type Option func(*Server)

// WithHistory exposes the ledger under /history
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithFeed mounts a live event feed under /ws
func WithFeed(feed http.Handler) Option {
	return func(s *Server) {
		s.feed = feed
	}
}

// NewServer creates the HTTP handlers over engine
func NewServer(engine Engine, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{engine: engine, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router. Callers may mount extra routes on it.
func (s *Server) Router() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Long-lived websocket connections stay outside the request timeout
	if s.feed != nil {
		router.Handle("/ws", s.feed)
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/summary", s.handleSummary)
		r.Get("/shifts", s.handleShifts)

		r.Route("/missions", func(r chi.Router) {
			r.Get("/", s.handleListMissions)
			r.Get("/active", s.handleActiveMissions)
			r.Get("/{missionID}", s.handleGetMission)
			r.Post("/{missionID}/pause", s.handlePauseMission)
			r.Post("/{missionID}/resume", s.handleResumeMission)
		})

		r.Route("/heroes", func(r chi.Router) {
			r.Get("/", s.handleListHeroes)
			r.Get("/{heroID}", s.handleGetHero)
			r.Post("/{heroID}/review", s.handleReview)
			r.Post("/{heroID}/allocate", s.handleAllocate)
		})

		r.Post("/team/stats", s.handleTeamStats)
		r.Post("/coverage", s.handleCoverage)
		r.Post("/preview", s.handlePreview)
		r.Post("/dispatch", s.handleDispatch)

		r.Get("/history", s.handleHistory)
		r.Get("/history/stats", s.handleHistoryStats)
	})

	return router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("remote_addr", r.RemoteAddr))
	})
}
