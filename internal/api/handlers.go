package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/user/hero-dispatch/internal/game"
	"github.com/user/hero-dispatch/internal/types"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

// MissionView is an open mission with its live countdown
type MissionView struct {
	*types.MissionSpec
	RemainingMs int64 `json:"remaining_ms"`
}

type teamRequest struct {
	MissionID string   `json:"mission_id"`
	HeroIDs   []string `json:"hero_ids"`
}

type allocateRequest struct {
	Stat   string `json:"stat"`
	Points int    `json:"points"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, game.ErrTeamSize),
		errors.Is(err, game.ErrDuplicateHero),
		errors.Is(err, game.ErrUnknownStat),
		errors.Is(err, game.ErrInvalidPoints):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrMissionNotFound),
		errors.Is(err, game.ErrHeroNotFound),
		errors.Is(err, errNotConfigured):
		return http.StatusNotFound
	case errors.Is(err, game.ErrMissionUnavailable),
		errors.Is(err, game.ErrHeroNotAvailable),
		errors.Is(err, game.ErrHeroNeedsReview),
		errors.Is(err, game.ErrNoPendingReview),
		errors.Is(err, game.ErrInsufficientSkillPoints),
		errors.Is(err, game.ErrStatCapped):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

var (
	errBadRequest    = errors.New("bad request")
	errNotConfigured = errors.New("not configured")
)

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Summary())
}

func (s *Server) handleShifts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.ShiftHistory())
}

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	missions := s.engine.ListAvailableMissions()
	views := make([]MissionView, 0, len(missions))
	for _, m := range missions {
		remaining, err := s.engine.MissionRemaining(m.ID)
		if err != nil {
			// resolved or expired since the list was taken
			continue
		}
		views = append(views, MissionView{MissionSpec: m, RemainingMs: remaining.Milliseconds()})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleActiveMissions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.ListActiveMissions())
}

func (s *Server) handleGetMission(w http.ResponseWriter, r *http.Request) {
	mission, err := s.engine.GetMission(chi.URLParam(r, "missionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mission)
}

func (s *Server) handlePauseMission(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.PauseMission(chi.URLParam(r, "missionID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResumeMission(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResumeMission(chi.URLParam(r, "missionID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListHeroes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.ListHeroes())
}

func (s *Server) handleGetHero(w http.ResponseWriter, r *http.Request) {
	hero, err := s.engine.GetHero(chi.URLParam(r, "heroID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hero)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.ReviewMissionResult(chi.URLParam(r, "heroID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	hero, err := s.engine.AllocateStat(chi.URLParam(r, "heroID"), req.Stat, req.Points)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hero)
}

func (s *Server) handleTeamStats(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	stats, err := s.engine.GetTeamStats(req.HeroIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	coverage, err := s.engine.ComputeCoverage(req.HeroIDs, req.MissionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]float64{"coverage": coverage})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	preview, err := s.engine.ComputeSuccessPreview(req.HeroIDs, req.MissionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result := s.engine.Dispatch(req.MissionID, req.HeroIDs)
	if !result.Accepted {
		s.writeJSON(w, statusFor(result.Rejection), result)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, fmt.Errorf("history %w", errNotConfigured))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, fmt.Errorf("history %w", errNotConfigured))
		return
	}

	stats, err := s.history.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}
