package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
	raceservice "github.com/bmxtools/raceday/app/modules/race/application"
)

type raceStateResponse struct {
	ClubSlug              string     `json:"club_slug"`
	AtGate                int        `json:"at_gate"`
	InStaging             int        `json:"in_staging"`
	RegistrationDeadline  *time.Time `json:"registration_deadline,omitempty"`
	RaceStartTime         *time.Time `json:"race_start_time,omitempty"`
	NotificationMessage   *string    `json:"notification_message,omitempty"`
	NotificationExpiresAt *time.Time `json:"notification_expires_at,omitempty"`
	NotificationActive    bool       `json:"notification_active"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (s *Server) handleRaceState(w http.ResponseWriter, r *http.Request) {
	clubSlug := chi.URLParam(r, "clubSlug")

	state, err := s.deps.Races.GetRaceState(r.Context(), clubSlug)
	if err != nil {
		if errors.Is(err, raceservice.ErrClubNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load race state")
		return
	}

	writeJSON(w, http.StatusOK, raceStateResponse{
		ClubSlug:              state.ClubSlug,
		AtGate:                state.AtGate,
		InStaging:             state.InStaging,
		RegistrationDeadline:  state.RegistrationDeadline,
		RaceStartTime:         state.RaceStartTime,
		NotificationMessage:   state.NotificationMessage,
		NotificationExpiresAt: state.NotificationExpiresAt,
		NotificationActive:    state.NotificationActive,
		UpdatedAt:             state.UpdatedAt,
	})
}

type counterUpdateRequest struct {
	AtGate    int `json:"at_gate"`
	InStaging int `json:"in_staging"`
}

type counterUpdateResponse struct {
	OldAtGate    int `json:"old_at_gate"`
	OldInStaging int `json:"old_in_staging"`
	AtGate       int `json:"at_gate"`
	InStaging    int `json:"in_staging"`
}

func (s *Server) handleUpdateCounters(w http.ResponseWriter, r *http.Request) {
	clubSlug := chi.URLParam(r, "clubSlug")
	if !s.requireCounterAccess(w, r, clubSlug) {
		return
	}

	var req counterUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	change, err := s.deps.Races.UpdateCounters(r.Context(), clubSlug, raceservice.CounterUpdate{
		AtGate:    req.AtGate,
		InStaging: req.InStaging,
	})
	if err != nil {
		switch {
		case errors.Is(err, raceservice.ErrOutOfRange), errors.Is(err, raceservice.ErrOrderingViolation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, raceservice.ErrClubNotFound):
			writeError(w, http.StatusNotFound, "club not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update counters")
		}
		return
	}

	writeJSON(w, http.StatusOK, counterUpdateResponse{
		OldAtGate:    change.OldAtGate,
		OldInStaging: change.OldInStaging,
		AtGate:       change.NewAtGate,
		InStaging:    change.NewInStaging,
	})
}

type resetRequest struct {
	ResetType string `json:"reset_type"`
}

func (s *Server) handleResetRace(w http.ResponseWriter, r *http.Request) {
	clubSlug := chi.URLParam(r, "clubSlug")
	if !s.requireCounterAccess(w, r, clubSlug) {
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.ResetType = "manual"
	}
	if req.ResetType == "" {
		req.ResetType = "manual"
	}

	if err := s.deps.Races.ResetRace(r.Context(), clubSlug, req.ResetType); err != nil {
		if errors.Is(err, raceservice.ErrClubNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reset race")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	clubSlug := chi.URLParam(r, "clubSlug")
	if !s.requireManageAccess(w, r, clubSlug) {
		return
	}

	state, err := s.deps.Races.GetRaceState(r.Context(), clubSlug)
	if err != nil {
		if errors.Is(err, raceservice.ErrClubNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"registration_deadline":   state.RegistrationDeadline,
		"race_start_time":         state.RaceStartTime,
		"notification_message":    state.NotificationMessage,
		"notification_expires_at": state.NotificationExpiresAt,
		"notification_active":     state.NotificationActive,
	})
}

type settingsRequest struct {
	RegistrationDeadline  *time.Time `json:"registration_deadline"`
	RaceStartTime         *time.Time `json:"race_start_time"`
	NotificationMessage   *string    `json:"notification_message"`
	NotificationExpiresAt *time.Time `json:"notification_expires_at"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	clubSlug := chi.URLParam(r, "clubSlug")
	if !s.requireManageAccess(w, r, clubSlug) {
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.deps.Races.UpdateSettings(r.Context(), clubSlug, raceservice.SettingsChange{
		RegistrationDeadline:  req.RegistrationDeadline,
		RaceStartTime:         req.RaceStartTime,
		NotificationMessage:   req.NotificationMessage,
		NotificationExpiresAt: req.NotificationExpiresAt,
	})
	if err != nil {
		if errors.Is(err, raceservice.ErrClubNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// requireCounterAccess resolves the club and checks the caller may mutate
// counters (any recognized role).
func (s *Server) requireCounterAccess(w http.ResponseWriter, r *http.Request, clubSlug string) bool {
	return s.requireClubAccess(w, r, clubSlug, s.deps.Access.CanMutateCounters)
}

// requireManageAccess checks the caller may administer the club.
func (s *Server) requireManageAccess(w http.ResponseWriter, r *http.Request, clubSlug string) bool {
	return s.requireClubAccess(w, r, clubSlug, s.deps.Access.CanManageClub)
}

func (s *Server) requireClubAccess(
	w http.ResponseWriter,
	r *http.Request,
	clubSlug string,
	check func(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error),
) bool {
	id, ok := identity(r)
	if !ok || id.Expired() {
		writeError(w, http.StatusUnauthorized, "session required")
		return false
	}

	club, err := s.deps.Clubs.GetBySlug(r.Context(), clubSlug, false)
	if err != nil {
		if errors.Is(err, clubdb.ErrNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to resolve club")
		}
		return false
	}

	allowed, err := check(r.Context(), id.UserID, club.UUID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check access")
		return false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "not authorized for this club")
		return false
	}
	return true
}
