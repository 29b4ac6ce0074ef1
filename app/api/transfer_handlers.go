package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	transferservice "github.com/bmxtools/raceday/app/modules/transfer/application"
)

type initiateTransferRequest struct {
	ToEmail string `json:"to_email"`
}

type transferResponse struct {
	Token           string     `json:"token,omitempty"`
	ClubSlug        string     `json:"club_slug"`
	ToUserEmail     string     `json:"to_user_email"`
	ExpiresAt       time.Time  `json:"expires_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	DaysUntilExpiry int        `json:"days_until_expiry"`
	Active          bool       `json:"active"`
}

func (s *Server) handleInitiateTransfer(w http.ResponseWriter, r *http.Request) {
	clubSlug := chi.URLParam(r, "clubSlug")
	if !s.requireManageAccess(w, r, clubSlug) {
		return
	}
	id, _ := identity(r)

	var req initiateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info, err := s.deps.Transfers.Initiate(r.Context(), clubSlug, id.UserID, req.ToEmail)
	if err != nil {
		switch {
		case errors.Is(err, transferservice.ErrSelfTransfer):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, transferservice.ErrTargetUserNotFound):
			writeError(w, http.StatusUnprocessableEntity, "no account holds that email")
		case errors.Is(err, transferservice.ErrClubNotFound):
			writeError(w, http.StatusNotFound, "club not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to initiate transfer")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toTransferResponse(info, true))
}

func (s *Server) handleCancelTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(r)
	if !ok || id.Expired() {
		writeError(w, http.StatusUnauthorized, "session required")
		return
	}
	token := chi.URLParam(r, "token")

	if err := s.deps.Transfers.Cancel(r.Context(), token, id.UserID); err != nil {
		writeTransferError(w, err, "failed to cancel transfer")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCompleteTransfer(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	info, err := s.deps.Transfers.Complete(r.Context(), token)
	if err != nil {
		writeTransferError(w, err, "failed to complete transfer")
		return
	}
	writeJSON(w, http.StatusOK, toTransferResponse(info, false))
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	info, err := s.deps.Transfers.GetByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, transferservice.ErrTransferNotFound) {
			writeError(w, http.StatusNotFound, "transfer not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load transfer")
		return
	}
	writeJSON(w, http.StatusOK, toTransferResponse(info, false))
}

func writeTransferError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, transferservice.ErrTransferNotFound):
		writeError(w, http.StatusNotFound, "transfer not found")
	case errors.Is(err, transferservice.ErrNotPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, transferservice.ErrExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, transferservice.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, transferservice.ErrTargetUserNotFound):
		writeError(w, http.StatusUnprocessableEntity, "no account holds that email")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// toTransferResponse hides the token unless the caller just minted it; the
// claim link is for the target email, not for whoever fetches the record.
func toTransferResponse(info *transferservice.TransferInfo, includeToken bool) transferResponse {
	resp := transferResponse{
		ClubSlug:        info.ClubSlug,
		ToUserEmail:     info.ToUserEmail,
		ExpiresAt:       info.ExpiresAt,
		CompletedAt:     info.CompletedAt,
		CancelledAt:     info.CancelledAt,
		DaysUntilExpiry: info.DaysUntilExpiry,
		Active:          info.Active,
	}
	if includeToken {
		resp.Token = info.Token
	}
	return resp
}
