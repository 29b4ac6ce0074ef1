package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
)

// exportWindow bounds the activity export; a season of history is plenty for
// the workbook.
const exportWindow = 90 * 24 * time.Hour

func (s *Server) handleActivityFeed(w http.ResponseWriter, r *http.Request) {
	clubSlug := chi.URLParam(r, "clubSlug")
	if !s.requireManageAccess(w, r, clubSlug) {
		return
	}

	club, err := s.deps.Clubs.GetBySlug(r.Context(), clubSlug, false)
	if err != nil {
		if errors.Is(err, clubdb.ErrNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to resolve club")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	entries, err := s.deps.Activities.RecentForClub(r.Context(), club.UUID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load activity feed")
		return
	}

	count, err := s.deps.Activities.CountForClub(r.Context(), club.UUID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count activity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   count,
	})
}

func (s *Server) handleActivityExport(w http.ResponseWriter, r *http.Request) {
	clubSlug := chi.URLParam(r, "clubSlug")
	if !s.requireManageAccess(w, r, clubSlug) {
		return
	}

	club, err := s.deps.Clubs.GetBySlug(r.Context(), clubSlug, false)
	if err != nil {
		if errors.Is(err, clubdb.ErrNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to resolve club")
		return
	}

	data, err := s.deps.Activities.ExportForClub(r.Context(), club.UUID, time.Now().Add(-exportWindow))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export activity")
		return
	}

	filename := fmt.Sprintf("%s-activity-%s.xlsx", club.Slug, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
