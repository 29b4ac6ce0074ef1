package api

import (
	"net/http"
	"time"

	activityservice "github.com/bmxtools/raceday/app/modules/activity/application"
)

// dashboardWindow bounds the activity breakdown shown on the platform
// dashboard.
const dashboardWindow = 7 * 24 * time.Hour

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !s.requireSuperAdmin(w, r) {
		return
	}

	activeClubs, err := s.deps.Clubs.Count(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count clubs")
		return
	}
	totalClubs, err := s.deps.Clubs.Count(r.Context(), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count clubs")
		return
	}

	since := time.Now().Add(-dashboardWindow)
	byType, err := s.deps.Activities.CountByTypeSince(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate activity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"active_clubs":     activeClubs,
		"total_clubs":      totalClubs,
		"activity_by_type": byType,
		"window_start":     since,
	})
}

func (s *Server) handleDashboardChart(w http.ResponseWriter, r *http.Request) {
	if !s.requireSuperAdmin(w, r) {
		return
	}

	since := time.Now().Add(-dashboardWindow)
	byType, err := s.deps.Activities.CountByTypeSince(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate activity")
		return
	}

	png, err := activityservice.RenderTypeBreakdownChart(byType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
