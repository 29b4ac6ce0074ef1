package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	activityservice "github.com/bmxtools/raceday/app/modules/activity/application"
	activitydb "github.com/bmxtools/raceday/app/modules/activity/infrastructure/repositories"
	userservice "github.com/bmxtools/raceday/app/modules/user/application"
	"github.com/bmxtools/raceday/app/shared/attr"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.deps.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, userservice.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := s.deps.Sessions.GenerateToken(user.UUID.String(), user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}
	setSessionCookie(w, token, time.Now().Add(s.deps.Config.Session.TTL))

	s.recordSessionActivity(r, user.UUID, user.Email, activitydb.TypeAdminLogin, "Admin logged in")

	writeJSON(w, http.StatusOK, loginResponse{Token: token, Email: user.Email})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(r)
	if ok {
		s.recordSessionActivity(r, id.UserID, id.Email, activitydb.TypeAdminLogout, "Admin logged out")
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusNoContent, nil)
}

// recordSessionActivity appends a login/logout entry for each club the user
// holds a grant in. Failures are logged, never surfaced; sessions must not
// hinge on the audit trail.
func (s *Server) recordSessionActivity(r *http.Request, userUUID uuid.UUID, email, activityType, message string) {
	ctx := r.Context()

	clubUUIDs, err := s.deps.Access.ClubsForUser(ctx, userUUID)
	if err != nil {
		s.deps.Logger.Warn("Failed to resolve clubs for session activity",
			attr.String("email", email),
			attr.Error(err),
		)
		return
	}

	for _, clubUUID := range clubUUIDs {
		club, err := s.deps.Clubs.GetByUUID(ctx, clubUUID, false)
		if err != nil {
			continue
		}
		if _, err := s.deps.Activities.Record(ctx, activityservice.Entry{
			ClubUUID: club.UUID,
			ClubSlug: club.Slug,
			Type:     activityType,
			Message:  message,
			Metadata: map[string]any{"email": email},
		}); err != nil {
			s.deps.Logger.Warn("Failed to record session activity",
				attr.String("club_slug", club.Slug),
				attr.Error(err),
			)
		}
	}
}
