package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	accessservice "github.com/bmxtools/raceday/app/modules/access/application"
	clubservice "github.com/bmxtools/raceday/app/modules/club/application"
	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
)

type createClubRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Timezone     string `json:"timezone"`
	Location     string `json:"location"`
	ContactEmail string `json:"contact_email"`
	AdminEmail   string `json:"admin_email"`
}

type updateClubRequest struct {
	Name         *string `json:"name"`
	Slug         *string `json:"slug"`
	Timezone     *string `json:"timezone"`
	Location     *string `json:"location"`
	ContactEmail *string `json:"contact_email"`
}

func (s *Server) handleListClubs(w http.ResponseWriter, r *http.Request) {
	if !s.requireSuperAdmin(w, r) {
		return
	}

	q := r.URL.Query()
	filter := clubdb.ListFilter{
		Search:    q.Get("search"),
		Status:    clubdb.StatusFilter(q.Get("status")),
		SortBy:    q.Get("sort"),
		Ascending: q.Get("order") != "desc",
	}
	if filter.Status == "" {
		filter.Status = clubdb.StatusActive
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}

	clubs, err := s.deps.Clubs.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list clubs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clubs": clubs})
}

func (s *Server) handleCreateClub(w http.ResponseWriter, r *http.Request) {
	if !s.requireSuperAdmin(w, r) {
		return
	}

	var req createClubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.deps.Clubs.CreateClub(r.Context(), clubservice.CreateClubInput{
		Name:         req.Name,
		Slug:         req.Slug,
		Timezone:     req.Timezone,
		Location:     req.Location,
		ContactEmail: req.ContactEmail,
		AdminEmail:   req.AdminEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, clubservice.ErrNameRequired),
			errors.Is(err, clubservice.ErrInvalidSlug),
			errors.Is(err, clubservice.ErrInvalidTimezone):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, clubdb.ErrDuplicateSlug):
			writeError(w, http.StatusConflict, "slug already in use")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create club")
		}
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetClub(w http.ResponseWriter, r *http.Request) {
	club, ok := s.clubFromPath(w, r, s.deps.Access.CanManageClub)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, club)
}

func (s *Server) handleUpdateClub(w http.ResponseWriter, r *http.Request) {
	club, ok := s.clubFromPath(w, r, s.deps.Access.CanManageClub)
	if !ok {
		return
	}

	var req updateClubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.deps.Clubs.UpdateClub(r.Context(), club.UUID, clubservice.UpdateClubInput{
		Name:         req.Name,
		Slug:         req.Slug,
		Timezone:     req.Timezone,
		Location:     req.Location,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, clubservice.ErrNameRequired),
			errors.Is(err, clubservice.ErrInvalidSlug),
			errors.Is(err, clubservice.ErrInvalidTimezone),
			errors.Is(err, clubservice.ErrSlugImmutable):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, clubdb.ErrDuplicateSlug):
			writeError(w, http.StatusConflict, "slug already in use")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update club")
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleSoftDeleteClub(w http.ResponseWriter, r *http.Request) {
	club, ok := s.clubFromPath(w, r, s.deps.Access.CanSoftDeleteClub)
	if !ok {
		return
	}
	if err := s.deps.Clubs.SoftDelete(r.Context(), club.UUID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete club")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRestoreClub(w http.ResponseWriter, r *http.Request) {
	club, ok := s.clubFromPath(w, r, s.deps.Access.CanRestoreClub)
	if !ok {
		return
	}
	if err := s.deps.Clubs.Restore(r.Context(), club.UUID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to restore club")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleHardDeleteClub(w http.ResponseWriter, r *http.Request) {
	club, ok := s.clubFromPath(w, r, s.deps.Access.CanHardDeleteClub)
	if !ok {
		return
	}
	if err := s.deps.Clubs.HardDelete(r.Context(), club.UUID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to purge club")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type memberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	club, ok := s.clubFromPath(w, r, s.deps.Access.CanManageClub)
	if !ok {
		return
	}
	members, err := s.deps.Access.ListMembers(r.Context(), club.UUID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	club, ok := s.clubFromPath(w, r, s.deps.Access.CanManageClub)
	if !ok {
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := s.deps.Access.AddMember(r.Context(), club.UUID, req.Email, req.Role)
	if err != nil {
		writeMemberError(w, err, "failed to add member")
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	club, ok := s.clubFromPath(w, r, s.deps.Access.CanManageClub)
	if !ok {
		return
	}
	userUUID, err := uuid.Parse(chi.URLParam(r, "userUUID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.deps.Access.UpdateMember(r.Context(), club.UUID, userUUID, req.Role); err != nil {
		writeMemberError(w, err, "failed to update member")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	club, ok := s.clubFromPath(w, r, s.deps.Access.CanManageClub)
	if !ok {
		return
	}
	userUUID, err := uuid.Parse(chi.URLParam(r, "userUUID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.deps.Access.RemoveMember(r.Context(), club.UUID, userUUID); err != nil {
		writeMemberError(w, err, "failed to remove member")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func writeMemberError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, accessservice.ErrInvalidRole):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, accessservice.ErrMemberUserNotFound):
		writeError(w, http.StatusUnprocessableEntity, "no account holds that email")
	case errors.Is(err, accessservice.ErrAlreadyMember):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, accessservice.ErrNotMember):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, accessservice.ErrCannotRemoveOwner):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// clubFromPath resolves the {clubUUID} path segment and runs the access
// check. Deleted clubs still resolve here: the admin surface is where restore
// and purge live.
func (s *Server) clubFromPath(
	w http.ResponseWriter,
	r *http.Request,
	check func(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error),
) (*clubservice.ClubInfo, bool) {
	id, ok := identity(r)
	if !ok || id.Expired() {
		writeError(w, http.StatusUnauthorized, "session required")
		return nil, false
	}

	clubUUID, err := uuid.Parse(chi.URLParam(r, "clubUUID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid club id")
		return nil, false
	}

	club, err := s.deps.Clubs.GetByUUID(r.Context(), clubUUID, true)
	if err != nil {
		if errors.Is(err, clubdb.ErrNotFound) {
			writeError(w, http.StatusNotFound, "club not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to resolve club")
		}
		return nil, false
	}

	allowed, err := check(r.Context(), id.UserID, club.UUID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check access")
		return nil, false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "not authorized for this club")
		return nil, false
	}
	return club, true
}

func (s *Server) requireSuperAdmin(w http.ResponseWriter, r *http.Request) bool {
	id, ok := identity(r)
	if !ok || id.Expired() {
		writeError(w, http.StatusUnauthorized, "session required")
		return false
	}
	super, err := s.deps.Access.IsSuperAdmin(r.Context(), id.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check access")
		return false
	}
	if !super {
		writeError(w, http.StatusForbidden, "super admin required")
		return false
	}
	return true
}
