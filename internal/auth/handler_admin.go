package auth

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

type userIDInput struct {
	UserID uuid.UUID `json:"userId"`
}

func (in userIDInput) check() error {
	if in.UserID == uuid.Nil {
		return &ValidationError{Fields: map[string]string{"userId": "required"}}
	}
	return nil
}

// requireAdmin resolves the caller's session and writes 401 or 403 unless it
// belongs to an admin.
func (s *Service) requireAdmin(w http.ResponseWriter, r *http.Request) (*SessionResult, bool) {
	current, ok := s.requireSession(w, r)
	if !ok {
		return nil, false
	}
	if !IsAdmin(current.User.Role) {
		s.writeError(w, r, ErrForbidden)
		return nil, false
	}
	return current, true
}

// decodeUserID reads a {"userId": ...} body.
func (s *Service) decodeUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var in userIDInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return uuid.Nil, false
	}
	if err := in.check(); err != nil {
		s.writeError(w, r, err)
		return uuid.Nil, false
	}
	return in.UserID, true
}

func (s *Service) recordAdmin(r *http.Request, actor *SessionResult, action string, target uuid.UUID, err error, details map[string]string) {
	if err != nil {
		if details == nil {
			details = map[string]string{}
		}
		details["error"] = err.Error()
		s.audit.LogFailure(action, actor.User.Email, "user", target.String(), clientIP(r, s.proxies), details)
		return
	}
	s.audit.LogSuccess(action, actor.User.Email, "user", target.String(), clientIP(r, s.proxies), details)
}

func (s *Service) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	var in CreateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.CreateUser(r.Context(), in)
	s.recordAdmin(r, actor, "admin.user.create", user.ID, err, map[string]string{"email": normalizeEmail(in.Email)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Service) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	limit, err := parseIntParam(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := parseIntParam(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.ListUsers(r.Context(), ListUsersInput{
		SearchValue: r.URL.Query().Get("searchValue"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Service) handleAdminSetRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	var in struct {
		UserID uuid.UUID `json:"userId"`
		Role   string    `json:"role"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := (userIDInput{UserID: in.UserID}).check(); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.SetRole(r.Context(), in.UserID, in.Role)
	s.recordAdmin(r, actor, "admin.user.set_role", in.UserID, err, map[string]string{"role": in.Role})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Service) handleAdminBanUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	var in BanUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := (userIDInput{UserID: in.UserID}).check(); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.BanUser(r.Context(), actor.User.ID, in)
	s.recordAdmin(r, actor, "admin.user.ban", in.UserID, err, map[string]string{
		"reason":     in.BanReason,
		"expires_in": strconv.FormatInt(in.BanExpiresIn, 10),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Service) handleAdminUnbanUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	userID, ok := s.decodeUserID(w, r)
	if !ok {
		return
	}

	user, err := s.UnbanUser(r.Context(), userID)
	s.recordAdmin(r, actor, "admin.user.unban", userID, err, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Service) handleAdminListUserSessions(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	userID, err := parseUUIDParam(r, "userId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sessions, err := s.ListUserSessions(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Service) handleAdminRevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	userID, ok := s.decodeUserID(w, r)
	if !ok {
		return
	}

	n, err := s.RevokeUserSessions(r.Context(), userID)
	s.recordAdmin(r, actor, "admin.user.revoke_sessions", userID, err, map[string]string{"revoked": strconv.FormatInt(n, 10)})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Service) handleAdminRemoveUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	userID, ok := s.decodeUserID(w, r)
	if !ok {
		return
	}

	err := s.RemoveUser(r.Context(), actor.User.ID, userID)
	s.recordAdmin(r, actor, "admin.user.remove", userID, err, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
