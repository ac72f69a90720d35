package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/tuansdf/react-start-template/internal/api/problem"
	"github.com/tuansdf/react-start-template/internal/metrics"
)

// BasePath is where the auth protocol is mounted.
const BasePath = "/api/auth"

const maxBodyBytes = 1 << 20

func (s *Service) routes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+BasePath+"/sign-up/email", s.handleSignUp)
	mux.HandleFunc("POST "+BasePath+"/sign-in/email", s.handleSignIn)
	mux.HandleFunc("POST "+BasePath+"/sign-out", s.handleSignOut)
	mux.HandleFunc("GET "+BasePath+"/get-session", s.handleGetSession)
	mux.HandleFunc("GET "+BasePath+"/list-sessions", s.handleListSessions)
	mux.HandleFunc("POST "+BasePath+"/revoke-session", s.handleRevokeSession)
	mux.HandleFunc("POST "+BasePath+"/revoke-other-sessions", s.handleRevokeOtherSessions)
	mux.HandleFunc("POST "+BasePath+"/change-password", s.handleChangePassword)
	mux.HandleFunc("GET "+BasePath+"/ok", s.handleOK)

	mux.HandleFunc("POST "+BasePath+"/admin/create-user", s.handleAdminCreateUser)
	mux.HandleFunc("GET "+BasePath+"/admin/list-users", s.handleAdminListUsers)
	mux.HandleFunc("POST "+BasePath+"/admin/set-role", s.handleAdminSetRole)
	mux.HandleFunc("POST "+BasePath+"/admin/ban-user", s.handleAdminBanUser)
	mux.HandleFunc("POST "+BasePath+"/admin/unban-user", s.handleAdminUnbanUser)
	mux.HandleFunc("GET "+BasePath+"/admin/list-user-sessions", s.handleAdminListUserSessions)
	mux.HandleFunc("POST "+BasePath+"/admin/revoke-user-sessions", s.handleAdminRevokeUserSessions)
	mux.HandleFunc("POST "+BasePath+"/admin/remove-user", s.handleAdminRemoveUser)

	mux.HandleFunc(BasePath+"/", func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", nil, s.env)
	})

	s.mux = mux
}

// rateLimitExempt lists read-only endpoints polled by clients.
var rateLimitExempt = map[string]bool{
	BasePath + "/get-session": true,
	BasePath + "/ok":          true,
}

// HandleAuthRequest serves every endpoint under BasePath.
func (s *Service) HandleAuthRequest(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !rateLimitExempt[r.URL.Path] {
		key := clientIP(r, s.proxies) + "|" + r.URL.Path
		if ok, wait := s.limiter.Allow(key); !ok {
			metrics.AuthRateLimited.WithLabelValues(r.URL.Path).Inc()
			s.limitedLog.Do(func() {
				s.logger.Warn().Str("key", key).Dur("retry_after", wait).Msg("auth rate limit exceeded")
			})
			w.Header().Set("X-Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			s.writeError(w, r, ErrRateLimited)
			return
		}
	}

	if err := s.origins.check(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mux.ServeHTTP(w, r)
}

func (s *Service) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in SignUpInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, token, err := s.SignUp(r.Context(), in, s.requestMeta(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.issueSession(w, r, token, result, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": result.User})
}

func (s *Service) handleSignIn(w http.ResponseWriter, r *http.Request) {
	form := isFormRequest(r)

	var in SignInInput
	if form {
		if err := r.ParseForm(); err != nil {
			s.redirectSignInError(w, r, "", "invalid_request")
			return
		}
		in.Email = r.PostForm.Get("email")
		in.Password = r.PostForm.Get("password")
		in.CallbackURL = r.PostForm.Get("callbackURL")
		remember := r.PostForm.Get("rememberMe") != ""
		in.RememberMe = &remember
	} else if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	callback := s.origins.safeRedirect(in.CallbackURL, "/")

	result, token, err := s.SignIn(r.Context(), in, s.requestMeta(r))
	if err == nil {
		err = s.issueSession(w, r, token, result, in.Remember())
	}
	if err != nil {
		if form {
			s.redirectSignInError(w, r, callback, signInErrorCode(err))
			return
		}
		s.writeError(w, r, err)
		return
	}

	if form {
		http.Redirect(w, r, callback, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"redirect": in.CallbackURL != "",
		"url":      callback,
		"token":    token,
		"user":     result.User,
	})
}

func (s *Service) redirectSignInError(w http.ResponseWriter, r *http.Request, callback, code string) {
	q := url.Values{"error": {code}}
	if callback != "" && callback != "/" {
		q.Set("callbackURL", callback)
	}
	http.Redirect(w, r, s.cfg.SignInPath+"?"+q.Encode(), http.StatusSeeOther)
}

func signInErrorCode(err error) string {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrBanned):
		return "banned"
	case errors.As(err, &verr):
		return "invalid_request"
	default:
		return "server_error"
	}
}

func (s *Service) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.SignOut(r.Context(), s.tokenFromHeaders(r.Header)); err != nil {
		s.writeError(w, r, err)
		return
	}
	setCookies(w, s.clearCookies())

	if isFormRequest(r) {
		http.Redirect(w, r, s.cfg.SignInPath, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	result, err := s.GetSession(r.Context(), r.Header)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		if s.tokenFromHeaders(r.Header) != "" {
			setCookies(w, s.clearCookies())
		}
		writeJSON(w, http.StatusOK, nil)
		return
	}
	setCookies(w, result.Cookies)
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	current, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	sessions, err := s.ListSessions(r.Context(), current.User.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

type sessionIDInput struct {
	ID uuid.UUID `json:"id"`
}

func (s *Service) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	current, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var in sessionIDInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.ID == uuid.Nil {
		s.writeError(w, r, &ValidationError{Fields: map[string]string{"id": "required"}})
		return
	}
	if err := s.RevokeSession(r.Context(), current.User.ID, in.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.ID == current.Session.ID {
		setCookies(w, s.clearCookies())
	}
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (s *Service) handleRevokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	current, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if _, err := s.RevokeOtherSessions(r.Context(), current.User.ID, current.Session.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (s *Service) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	current, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var in ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ChangePassword(r.Context(), current, in); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": current.User})
}

func (s *Service) handleOK(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// requireSession resolves the caller's session or writes 401.
func (s *Service) requireSession(w http.ResponseWriter, r *http.Request) (*SessionResult, bool) {
	result, err := s.GetSession(r.Context(), r.Header)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if result == nil {
		s.writeError(w, r, ErrUnauthorized)
		return nil, false
	}
	setCookies(w, result.Cookies)
	return result, true
}

// issueSession sets the token and cache cookies for a newly created session,
// and records a remember-me opt out for later refreshes.
func (s *Service) issueSession(w http.ResponseWriter, r *http.Request, token string, result *SessionResult, persistent bool) error {
	cookies, err := s.sessionCookies(token, result, true, persistent)
	if err != nil {
		return err
	}
	if !persistent {
		cookies = append(cookies, s.dontRememberCookie(true))
	} else if !s.remembered(r.Header) {
		cookies = append(cookies, s.dontRememberCookie(false))
	}
	setCookies(w, cookies)
	return nil
}

func (s *Service) requestMeta(r *http.Request) RequestMeta {
	return RequestMeta{
		IPAddress: clientIP(r, s.proxies),
		UserAgent: r.UserAgent(),
	}
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid input", err, s.env, problem.WithErrors(verr.Fields))
		return
	}

	m := mapError(err)
	problem.Write(w, r, m.status, m.typ, m.title, err, s.env)
}

func isFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.URL.Query().Get(name))
	if err != nil {
		return uuid.Nil, &ValidationError{Fields: map[string]string{name: "uuid"}}
	}
	return id, nil
}

func parseIntParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Fields: map[string]string{name: "numeric"}}
	}
	return n, nil
}
