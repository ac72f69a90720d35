package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/tuansdf/react-start-template/internal/audit"
	"github.com/tuansdf/react-start-template/internal/config"
	"github.com/tuansdf/react-start-template/internal/metrics"
	"github.com/tuansdf/react-start-template/internal/storage/postgres"
)

const (
	credentialProvider = "credential"
	defaultListLimit   = 100
	maxListLimit       = 1000
)

// Store is the persistence the auth service needs.
type Store interface {
	postgres.Querier
	WithTx(ctx context.Context, fn func(postgres.Querier) error) error
}

// Service implements email/password authentication, database-backed
// sessions with a signed cookie cache, and user administration.
type Service struct {
	store        Store
	cfg          config.AuthConfig
	env          string
	cache        *cookieCache
	limiter      RateLimiter
	limitedLog   rate.Sometimes
	origins      originAllowList
	proxies      []*net.IPNet
	secure       bool
	audit        *audit.Logger
	logger       zerolog.Logger
	validate     *validator.Validate
	passwordCost int
	now          func() time.Time
	mux          *http.ServeMux
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for session expiry, bans and cookies.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPasswordCost sets the bcrypt cost.
func WithPasswordCost(cost int) Option {
	return func(s *Service) { s.passwordCost = cost }
}

// WithRateLimiter replaces the in-memory limiter, for example with one backed
// by shared storage.
func WithRateLimiter(l RateLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithAuditLogger records admin actions through l.
func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

// NewService builds the auth service over store. The cookie cache is enabled
// when AUTH_COOKIE_CACHE_MAX_AGE is positive and the in-memory rate limiter
// when rate limiting is enabled and no limiter was supplied.
func NewService(store Store, cfg config.Config, logger zerolog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth service: store is nil")
	}

	s := &Service{
		store:        store,
		cfg:          cfg.Auth,
		env:          cfg.Environment,
		origins:      newOriginAllowList(cfg.Auth.BaseURL, cfg.Auth.TrustedOrigins),
		proxies:      parseCIDRs(cfg.Auth.TrustedProxies),
		secure:       strings.HasPrefix(strings.ToLower(cfg.Auth.BaseURL), "https://"),
		logger:       zerolog.Nop(),
		validate:     newValidator(),
		passwordCost: bcrypt.DefaultCost,
		now:          time.Now,
		limitedLog:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	if cfg.IsDevelopment() {
		s.logger = logger.With().Str("component", "auth").Logger()
	}

	for _, opt := range opts {
		opt(s)
	}

	if cfg.Auth.CookieCacheTTL > 0 {
		cache, err := newCookieCache([]byte(cfg.Auth.Secret), cfg.Auth.CookieCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("auth service: %w", err)
		}
		s.cache = cache
	}
	if s.limiter == nil && cfg.RateLimit.Enabled {
		s.limiter = NewMemoryRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.Max)
	}

	s.routes()
	return s, nil
}

// Close releases background resources.
func (s *Service) Close() {
	if l, ok := s.limiter.(*MemoryRateLimiter); ok {
		l.Stop()
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) validateInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return newValidationError(err)
	}
	return nil
}

// SignUpInput is the email sign-up request.
type SignUpInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// SignInInput is the email sign-in request. A nil RememberMe means true.
type SignInInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,max=128"`
	RememberMe  *bool  `json:"rememberMe"`
	CallbackURL string `json:"callbackURL"`
}

// Remember reports whether the session cookie should persist across browser
// restarts. Omitted means yes.
func (in SignInInput) Remember() bool {
	return in.RememberMe == nil || *in.RememberMe
}

// ChangePasswordInput changes the signed-in user's password, optionally
// revoking their other sessions.
type ChangePasswordInput struct {
	CurrentPassword     string `json:"currentPassword" validate:"required,max=128"`
	NewPassword         string `json:"newPassword" validate:"required,min=8,max=128"`
	RevokeOtherSessions bool   `json:"revokeOtherSessions"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a user with a password credential and signs them in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput, meta RequestMeta) (*SessionResult, string, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validateInput(in); err != nil {
		return nil, "", err
	}

	hash, err := hashPassword(in.Password, s.passwordCost)
	if err != nil {
		return nil, "", err
	}

	var (
		result *SessionResult
		token  string
	)
	err = s.store.WithTx(ctx, func(q postgres.Querier) error {
		user, err := createCredentialUser(ctx, q, in.Name, in.Email, hash, RoleUser)
		if err != nil {
			return err
		}
		token, result, err = s.createSession(ctx, q, user, meta)
		return err
	})
	if err != nil {
		metrics.AuthEvents.WithLabelValues("sign_up", "failure").Inc()
		return nil, "", err
	}

	metrics.AuthEvents.WithLabelValues("sign_up", "success").Inc()
	s.logger.Info().Str("user_id", result.User.ID.String()).Msg("user signed up")
	return result, token, nil
}

// SignIn verifies an email/password pair and opens a new session.
func (s *Service) SignIn(ctx context.Context, in SignInInput, meta RequestMeta) (*SessionResult, string, error) {
	result, token, err := s.signIn(ctx, in, meta)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("sign_in", "failure").Inc()
		s.logger.Debug().Err(err).Msg("sign in rejected")
		return nil, "", err
	}
	metrics.AuthEvents.WithLabelValues("sign_in", "success").Inc()
	s.logger.Info().Str("user_id", result.User.ID.String()).Msg("user signed in")
	return result, token, nil
}

func (s *Service) signIn(ctx context.Context, in SignInInput, meta RequestMeta) (*SessionResult, string, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validateInput(in); err != nil {
		return nil, "", err
	}

	user, err := s.store.GetUserByEmail(ctx, in.Email)
	if postgres.IsNotFound(err) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}

	account, err := s.store.GetAccountByUserAndProvider(ctx, postgres.GetAccountByUserAndProviderParams{
		UserID:     user.ID,
		ProviderID: credentialProvider,
	})
	if postgres.IsNotFound(err) || (err == nil && !account.PasswordHash.Valid) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("load credential: %w", err)
	}

	ok, err := verifyPassword(account.PasswordHash.String, in.Password)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	user, err = s.liftExpiredBan(ctx, s.store, user)
	if err != nil {
		return nil, "", err
	}

	token, result, err := s.createSession(ctx, s.store, user, meta)
	if err != nil {
		return nil, "", err
	}
	return result, token, nil
}

// liftExpiredBan returns ErrBanned for an active ban and clears a ban whose
// expiry has passed.
func (s *Service) liftExpiredBan(ctx context.Context, q postgres.Querier, user postgres.User) (postgres.User, error) {
	if !user.Banned {
		return user, nil
	}
	if !user.BanExpires.Valid || user.BanExpires.Time.After(s.now()) {
		return user, ErrBanned
	}
	unbanned, err := q.UnbanUser(ctx, user.ID)
	if err != nil {
		return user, fmt.Errorf("lift expired ban: %w", err)
	}
	s.logger.Info().Str("user_id", uuid.UUID(user.ID.Bytes).String()).Msg("expired ban lifted")
	return unbanned, nil
}

func createCredentialUser(ctx context.Context, q postgres.Querier, name, email, passwordHash string, role Role) (postgres.User, error) {
	_, err := q.GetUserByEmail(ctx, email)
	if err == nil {
		return postgres.User{}, ErrUserExists
	}
	if !postgres.IsNotFound(err) {
		return postgres.User{}, fmt.Errorf("check existing user: %w", err)
	}

	user, err := q.CreateUser(ctx, postgres.CreateUserParams{
		Name:  name,
		Email: email,
		Role:  string(role),
	})
	if postgres.IsUniqueViolation(err) {
		return postgres.User{}, ErrUserExists
	}
	if err != nil {
		return postgres.User{}, fmt.Errorf("create user: %w", err)
	}

	if _, err := q.CreateAccount(ctx, postgres.CreateAccountParams{
		UserID:       user.ID,
		ProviderID:   credentialProvider,
		AccountID:    uuid.UUID(user.ID.Bytes).String(),
		PasswordHash: pgText(passwordHash),
	}); err != nil {
		return postgres.User{}, fmt.Errorf("create credential: %w", err)
	}
	return user, nil
}

func (s *Service) createSession(ctx context.Context, q postgres.Querier, user postgres.User, meta RequestMeta) (string, *SessionResult, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", nil, err
	}

	row, err := q.CreateSession(ctx, postgres.CreateSessionParams{
		TokenHash: hashToken(token),
		UserID:    user.ID,
		ExpiresAt: pgTime(s.now().Add(s.cfg.SessionExpiry)),
		IpAddress: pgText(meta.IPAddress),
		UserAgent: pgText(meta.UserAgent),
	})
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	return token, &SessionResult{Session: sessionFromRow(row), User: userFromRow(user)}, nil
}

// SignOut deletes the session identified by token. Unknown tokens are not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSessionByTokenHash(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	metrics.AuthEvents.WithLabelValues("sign_out", "success").Inc()
	return nil
}

// GetSession resolves the session carried by headers: the session token
// cookie or an Authorization bearer token. It returns nil without error when
// there is no valid session.
func (s *Service) GetSession(ctx context.Context, headers http.Header) (*SessionResult, error) {
	token := s.tokenFromHeaders(headers)
	if token == "" {
		metrics.SessionLookups.WithLabelValues("none").Inc()
		return nil, nil
	}
	tokenHash := hashToken(token)

	if s.cache != nil {
		if cached, ok := s.cache.open(cookieValue(headers, s.cacheCookieName()), tokenHash); ok {
			metrics.SessionLookups.WithLabelValues("cookie_cache").Inc()
			return cached, nil
		}
	}
	metrics.SessionLookups.WithLabelValues("store").Inc()

	row, err := s.store.GetSessionWithUser(ctx, tokenHash)
	if postgres.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	now := s.now()
	if !row.Session.ExpiresAt.Time.After(now) {
		if err := s.store.DeleteSessionByTokenHash(ctx, tokenHash); err != nil {
			s.logger.Warn().Err(err).Msg("delete expired session")
		}
		return nil, nil
	}

	user, err := s.liftExpiredBan(ctx, s.store, row.User)
	if errors.Is(err, ErrBanned) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	result := &SessionResult{Session: sessionFromRow(row.Session), User: userFromRow(user)}

	refreshed := false
	if s.shouldExtend(result.Session, now) {
		expires := now.Add(s.cfg.SessionExpiry)
		if err := s.store.UpdateSessionExpiry(ctx, postgres.UpdateSessionExpiryParams{
			ID:        row.Session.ID,
			ExpiresAt: pgTime(expires),
		}); err != nil {
			return nil, fmt.Errorf("extend session: %w", err)
		}
		result.Session.ExpiresAt = expires
		result.Session.UpdatedAt = now
		refreshed = true
	}

	cookies, err := s.sessionCookies(token, result, refreshed, s.remembered(headers))
	if err != nil {
		return nil, err
	}
	result.Cookies = cookies
	return result, nil
}

// shouldExtend reports whether more than the update age has passed since the
// session's expiry was last set.
func (s *Service) shouldExtend(session Session, now time.Time) bool {
	if s.cfg.SessionUpdate <= 0 {
		return false
	}
	issued := session.ExpiresAt.Add(-s.cfg.SessionExpiry)
	return now.Sub(issued) >= s.cfg.SessionUpdate
}

func (s *Service) tokenFromHeaders(headers http.Header) string {
	if token := cookieValue(headers, s.tokenCookieName()); token != "" {
		return token
	}
	scheme, token, ok := strings.Cut(headers.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// ListSessions returns the user's unexpired sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	rows, err := s.store.ListSessionsByUser(ctx, pgUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make([]Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, sessionFromRow(row))
	}
	return sessions, nil
}

// RevokeSession deletes one of the user's own sessions.
func (s *Service) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	n, err := s.store.DeleteUserSession(ctx, postgres.DeleteUserSessionParams{
		ID:     pgUUID(sessionID),
		UserID: pgUUID(userID),
	})
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeOtherSessions deletes every session of the user except keep.
func (s *Service) RevokeOtherSessions(ctx context.Context, userID, keep uuid.UUID) (int64, error) {
	n, err := s.store.DeleteOtherUserSessions(ctx, postgres.DeleteOtherUserSessionsParams{
		UserID: pgUUID(userID),
		ID:     pgUUID(keep),
	})
	if err != nil {
		return 0, fmt.Errorf("revoke other sessions: %w", err)
	}
	return n, nil
}

// ChangePassword replaces the credential of the session's user after
// checking the current password.
func (s *Service) ChangePassword(ctx context.Context, current *SessionResult, in ChangePasswordInput) error {
	if err := s.validateInput(in); err != nil {
		return err
	}
	userID := pgUUID(current.User.ID)

	account, err := s.store.GetAccountByUserAndProvider(ctx, postgres.GetAccountByUserAndProviderParams{
		UserID:     userID,
		ProviderID: credentialProvider,
	})
	if postgres.IsNotFound(err) || (err == nil && !account.PasswordHash.Valid) {
		return ErrPasswordNotSet
	}
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	ok, err := verifyPassword(account.PasswordHash.String, in.CurrentPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := hashPassword(in.NewPassword, s.passwordCost)
	if err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(q postgres.Querier) error {
		if _, err := q.UpdateAccountPassword(ctx, postgres.UpdateAccountPasswordParams{
			UserID:       userID,
			ProviderID:   credentialProvider,
			PasswordHash: pgText(hash),
		}); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if in.RevokeOtherSessions {
			if _, err := q.DeleteOtherUserSessions(ctx, postgres.DeleteOtherUserSessionsParams{
				UserID: userID,
				ID:     pgUUID(current.Session.ID),
			}); err != nil {
				return fmt.Errorf("revoke other sessions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.AuthEvents.WithLabelValues("change_password", "success").Inc()
	s.logger.Info().Str("user_id", current.User.ID.String()).Msg("password changed")
	return nil
}
