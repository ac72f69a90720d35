package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tuansdf/react-start-template/internal/config"
	"github.com/tuansdf/react-start-template/internal/storage/postgres"
)

const testPassword = "correct-horse-battery"

func testConfig() config.Config {
	return config.Config{
		Environment: config.EnvTest,
		Auth: config.AuthConfig{
			Secret:         strings.Repeat("s", 32),
			BaseURL:        "http://localhost:5000",
			SessionExpiry:  7 * 24 * time.Hour,
			SessionUpdate:  24 * time.Hour,
			CookieCacheTTL: 5 * time.Minute,
			CookiePrefix:   "app",
			SignInPath:     "/sign-in",
		},
		RateLimit: config.RateLimitConfig{Window: time.Minute, Max: 10},
	}
}

type testEnv struct {
	svc   *Service
	store *memStore
	clock *testClock
}

func newTestEnv(t *testing.T, cfg config.Config, opts ...Option) *testEnv {
	t.Helper()
	clock := newTestClock()
	store := newMemStore(clock)
	opts = append([]Option{WithClock(clock.Now), WithPasswordCost(bcrypt.MinCost)}, opts...)
	svc, err := NewService(store, cfg, zerolog.Nop(), opts...)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return &testEnv{svc: svc, store: store, clock: clock}
}

func (e *testEnv) signUp(t *testing.T, email string) (*SessionResult, string) {
	t.Helper()
	result, token, err := e.svc.SignUp(context.Background(), SignUpInput{
		Name:     "Test User",
		Email:    email,
		Password: testPassword,
	}, RequestMeta{IPAddress: "192.0.2.1", UserAgent: "test"})
	require.NoError(t, err)
	return result, token
}

// sessionHeaders builds request headers carrying the given cookies.
func sessionHeaders(cookies ...*http.Cookie) http.Header {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r.Header
}

func (e *testEnv) tokenCookie(token string) *http.Cookie {
	return &http.Cookie{Name: e.svc.tokenCookieName(), Value: token}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestNewService_NilStore(t *testing.T) {
	_, err := NewService(nil, testConfig(), zerolog.Nop())
	require.Error(t, err)
}

func TestSignUp(t *testing.T) {
	env := newTestEnv(t, testConfig())

	result, token := env.signUp(t, "  New@Example.com ")

	assert.Equal(t, "new@example.com", result.User.Email)
	assert.Equal(t, string(RoleUser), result.User.Role)
	assert.NotEmpty(t, token)
	assert.Equal(t, result.User.ID, result.Session.UserID)
	assert.Equal(t, env.clock.Now().Add(7*24*time.Hour), result.Session.ExpiresAt)
	assert.Equal(t, "192.0.2.1", result.Session.IPAddress)
	assert.Equal(t, 1, env.store.sessionCount())

	stored, err := env.store.GetSessionWithUser(context.Background(), hashToken(token))
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", stored.User.Email)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.signUp(t, "dup@example.com")

	_, _, err := env.svc.SignUp(context.Background(), SignUpInput{
		Name:     "Again",
		Email:    "DUP@example.com",
		Password: testPassword,
	}, RequestMeta{})
	require.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, 1, env.store.sessionCount())
}

func TestSignUp_Validation(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, _, err := env.svc.SignUp(context.Background(), SignUpInput{
		Name:     "",
		Email:    "not-an-email",
		Password: "short",
	}, RequestMeta{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["name"])
	assert.Equal(t, "email", verr.Fields["email"])
	assert.Equal(t, "min=8", verr.Fields["password"])
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.signUp(t, "user@example.com")
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "success", email: "user@example.com", password: testPassword},
		{name: "email is case-insensitive", email: "USER@example.com", password: testPassword},
		{name: "wrong password", email: "user@example.com", password: "wrong-password", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "nobody@example.com", password: testPassword, wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, token, err := env.svc.SignIn(ctx, SignInInput{Email: tt.email, Password: tt.password}, RequestMeta{})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.Equal(t, "user@example.com", result.User.Email)
		})
	}
}

func TestSignIn_Ban(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	signedUp, _ := env.signUp(t, "banned@example.com")
	userID := pgUUID(signedUp.User.ID)

	_, err := env.store.BanUser(ctx, postgres.BanUserParams{ID: userID, BanReason: pgText("spam")})
	require.NoError(t, err)

	_, _, err = env.svc.SignIn(ctx, SignInInput{Email: "banned@example.com", Password: testPassword}, RequestMeta{})
	require.ErrorIs(t, err, ErrBanned)

	_, err = env.store.BanUser(ctx, postgres.BanUserParams{
		ID:         userID,
		BanExpires: pgTime(env.clock.Now().Add(-time.Minute)),
	})
	require.NoError(t, err)

	result, _, err := env.svc.SignIn(ctx, SignInInput{Email: "banned@example.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)
	assert.False(t, result.User.Banned)
	assert.Nil(t, result.User.BanReason)
}

func TestSignIn_RememberDefaultsOn(t *testing.T) {
	off := false
	assert.True(t, SignInInput{}.Remember())
	assert.False(t, SignInInput{RememberMe: &off}.Remember())
}

func TestGetSession_NoToken(t *testing.T) {
	env := newTestEnv(t, testConfig())

	result, err := env.svc.GetSession(context.Background(), http.Header{})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGetSession_StoreLookupIssuesCacheCookie(t *testing.T) {
	env := newTestEnv(t, testConfig())
	signedUp, token := env.signUp(t, "lookup@example.com")

	result, err := env.svc.GetSession(context.Background(), sessionHeaders(env.tokenCookie(token)))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, signedUp.Session.ID, result.Session.ID)
	assert.Equal(t, "lookup@example.com", result.User.Email)
	require.Len(t, result.Cookies, 1)
	assert.Equal(t, env.svc.cacheCookieName(), result.Cookies[0].Name)
	assert.Equal(t, 1, env.store.sessionHit)
}

func TestGetSession_CookieCacheSkipsStore(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, token := env.signUp(t, "cached@example.com")

	first, err := env.svc.GetSession(ctx, sessionHeaders(env.tokenCookie(token)))
	require.NoError(t, err)
	cacheCookie := findCookie(first.Cookies, env.svc.cacheCookieName())
	require.NotNil(t, cacheCookie)

	require.NoError(t, env.store.DeleteSessionByTokenHash(ctx, hashToken(token)))
	hits := env.store.sessionHit

	cached, err := env.svc.GetSession(ctx, sessionHeaders(env.tokenCookie(token), cacheCookie))
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "cached@example.com", cached.User.Email)
	assert.Empty(t, cached.Cookies)
	assert.Equal(t, hits, env.store.sessionHit)

	// A snapshot issued for one token does not open for another.
	_, otherToken := env.signUp(t, "other@example.com")
	other, err := env.svc.GetSession(ctx, sessionHeaders(env.tokenCookie(otherToken), cacheCookie))
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, "other@example.com", other.User.Email)
	assert.Equal(t, hits+1, env.store.sessionHit)
}

func TestGetSession_CacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.CookieCacheTTL = 0
	env := newTestEnv(t, cfg)
	_, token := env.signUp(t, "nocache@example.com")

	result, err := env.svc.GetSession(context.Background(), sessionHeaders(env.tokenCookie(token)))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Cookies)
}

func TestGetSession_BearerToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, token := env.signUp(t, "bearer@example.com")

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)

	result, err := env.svc.GetSession(context.Background(), headers)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "bearer@example.com", result.User.Email)
}

func TestGetSession_UnknownToken(t *testing.T) {
	env := newTestEnv(t, testConfig())

	result, err := env.svc.GetSession(context.Background(), sessionHeaders(env.tokenCookie("does-not-exist")))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGetSession_ExpiredIsDeleted(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, token := env.signUp(t, "expired@example.com")

	env.clock.Advance(8 * 24 * time.Hour)

	result, err := env.svc.GetSession(context.Background(), sessionHeaders(env.tokenCookie(token)))
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, env.store.sessionCount())
}

func TestGetSession_SlidingExpiry(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	signedUp, token := env.signUp(t, "sliding@example.com")
	originalExpiry := signedUp.Session.ExpiresAt

	env.clock.Advance(time.Hour)
	fresh, err := env.svc.GetSession(ctx, sessionHeaders(env.tokenCookie(token)))
	require.NoError(t, err)
	assert.Equal(t, originalExpiry, fresh.Session.ExpiresAt)
	assert.Nil(t, findCookie(fresh.Cookies, env.svc.tokenCookieName()))

	env.clock.Advance(24 * time.Hour)
	extended, err := env.svc.GetSession(ctx, sessionHeaders(env.tokenCookie(token)))
	require.NoError(t, err)
	wantExpiry := env.clock.Now().Add(7 * 24 * time.Hour)
	assert.Equal(t, wantExpiry, extended.Session.ExpiresAt)

	tokenCookie := findCookie(extended.Cookies, env.svc.tokenCookieName())
	require.NotNil(t, tokenCookie)
	assert.Equal(t, token, tokenCookie.Value)
	assert.Positive(t, tokenCookie.MaxAge)

	stored, err := env.store.GetSessionWithUser(ctx, hashToken(token))
	require.NoError(t, err)
	assert.True(t, stored.Session.ExpiresAt.Time.Equal(wantExpiry))
}

func TestGetSession_Banned(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	signedUp, token := env.signUp(t, "ban@example.com")
	userID := pgUUID(signedUp.User.ID)

	_, err := env.store.BanUser(ctx, postgres.BanUserParams{ID: userID})
	require.NoError(t, err)

	result, err := env.svc.GetSession(ctx, sessionHeaders(env.tokenCookie(token)))
	require.NoError(t, err)
	assert.Nil(t, result)

	_, err = env.store.BanUser(ctx, postgres.BanUserParams{ID: userID, BanExpires: pgTime(env.clock.Now().Add(time.Hour))})
	require.NoError(t, err)
	env.clock.Advance(2 * time.Hour)

	result, err = env.svc.GetSession(ctx, sessionHeaders(env.tokenCookie(token)))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.User.Banned)
}

func TestGetSession_StoreError(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.store.sessionErr = errors.New("connection refused")

	result, err := env.svc.GetSession(context.Background(), sessionHeaders(env.tokenCookie("token")))
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestSignOut(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	_, token := env.signUp(t, "signout@example.com")

	require.NoError(t, env.svc.SignOut(ctx, token))
	assert.Equal(t, 0, env.store.sessionCount())

	require.NoError(t, env.svc.SignOut(ctx, token))
	require.NoError(t, env.svc.SignOut(ctx, ""))
}

func TestSessionManagement(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	first, _ := env.signUp(t, "multi@example.com")
	userID := first.User.ID

	env.clock.Advance(time.Minute)
	second, _, err := env.svc.SignIn(ctx, SignInInput{Email: "multi@example.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	third, _, err := env.svc.SignIn(ctx, SignInInput{Email: "multi@example.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)

	sessions, err := env.svc.ListSessions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, third.Session.ID, sessions[0].ID)

	require.NoError(t, env.svc.RevokeSession(ctx, userID, second.Session.ID))
	require.ErrorIs(t, env.svc.RevokeSession(ctx, userID, second.Session.ID), ErrSessionNotFound)

	n, err := env.svc.RevokeOtherSessions(ctx, userID, third.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sessions, err = env.svc.ListSessions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, third.Session.ID, sessions[0].ID)
}

func TestRevokeSession_OtherUsersSession(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	alice, _ := env.signUp(t, "alice@example.com")
	bob, _ := env.signUp(t, "bob@example.com")

	err := env.svc.RevokeSession(ctx, alice.User.ID, bob.Session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 2, env.store.sessionCount())
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	current, _ := env.signUp(t, "change@example.com")
	_, _, err := env.svc.SignIn(ctx, SignInInput{Email: "change@example.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, 2, env.store.sessionCount())

	err = env.svc.ChangePassword(ctx, current, ChangePasswordInput{
		CurrentPassword: "wrong-password",
		NewPassword:     "another-long-password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	err = env.svc.ChangePassword(ctx, current, ChangePasswordInput{
		CurrentPassword:     testPassword,
		NewPassword:         "another-long-password",
		RevokeOtherSessions: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, env.store.sessionCount())

	_, _, err = env.svc.SignIn(ctx, SignInInput{Email: "change@example.com", Password: testPassword}, RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = env.svc.SignIn(ctx, SignInInput{Email: "change@example.com", Password: "another-long-password"}, RequestMeta{})
	require.NoError(t, err)
}

func TestChangePassword_Validation(t *testing.T) {
	env := newTestEnv(t, testConfig())
	current, _ := env.signUp(t, "weak@example.com")

	err := env.svc.ChangePassword(context.Background(), current, ChangePasswordInput{
		CurrentPassword: testPassword,
		NewPassword:     "short",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "newPassword")
}
