package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	user, err := env.svc.CreateUser(ctx, CreateUserInput{
		Name:     "Operator",
		Email:    "Ops@Example.com",
		Password: testPassword,
		Role:     "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", user.Email)
	assert.Equal(t, "admin", user.Role)
	assert.Equal(t, 0, env.store.sessionCount())

	_, _, err = env.svc.SignIn(ctx, SignInInput{Email: "ops@example.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)

	_, err = env.svc.CreateUser(ctx, CreateUserInput{Name: "x", Email: "ops@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrUserExists)

	_, err = env.svc.CreateUser(ctx, CreateUserInput{Name: "x", Email: "y@example.com", Password: testPassword, Role: "root"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "role")
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	for i := range 5 {
		_, err := env.svc.CreateUser(ctx, CreateUserInput{
			Name:     fmt.Sprintf("User %d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Password: testPassword,
		})
		require.NoError(t, err)
	}
	_, err := env.svc.CreateUser(ctx, CreateUserInput{Name: "Zed", Email: "zed@other.org", Password: testPassword})
	require.NoError(t, err)

	all, err := env.svc.ListUsers(ctx, ListUsersInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), all.Total)
	assert.Len(t, all.Users, 6)
	assert.Equal(t, defaultListLimit, all.Limit)

	page, err := env.svc.ListUsers(ctx, ListUsersInput{SearchValue: "example.com", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "user2@example.com", page.Users[0].Email)

	capped, err := env.svc.ListUsers(ctx, ListUsersInput{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, capped.Limit)

	_, err = env.svc.ListUsers(ctx, ListUsersInput{Offset: -1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	signedUp, _ := env.signUp(t, "role@example.com")

	user, err := env.svc.SetRole(ctx, signedUp.User.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)

	_, err = env.svc.SetRole(ctx, signedUp.User.ID, "superuser")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = env.svc.SetRole(ctx, uuid.New(), "user")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestBanUser(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	admin, _ := env.signUp(t, "admin@example.com")
	target, _ := env.signUp(t, "target@example.com")

	_, err := env.svc.BanUser(ctx, admin.User.ID, BanUserInput{UserID: admin.User.ID})
	require.ErrorIs(t, err, ErrSelfAction)

	banned, err := env.svc.BanUser(ctx, admin.User.ID, BanUserInput{
		UserID:       target.User.ID,
		BanReason:    " abuse ",
		BanExpiresIn: 3600,
	})
	require.NoError(t, err)
	assert.True(t, banned.Banned)
	require.NotNil(t, banned.BanReason)
	assert.Equal(t, "abuse", *banned.BanReason)
	require.NotNil(t, banned.BanExpires)
	assert.True(t, banned.BanExpires.Equal(env.clock.Now().Add(time.Hour)))

	sessions, err := env.svc.ListUserSessions(ctx, target.User.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.Equal(t, 1, env.store.sessionCount())

	unbanned, err := env.svc.UnbanUser(ctx, target.User.ID)
	require.NoError(t, err)
	assert.False(t, unbanned.Banned)
	assert.Nil(t, unbanned.BanExpires)

	_, err = env.svc.BanUser(ctx, admin.User.ID, BanUserInput{UserID: uuid.New()})
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, 1, env.store.sessionCount())
}

func TestListAndRevokeUserSessions(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	target, _ := env.signUp(t, "sessions@example.com")
	_, _, err := env.svc.SignIn(ctx, SignInInput{Email: "sessions@example.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)

	sessions, err := env.svc.ListUserSessions(ctx, target.User.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	n, err := env.svc.RevokeUserSessions(ctx, target.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = env.svc.ListUserSessions(ctx, uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRemoveUser(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	admin, _ := env.signUp(t, "admin@example.com")
	target, _ := env.signUp(t, "gone@example.com")

	require.ErrorIs(t, env.svc.RemoveUser(ctx, admin.User.ID, admin.User.ID), ErrSelfAction)
	require.NoError(t, env.svc.RemoveUser(ctx, admin.User.ID, target.User.ID))
	require.ErrorIs(t, env.svc.RemoveUser(ctx, admin.User.ID, target.User.ID), ErrUserNotFound)

	assert.Equal(t, 1, env.store.sessionCount())
	_, _, err := env.svc.SignIn(ctx, SignInInput{Email: "gone@example.com", Password: testPassword}, RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	created, err := env.svc.EnsureAdmin(ctx, "", "root@example.com", testPassword)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.svc.EnsureAdmin(ctx, "", "root@example.com", "a-different-password")
	require.NoError(t, err)
	assert.False(t, created)

	result, _, err := env.svc.SignIn(ctx, SignInInput{Email: "root@example.com", Password: testPassword}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Admin", result.User.Name)
	assert.True(t, IsAdmin(result.User.Role))
}
