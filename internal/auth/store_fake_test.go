package auth

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuansdf/react-start-template/internal/storage/postgres"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore is an in-memory Store. WithTx snapshots state and restores it when
// fn fails.
type memStore struct {
	mu       sync.Mutex
	clock    *testClock
	users    map[uuid.UUID]postgres.User
	accounts map[uuid.UUID]postgres.Account
	sessions map[uuid.UUID]postgres.Session

	sessionErr error
	sessionHit int
}

var _ Store = (*memStore)(nil)

func newMemStore(clock *testClock) *memStore {
	return &memStore{
		clock:    clock,
		users:    map[uuid.UUID]postgres.User{},
		accounts: map[uuid.UUID]postgres.Account{},
		sessions: map[uuid.UUID]postgres.Session{},
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(postgres.Querier) error) error {
	m.mu.Lock()
	users, accounts, sessions := maps.Clone(m.users), maps.Clone(m.accounts), maps.Clone(m.sessions)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.users, m.accounts, m.sessions = users, accounts, sessions
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) ts() pgtype.Timestamptz { return pgTime(m.clock.Now()) }

func newID() pgtype.UUID { return pgUUID(uuid.New()) }

func key(id pgtype.UUID) uuid.UUID { return uuid.UUID(id.Bytes) }

func (m *memStore) BanUser(ctx context.Context, arg postgres.BanUserParams) (postgres.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[key(arg.ID)]
	if !ok {
		return postgres.User{}, pgx.ErrNoRows
	}
	u.Banned, u.BanReason, u.BanExpires, u.UpdatedAt = true, arg.BanReason, arg.BanExpires, m.ts()
	m.users[key(arg.ID)] = u
	return u, nil
}

func matchesSearch(u postgres.User, search string) bool {
	if search == "" {
		return true
	}
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(u.Email), s) || strings.Contains(strings.ToLower(u.Name), s)
}

func (m *memStore) CountUsers(ctx context.Context, search string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if matchesSearch(u, search) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateAccount(ctx context.Context, arg postgres.CreateAccountParams) (postgres.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := postgres.Account{
		ID:           newID(),
		UserID:       arg.UserID,
		ProviderID:   arg.ProviderID,
		AccountID:    arg.AccountID,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    m.ts(),
		UpdatedAt:    m.ts(),
	}
	m.accounts[key(a.ID)] = a
	return a, nil
}

func (m *memStore) CreateSession(ctx context.Context, arg postgres.CreateSessionParams) (postgres.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := postgres.Session{
		ID:             newID(),
		TokenHash:      arg.TokenHash,
		UserID:         arg.UserID,
		ExpiresAt:      arg.ExpiresAt,
		IpAddress:      arg.IpAddress,
		UserAgent:      arg.UserAgent,
		ImpersonatedBy: arg.ImpersonatedBy,
		CreatedAt:      m.ts(),
		UpdatedAt:      m.ts(),
	}
	m.sessions[key(s.ID)] = s
	return s, nil
}

func (m *memStore) CreateUser(ctx context.Context, arg postgres.CreateUserParams) (postgres.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, arg.Email) {
			return postgres.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	u := postgres.User{
		ID:            newID(),
		Name:          arg.Name,
		Email:         arg.Email,
		EmailVerified: arg.EmailVerified,
		Role:          arg.Role,
		CreatedAt:     m.ts(),
		UpdatedAt:     m.ts(),
	}
	m.users[key(u.ID)] = u
	return u, nil
}

func (m *memStore) deleteSessionsWhere(pred func(postgres.Session) bool) int64 {
	var n int64
	for id, s := range m.sessions {
		if pred(s) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *memStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	return m.deleteSessionsWhere(func(s postgres.Session) bool { return !s.ExpiresAt.Time.After(now) }), nil
}

func (m *memStore) DeleteOtherUserSessions(ctx context.Context, arg postgres.DeleteOtherUserSessionsParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteSessionsWhere(func(s postgres.Session) bool { return s.UserID == arg.UserID && s.ID != arg.ID }), nil
}

func (m *memStore) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteSessionsWhere(func(s postgres.Session) bool { return s.TokenHash == tokenHash })
	return nil
}

func (m *memStore) DeleteUser(ctx context.Context, id pgtype.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[key(id)]; !ok {
		return 0, nil
	}
	delete(m.users, key(id))
	m.deleteSessionsWhere(func(s postgres.Session) bool { return s.UserID == id })
	for aid, a := range m.accounts {
		if a.UserID == id {
			delete(m.accounts, aid)
		}
	}
	return 1, nil
}

func (m *memStore) DeleteUserSession(ctx context.Context, arg postgres.DeleteUserSessionParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteSessionsWhere(func(s postgres.Session) bool { return s.ID == arg.ID && s.UserID == arg.UserID }), nil
}

func (m *memStore) DeleteUserSessions(ctx context.Context, userID pgtype.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteSessionsWhere(func(s postgres.Session) bool { return s.UserID == userID }), nil
}

func (m *memStore) GetAccountByUserAndProvider(ctx context.Context, arg postgres.GetAccountByUserAndProviderParams) (postgres.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.UserID == arg.UserID && a.ProviderID == arg.ProviderID {
			return a, nil
		}
	}
	return postgres.Account{}, pgx.ErrNoRows
}

func (m *memStore) GetSessionWithUser(ctx context.Context, tokenHash string) (postgres.GetSessionWithUserRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionHit++
	if m.sessionErr != nil {
		return postgres.GetSessionWithUserRow{}, m.sessionErr
	}
	for _, s := range m.sessions {
		if s.TokenHash == tokenHash {
			return postgres.GetSessionWithUserRow{Session: s, User: m.users[key(s.UserID)]}, nil
		}
	}
	return postgres.GetSessionWithUserRow{}, pgx.ErrNoRows
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (postgres.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return postgres.User{}, pgx.ErrNoRows
}

func (m *memStore) GetUserByID(ctx context.Context, id pgtype.UUID) (postgres.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[key(id)]
	if !ok {
		return postgres.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memStore) ListSessionsByUser(ctx context.Context, userID pgtype.UUID) ([]postgres.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	var out []postgres.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.ExpiresAt.Time.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out, nil
}

func (m *memStore) ListUsers(ctx context.Context, arg postgres.ListUsersParams) ([]postgres.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postgres.User
	for _, u := range m.users {
		if matchesSearch(u, arg.Search) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b postgres.User) int { return strings.Compare(a.Email, b.Email) })
	start := min(int(arg.RowOffset), len(out))
	end := min(start+int(arg.RowLimit), len(out))
	return out[start:end], nil
}

func (m *memStore) UnbanUser(ctx context.Context, id pgtype.UUID) (postgres.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[key(id)]
	if !ok {
		return postgres.User{}, pgx.ErrNoRows
	}
	u.Banned, u.BanReason, u.BanExpires, u.UpdatedAt = false, pgtype.Text{}, pgtype.Timestamptz{}, m.ts()
	m.users[key(id)] = u
	return u, nil
}

func (m *memStore) UpdateAccountPassword(ctx context.Context, arg postgres.UpdateAccountPasswordParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.accounts {
		if a.UserID == arg.UserID && a.ProviderID == arg.ProviderID {
			a.PasswordHash = arg.PasswordHash
			m.accounts[id] = a
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memStore) UpdateSessionExpiry(ctx context.Context, arg postgres.UpdateSessionExpiryParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key(arg.ID)]
	if !ok {
		return nil
	}
	s.ExpiresAt, s.UpdatedAt = arg.ExpiresAt, m.ts()
	m.sessions[key(arg.ID)] = s
	return nil
}

func (m *memStore) UpdateUserRole(ctx context.Context, arg postgres.UpdateUserRoleParams) (postgres.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[key(arg.ID)]
	if !ok {
		return postgres.User{}, pgx.ErrNoRows
	}
	u.Role, u.UpdatedAt = arg.Role, m.ts()
	m.users[key(arg.ID)] = u
	return u, nil
}

func (m *memStore) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
