package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuansdf/react-start-template/internal/storage/postgres"
)

// CreateUserInput is the admin create-user request. Role defaults to user.
type CreateUserInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// ListUsersInput filters and pages ListUsers. SearchValue matches email or
// name; Limit is clamped to the service maximum.
type ListUsersInput struct {
	SearchValue string `json:"searchValue" validate:"max=255"`
	Limit       int    `json:"limit" validate:"min=0"`
	Offset      int    `json:"offset" validate:"min=0"`
}

// UserList is one page of users with the total matching count.
type UserList struct {
	Users  []User `json:"users"`
	Total  int64  `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// BanUserInput is the admin ban-user request.
type BanUserInput struct {
	UserID    uuid.UUID `json:"userId"`
	BanReason string    `json:"banReason" validate:"max=500"`
	// BanExpiresIn is in seconds; zero bans permanently.
	BanExpiresIn int64 `json:"banExpiresIn" validate:"min=0"`
}

// CreateUser creates a credential user without signing them in.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Role == "" {
		in.Role = string(RoleUser)
	}
	if err := s.validateInput(in); err != nil {
		return User{}, err
	}

	hash, err := hashPassword(in.Password, s.passwordCost)
	if err != nil {
		return User{}, err
	}

	var created postgres.User
	err = s.store.WithTx(ctx, func(q postgres.Querier) error {
		created, err = createCredentialUser(ctx, q, in.Name, in.Email, hash, Role(in.Role))
		return err
	})
	if err != nil {
		return User{}, err
	}
	return userFromRow(created), nil
}

// ListUsers returns one page of users, newest first.
func (s *Service) ListUsers(ctx context.Context, in ListUsersInput) (UserList, error) {
	if err := s.validateInput(in); err != nil {
		return UserList{}, err
	}
	if in.Limit == 0 {
		in.Limit = defaultListLimit
	}
	in.Limit = min(in.Limit, maxListLimit)
	search := strings.TrimSpace(in.SearchValue)

	total, err := s.store.CountUsers(ctx, search)
	if err != nil {
		return UserList{}, fmt.Errorf("count users: %w", err)
	}
	rows, err := s.store.ListUsers(ctx, postgres.ListUsersParams{
		Search:    search,
		RowLimit:  int32(in.Limit),
		RowOffset: int32(in.Offset),
	})
	if err != nil {
		return UserList{}, fmt.Errorf("list users: %w", err)
	}

	users := make([]User, 0, len(rows))
	for _, row := range rows {
		users = append(users, userFromRow(row))
	}
	return UserList{Users: users, Total: total, Limit: in.Limit, Offset: in.Offset}, nil
}

// SetRole changes a user's role. role must be a stored role name exactly.
func (s *Service) SetRole(ctx context.Context, userID uuid.UUID, role string) (User, error) {
	if _, ok := ParseRole(role); !ok {
		return User{}, &ValidationError{Fields: map[string]string{"role": "oneof=user admin"}}
	}
	row, err := s.store.UpdateUserRole(ctx, postgres.UpdateUserRoleParams{ID: pgUUID(userID), Role: role})
	if postgres.IsNotFound(err) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("set role: %w", err)
	}
	return userFromRow(row), nil
}

// BanUser bans the user and revokes all of their sessions. Admins cannot ban
// themselves.
func (s *Service) BanUser(ctx context.Context, actorID uuid.UUID, in BanUserInput) (User, error) {
	if err := s.validateInput(in); err != nil {
		return User{}, err
	}
	if in.UserID == actorID {
		return User{}, ErrSelfAction
	}

	var expires pgtype.Timestamptz
	if in.BanExpiresIn > 0 {
		expires = pgTime(s.now().Add(time.Duration(in.BanExpiresIn) * time.Second))
	}

	var banned postgres.User
	err := s.store.WithTx(ctx, func(q postgres.Querier) error {
		var err error
		banned, err = q.BanUser(ctx, postgres.BanUserParams{
			ID:         pgUUID(in.UserID),
			BanReason:  pgText(strings.TrimSpace(in.BanReason)),
			BanExpires: expires,
		})
		if postgres.IsNotFound(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("ban user: %w", err)
		}
		if _, err := q.DeleteUserSessions(ctx, banned.ID); err != nil {
			return fmt.Errorf("revoke banned user sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return userFromRow(banned), nil
}

// UnbanUser clears the ban fields.
func (s *Service) UnbanUser(ctx context.Context, userID uuid.UUID) (User, error) {
	row, err := s.store.UnbanUser(ctx, pgUUID(userID))
	if postgres.IsNotFound(err) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("unban user: %w", err)
	}
	return userFromRow(row), nil
}

// ListUserSessions returns the user's unexpired sessions.
func (s *Service) ListUserSessions(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	if _, err := s.store.GetUserByID(ctx, pgUUID(userID)); err != nil {
		if postgres.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return s.ListSessions(ctx, userID)
}

// RevokeUserSessions deletes every session of the user and returns how many
// were removed.
func (s *Service) RevokeUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.store.DeleteUserSessions(ctx, pgUUID(userID))
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return n, nil
}

// RemoveUser deletes the user; sessions and accounts cascade.
func (s *Service) RemoveUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if userID == actorID {
		return ErrSelfAction
	}
	n, err := s.store.DeleteUser(ctx, pgUUID(userID))
	if err != nil {
		return fmt.Errorf("remove user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EnsureAdmin creates an admin with a password credential unless a user with
// the email already exists. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if name == "" {
		name = "Admin"
	}
	_, err := s.CreateUser(ctx, CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     string(RoleAdmin),
	})
	if errors.Is(err, ErrUserExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
