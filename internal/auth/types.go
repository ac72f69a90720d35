package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tuansdf/react-start-template/internal/storage/postgres"
)

// User is the public view of a users row.
type User struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	Image         *string    `json:"image"`
	Role          string     `json:"role"`
	Banned        bool       `json:"banned"`
	BanReason     *string    `json:"banReason"`
	BanExpires    *time.Time `json:"banExpires"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Session is the public view of a sessions row. The token hash is never
// exposed.
type Session struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"userId"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	IPAddress      string     `json:"ipAddress,omitempty"`
	UserAgent      string     `json:"userAgent,omitempty"`
	ImpersonatedBy *uuid.UUID `json:"impersonatedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// SessionResult is a resolved session. Cookies holds cookies the caller
// should set on its response; it is empty when the cookie cache answered.
type SessionResult struct {
	Session Session        `json:"session"`
	User    User           `json:"user"`
	Cookies []*http.Cookie `json:"-"`
}

// RequestMeta is recorded on sessions created for a request.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

func userFromRow(row postgres.User) User {
	return User{
		ID:            uuid.UUID(row.ID.Bytes),
		Name:          row.Name,
		Email:         row.Email,
		EmailVerified: row.EmailVerified,
		Image:         textPtr(row.Image),
		Role:          row.Role,
		Banned:        row.Banned,
		BanReason:     textPtr(row.BanReason),
		BanExpires:    timePtr(row.BanExpires),
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

func sessionFromRow(row postgres.Session) Session {
	s := Session{
		ID:        uuid.UUID(row.ID.Bytes),
		UserID:    uuid.UUID(row.UserID.Bytes),
		ExpiresAt: row.ExpiresAt.Time,
		IPAddress: row.IpAddress.String,
		UserAgent: row.UserAgent.String,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	if row.ImpersonatedBy.Valid {
		id := uuid.UUID(row.ImpersonatedBy.Bytes)
		s.ImpersonatedBy = &id
	}
	return s
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	v := t.String
	return &v
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
