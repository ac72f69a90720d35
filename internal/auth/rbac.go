package auth

// Role is the value stored in users.role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts a role name exactly as stored; admin input is not
// normalized.
func ParseRole(name string) (Role, bool) {
	switch r := Role(name); r {
	case RoleUser, RoleAdmin:
		return r, true
	}
	return "", false
}

// roleOf maps a stored role column to a Role. Unknown or empty values are
// treated as plain users.
func roleOf(stored string) Role {
	if r, ok := ParseRole(stored); ok {
		return r
	}
	return RoleUser
}

// IsAdmin reports whether a stored role grants the admin endpoints.
func IsAdmin(stored string) bool {
	return roleOf(stored) == RoleAdmin
}
