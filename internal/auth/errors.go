package auth

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tuansdf/react-start-template/internal/api/problem"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBanned             = errors.New("user is banned")
	ErrPasswordNotSet     = errors.New("user has no password credential")
	ErrInvalidOrigin      = errors.New("invalid origin")
	ErrRateLimited        = errors.New("too many requests")
	ErrBadRequest         = errors.New("malformed request")
	ErrSelfAction         = errors.New("cannot perform this action on your own account")
)

// ValidationError lists per-field rule failures keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func newValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields[fe.Field()] = fe.Tag() + "=" + fe.Param()
		} else {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return &ValidationError{Fields: fields}
}

type errorMapping struct {
	status int
	typ    string
	title  string
}

var errorMappings = []struct {
	err error
	errorMapping
}{
	{ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid email or password"}},
	{ErrUnauthorized, errorMapping{http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized"}},
	{ErrBanned, errorMapping{http.StatusForbidden, problem.TypeForbidden, "User is banned"}},
	{ErrForbidden, errorMapping{http.StatusForbidden, problem.TypeForbidden, "Forbidden"}},
	{ErrInvalidOrigin, errorMapping{http.StatusForbidden, problem.TypeInvalidOrigin, "Invalid origin"}},
	{ErrUserExists, errorMapping{http.StatusUnprocessableEntity, problem.TypeUnprocessable, "User already exists"}},
	{ErrUserNotFound, errorMapping{http.StatusNotFound, problem.TypeNotFound, "User not found"}},
	{ErrSessionNotFound, errorMapping{http.StatusNotFound, problem.TypeNotFound, "Session not found"}},
	{ErrPasswordNotSet, errorMapping{http.StatusBadRequest, problem.TypeValidation, "Password credential not found"}},
	{ErrBadRequest, errorMapping{http.StatusBadRequest, problem.TypeValidation, "Invalid request"}},
	{ErrSelfAction, errorMapping{http.StatusBadRequest, problem.TypeValidation, "Cannot perform this action on yourself"}},
	{ErrRateLimited, errorMapping{http.StatusTooManyRequests, problem.TypeRateLimited, "Too many requests"}},
}

func mapError(err error) errorMapping {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.errorMapping
		}
	}
	return errorMapping{http.StatusInternalServerError, problem.TypeServerError, "Internal server error"}
}
