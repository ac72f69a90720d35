package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_Render(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = tmpl.Render(rec, http.StatusOK, PageSignIn, map[string]any{
		"Title":        "Sign in",
		"Error":        `<script>alert("x")</script>`,
		"SignInAction": "/api/auth/sign-in/email",
		"CallbackURL":  "/",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `action="/api/auth/sign-in/email"`)
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}

func TestTemplates_UnknownPage(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.Error(t, tmpl.Render(rec, http.StatusOK, "missing", nil))
	assert.Empty(t, rec.Body.String())
}

func TestTemplates_ExecutionErrorWritesNothing(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	// Home reads .User.Name; a string has no such field.
	require.Error(t, tmpl.Render(rec, http.StatusOK, PageHome, map[string]any{"User": "not-a-user"}))
	assert.Empty(t, rec.Body.String())
}

func TestRobotsTxtHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	RobotsTxtHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /")
}
