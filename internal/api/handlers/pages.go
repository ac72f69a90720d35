package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tuansdf/react-start-template/internal/api/problem"
	"github.com/tuansdf/react-start-template/internal/auth"
	"github.com/tuansdf/react-start-template/web"
)

// Renderer renders a named page; implemented by *web.Templates.
type Renderer interface {
	Render(w http.ResponseWriter, status int, page string, data any) error
}

// PagesHandler renders the server-side HTML pages.
type PagesHandler struct {
	renderer Renderer
	env      string
}

// NewPagesHandler returns a handler rendering through renderer. env controls
// how much of a render error reaches the client.
func NewPagesHandler(renderer Renderer, env string) *PagesHandler {
	return &PagesHandler{renderer: renderer, env: env}
}

type homeData struct {
	Title         string
	User          *auth.User
	SignOutAction string
}

type signInData struct {
	Title        string
	Error        string
	CallbackURL  string
	SignInAction string
}

// signInErrors maps the error codes the auth form redirect carries.
var signInErrors = map[string]string{
	"invalid_credentials": "Invalid email or password.",
	"banned":              "This account has been suspended.",
	"invalid_request":     "Please enter a valid email and password.",
	"server_error":        "Something went wrong. Please try again.",
}

// Home is served behind the session gate, which stores the session in the
// request context.
func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := homeData{Title: "Home", SignOutAction: auth.BasePath + "/sign-out"}
	if session := auth.SessionFromContext(r.Context()); session != nil {
		data.User = &session.User
	}
	h.render(w, r, web.PageHome, data)
}

// SignIn renders the public sign-in form. callbackURL and error come from
// the query string; unknown error codes show the generic message.
func (h *PagesHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := signInData{
		Title:        "Sign in",
		CallbackURL:  q.Get("callbackURL"),
		SignInAction: auth.BasePath + "/sign-in/email",
	}
	if data.CallbackURL == "" {
		data.CallbackURL = "/"
	}
	if code := q.Get("error"); code != "" {
		msg, ok := signInErrors[code]
		if !ok {
			msg = signInErrors["server_error"]
		}
		data.Error = msg
	}
	h.render(w, r, web.PageSignIn, data)
}

func (h *PagesHandler) render(w http.ResponseWriter, r *http.Request, page string, data any) {
	if err := h.renderer.Render(w, http.StatusOK, page, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("page", page).Msg("render page")
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Internal server error", err, h.env)
	}
}
