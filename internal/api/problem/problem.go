// Package problem writes RFC 7807 application/problem+json responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const (
	TypeValidation    = "urn:problem:validation-error"
	TypeUnauthorized  = "urn:problem:unauthorized"
	TypeForbidden     = "urn:problem:forbidden"
	TypeNotFound      = "urn:problem:not-found"
	TypeRateLimited   = "urn:problem:rate-limited"
	TypeUnprocessable = "urn:problem:unprocessable-entity"
	TypeInvalidOrigin = "urn:problem:invalid-origin"
	TypeServerError   = "urn:problem:server-error"
)

// fallbackBody is sent if the problem itself cannot be encoded.
const fallbackBody = `{"type":"about:blank","title":"Internal Server Error","status":500}`

// ProblemDetails is the RFC 7807 body.
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Option adjusts a problem before it is written.
type Option func(*ProblemDetails)

// WithDetail sets a client-facing detail, overriding the error text.
func WithDetail(detail string) Option {
	return func(p *ProblemDetails) { p.Detail = detail }
}

// WithErrors attaches per-field validation failures.
func WithErrors(fields map[string]string) Option {
	return func(p *ProblemDetails) { p.Errors = fields }
}

// Write renders a problem for status and logs err on the request logger
// (error for 5xx, warn for 4xx). err text becomes the detail only in
// development and test.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	p := ProblemDetails{Type: typ, Title: title, Status: status, Instance: r.URL.Path}
	for _, opt := range opts {
		opt(&p)
	}
	if p.Detail == "" && err != nil {
		p.Detail = http.StatusText(status)
		if env == "development" || env == "test" {
			p.Detail = err.Error()
		}
	}

	if err != nil {
		logFailure(r, status, typ, title, err)
	}
	encode(w, p)
}

func logFailure(r *http.Request, status int, typ, title string, err error) {
	logger := zerolog.Ctx(r.Context())
	var ev *zerolog.Event
	switch {
	case status >= http.StatusInternalServerError:
		ev = logger.Error()
	case status >= http.StatusBadRequest:
		ev = logger.Warn()
	default:
		return
	}
	ev.Err(err).
		Int("status", status).
		Str("type", typ).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg(title)
}

func encode(w http.ResponseWriter, p ProblemDetails) {
	w.Header().Set("Content-Type", contentType)
	body, err := json.Marshal(p)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallbackBody))
		return
	}
	w.WriteHeader(p.Status)
	_, _ = w.Write(body)
}
