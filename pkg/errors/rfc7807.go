// Package errors carries the service error vocabulary and the RFC 7807
// problem-details shape used by the HTTP surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export the standard helpers so callers need a single errors import.
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// New returns a plain sentinel error.
func New(text string) error { return errors.New(text) }

// Problem is an RFC 7807 problem-details document. Status doubles as the
// HTTP response code.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	cause error
}

var _ error = (*Problem)(nil)

func (p *Problem) Error() string {
	if p.cause != nil {
		return fmt.Sprintf("%s: %s (%v)", p.Title, p.Detail, p.cause)
	}
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

func (p *Problem) Unwrap() error { return p.cause }

// Wrap returns a copy of the problem carrying err as its cause. The cause
// is kept out of the JSON body.
func (p *Problem) Wrap(err error) *Problem {
	q := *p
	q.cause = err
	return &q
}

// Explain returns a copy of the problem with a formatted detail string.
func (p *Problem) Explain(format string, args ...any) *Problem {
	q := *p
	q.Detail = fmt.Sprintf(format, args...)
	return &q
}

func status(code int, slug string) *Problem {
	return &Problem{
		Type:   "https://veripay.dev/problems/" + slug,
		Title:  http.StatusText(code),
		Status: code,
	}
}

// Common problem templates. Handlers derive responses from these with
// Explain and Wrap rather than building ad hoc bodies.
var (
	Invalid        = status(http.StatusBadRequest, "invalid-request")
	NotFound       = status(http.StatusNotFound, "not-found")
	Conflict       = status(http.StatusConflict, "conflict")
	Internal       = status(http.StatusInternalServerError, "internal")
	NotImplemented = status(http.StatusNotImplemented, "not-implemented")
)
