package tools

import (
	"errors"
	"fmt"
)

// Kind classifies a tool failure.
type Kind string

const (
	// KindConfiguration is a missing credential or unknown tool. Fatal.
	KindConfiguration Kind = "configuration"
	// KindTimeout is an upstream call that ran past its deadline.
	KindTimeout Kind = "timeout"
	// KindUpstream is a non-2xx response or transport failure.
	KindUpstream Kind = "upstream"
	// KindInput is an invalid argument from the model.
	KindInput Kind = "input"
)

// Error is the failure type of every tool.
type Error struct {
	Kind    Kind
	Tool    string
	Message string
	Status  int    // HTTP status, when the upstream answered
	Body    string // upstream error body
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Tool != "" {
		msg = e.Tool + ": " + msg
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil && e.Body == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, and by tool when the sentinel names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" {
		return false
	}
	return t.Kind == e.Kind && (t.Tool == "" || t.Tool == e.Tool)
}

// Sentinels for errors.Is.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrSearchTimeout = &Error{Kind: KindTimeout, Tool: SearchToolName}
	ErrSearchAPI     = &Error{Kind: KindUpstream, Tool: SearchToolName}
	ErrInput         = &Error{Kind: KindInput}
)

// IsFatal reports whether err must abort the caller instead of being fed
// back to the model.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
