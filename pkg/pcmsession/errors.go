package pcmsession

import "fmt"

// SessionError carries the error taxonomy kind alongside the session
// boundary's human-readable message.
type SessionError struct {
	Kind    string
	Message string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

var errInitFailed = newError("Error", "device initialize failed")

// newError builds a SessionError of the given taxonomy kind with a
// formatted message: one kind, one message, per failure.
func newError(kind, format string, args ...any) *SessionError {
	return &SessionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
