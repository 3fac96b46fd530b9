package transfer

import (
	"errors"
	"fmt"
)

// Kind classifies a transfer error for the caller.
type Kind string

// Error kinds returned to callers. All but KindInternal are correctable by
// the client.
const (
	KindUnauthenticated  Kind = "unauthenticated"
	KindNotFound         Kind = "not-found"
	KindPermissionDenied Kind = "permission-denied"
	KindInvalidArgument  Kind = "invalid-argument"
	KindInternal         Kind = "internal"
)

// Error is a transfer failure with a kind the API layer can map to a
// response. Msg is safe to show to the caller; Err is not.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}
