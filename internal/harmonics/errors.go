package harmonics

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownConstituent  = errors.New("unknown constituent")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrDecompositionFailed = errors.New("decomposition failed")
	ErrMalformedModel      = errors.New("malformed model")
	ErrInvalidWindow       = errors.New("invalid prediction window")
)

// Error carries one of the sentinel kinds above plus detail. Cause is set
// when the failure originates in another error, e.g. an unknown constituent
// found while reconstructing a model.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapf(kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}
