package compliance

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by who caused it and which component failed.
type Kind int

// Failure kinds. Validation and NotFound are client-caused; the rest are
// downstream or unanticipated failures.
const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindDispatch
	KindStorage
	KindPersistence
	KindFetch
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDispatch:
		return "dispatch"
	case KindStorage:
		return "storage"
	case KindPersistence:
		return "persistence"
	case KindFetch:
		return "fetch"
	default:
		return "internal"
	}
}

// Status maps the kind onto an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ClientFault reports whether the caller can fix the failure by changing the request.
func (k Kind) ClientFault() bool {
	return k.Status() < http.StatusInternalServerError
}

// Error is the typed failure returned across component boundaries.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "checklist.add".
	Op string
	// Message is the text shown to API callers. Empty means use Err's text.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Public returns the text safe to place in a response body.
func (e *Error) Public() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

// Validation builds a client-input failure with a fixed message.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NotFound builds a missing-resource failure.
func NotFound(op, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: msg}
}

// Wrap tags err with a kind and operation. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WrapMessage is Wrap with a fixed caller-facing message.
func WrapMessage(kind Kind, op, msg string, err error) error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// KindOf extracts the kind of err; untyped errors are internal.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// ErrNotFound is returned by stores when a requested object does not exist.
var ErrNotFound = errors.New("not found")
