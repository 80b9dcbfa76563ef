package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP mapping and for callers that branch on
// category rather than message.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPermissionDenied
	KindInvalidSex
	KindFeatureDisabled
	KindConflict
	KindValidation
	KindImmutableField
	KindInvalidTransition
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func PermissionDenied(format string, args ...interface{}) error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func InvalidSex(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidSex, Message: fmt.Sprintf(format, args...)}
}

func FeatureDisabled(format string, args ...interface{}) error {
	return &Error{Kind: KindFeatureDisabled, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ImmutableField(format string, args ...interface{}) error {
	return &Error{Kind: KindImmutableField, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err (KindUnknown for unclassified errors).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// HTTPStatus maps an error to the status code handlers return.
// Unclassified errors are server errors and must be logged by the caller.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return 404
	case KindPermissionDenied:
		return 403
	case KindConflict:
		return 409
	case KindInvalidSex, KindFeatureDisabled, KindValidation, KindImmutableField, KindInvalidTransition:
		return 400
	default:
		return 500
	}
}
