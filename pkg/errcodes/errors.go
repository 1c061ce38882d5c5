package errcodes

import (
	"fmt"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
)

// Kind classifies an error by how callers are expected to react to it.
type Kind string

const (
	// KindFetch marks a transport failure talking to a metadata catalog.
	// Recoverable: providers degrade to an empty result set.
	KindFetch Kind = "Fetch"
	// KindFormat marks a failure reading or writing an ebook container.
	KindFormat Kind = "Format"
	// KindValidation marks an invalid value rejected at construction.
	KindValidation Kind = "Validation"
	// KindCollisionExhausted marks an output directory with no free
	// filename left. Fatal to the current operation.
	KindCollisionExhausted Kind = "CollisionExhausted"
	// KindNotFound marks a missing catalog record.
	KindNotFound Kind = "NotFound"
	// KindDuplicate marks a catalog insert that matched an existing row.
	KindDuplicate Kind = "Duplicate"
)

type Error struct {
	Kind    Kind
	Message string
	Code    string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.Kind = err.Kind
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Kind == err.Kind &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// IsKind reports whether any error in err's chain is an Error of the given
// kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{
		Kind:    kind,
		Message: msg,
		Code:    strcase.ToSnake(string(kind)),
	}
}

// Fetch returns a transport error for a failed catalog request.
func Fetch(msg string) error {
	return newError(KindFetch, msg)
}

func Fetchf(format string, args ...interface{}) error {
	return newError(KindFetch, fmt.Sprintf(format, args...))
}

// Format returns an error for an unreadable or unwritable ebook file.
func Format(msg string) error {
	return newError(KindFormat, msg)
}

func Formatf(format string, args ...interface{}) error {
	return newError(KindFormat, fmt.Sprintf(format, args...))
}

func Validation(msg string) error {
	return newError(KindValidation, msg)
}

func Validationf(format string, args ...interface{}) error {
	return newError(KindValidation, fmt.Sprintf(format, args...))
}

func CollisionExhausted(msg string) error {
	return newError(KindCollisionExhausted, msg)
}

// NotFound returns an error with a message indicating the given resource.
func NotFound(resource string) error {
	return newError(KindNotFound, resource+" not found")
}

func Duplicate(resource string) error {
	return newError(KindDuplicate, resource+" already exists")
}
