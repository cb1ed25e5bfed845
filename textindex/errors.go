package textindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/nonibytes/textindex/textindex/document"
	"github.com/nonibytes/textindex/textindex/field"
	"github.com/nonibytes/textindex/textindex/ops"
	"github.com/nonibytes/textindex/textindex/query"
	"github.com/nonibytes/textindex/textindex/storage"
)

type ErrorKind string

const (
	ErrIO           ErrorKind = "io"
	ErrStore        ErrorKind = "store"
	ErrIntegrity    ErrorKind = "integrity"
	ErrQueryParse   ErrorKind = "query_parse"
	ErrUnknownField ErrorKind = "unknown_field"
	ErrTypeMismatch ErrorKind = "type_mismatch"
	ErrNotFound     ErrorKind = "not_found"
	ErrFeature      ErrorKind = "feature_missing"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func UnknownFieldError(field string) *Error {
	return &Error{Kind: ErrUnknownField, Message: "unknown field", Field: field}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// classify wraps an error from the lower packages into an *Error whose
// kind reflects its cause. Errors that already carry a kind pass through.
func classify(msg string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	out := Wrap(ErrStore, msg, err)
	var fe *ops.FieldError
	var ie *ops.IntegrityError
	switch {
	case errors.As(err, &ie):
		out.Kind, out.Field = ErrIntegrity, ie.Field
	case errors.Is(err, ops.ErrIntegrity):
		out.Kind = ErrIntegrity
	case errors.Is(err, ops.ErrNotImplemented):
		out.Kind = ErrFeature
	case errors.Is(err, query.ErrParse):
		out.Kind = ErrQueryParse
	case errors.Is(err, document.ErrUnknownField):
		out.Kind = ErrUnknownField
	case errors.As(err, &fe):
		out.Kind, out.Field = ErrTypeMismatch, fe.Field
	case errors.Is(err, field.ErrType):
		out.Kind = ErrTypeMismatch
	case errors.Is(err, storage.ErrNotFound):
		out.Kind = ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		out.Kind = ErrIO
	}
	return out
}
