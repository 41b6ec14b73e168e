package asset

import (
	"errors"
	"strings"
)

// Kind classifies failures reported to the initiating view.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindCapture
	KindUpload
	KindWrite
	KindSubscription
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindCapture:
		return "CaptureError"
	case KindUpload:
		return "UploadError"
	case KindWrite:
		return "WriteError"
	case KindSubscription:
		return "SubscriptionError"
	case KindNotFound:
		return "NotFound"
	default:
		return "UnknownError"
	}
}

var (
	ErrCameraUnavailable   = errors.New("camera unavailable")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrRequired            = errors.New("is required")
	ErrInvalid             = errors.New("is invalid")
	ErrNotFound            = errors.New("asset not found")
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrForeignPhoto        = errors.New("does not belong to this asset")
)

// FieldError names one offending input field.
type FieldError struct {
	Field string `json:"field"`
	Err   error  `json:"-"`
}

func (f FieldError) Error() string {
	return f.Field + " " + f.Err.Error()
}

// Error is the typed failure returned by the capture, lifecycle and record
// set services.
type Error struct {
	Kind Kind
	// Op names the operation, e.g. "create record" or "upload photo".
	Op     string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Error())
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, "; "))
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Field returns the first offending field name, if any.
func (e *Error) Field() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}

// Validation builds a ValidationError for the given fields.
func Validation(fields ...FieldError) *Error {
	var cause error
	if len(fields) > 0 {
		cause = fields[0].Err
	}
	return &Error{Kind: KindValidation, Fields: fields, Err: cause}
}

// Wrap tags err with a kind and operation.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind of err, returning 0 for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
