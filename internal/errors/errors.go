package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code int

const (
	CodeUnknown Code = iota
	CodeInvalidArgument
	CodeNotFound
	CodeAlreadyExists
	CodePermissionDenied
	CodeUnauthenticated
	CodeUnavailable
	CodeInternal
)

var code2name = map[Code]string{
	CodeUnknown:          "Unknown",
	CodeInvalidArgument:  "InvalidArgument",
	CodeNotFound:         "NotFound",
	CodeAlreadyExists:    "AlreadyExists",
	CodePermissionDenied: "PermissionDenied",
	CodeUnauthenticated:  "Unauthenticated",
	CodeUnavailable:      "Unavailable",
	CodeInternal:         "Internal",
}

func (c Code) String() string {
	if n, ok := code2name[c]; ok {
		return n
	}

	return code2name[CodeUnknown]
}

// http2code classifies remote API status codes into the local taxonomy.
var http2code = map[int]Code{
	http.StatusBadRequest:          CodeInvalidArgument,
	http.StatusUnprocessableEntity: CodeInvalidArgument,
	http.StatusUnauthorized:        CodeUnauthenticated,
	http.StatusForbidden:           CodePermissionDenied,
	http.StatusNotFound:            CodeNotFound,
	http.StatusConflict:            CodeAlreadyExists,
	http.StatusBadGateway:          CodeUnavailable,
	http.StatusServiceUnavailable:  CodeUnavailable,
	http.StatusGatewayTimeout:      CodeUnavailable,
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: code.String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

// FromStatusCode builds an Error out of a non-2xx remote API response.
func FromStatusCode(status int, opts ...Option) *Error {
	c, ok := http2code[status]
	if !ok {
		c = CodeInternal
	}

	e := New(c, opts...)
	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}
