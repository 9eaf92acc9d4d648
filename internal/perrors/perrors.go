package perrors

import (
	"errors"
	"net/http"
)

type ErrCode struct {
	Code   string `json:"code"`
	Status int    `json:"status"`
}

var (
	ErrCodeUnauthorized   = ErrCode{"unauthorized", http.StatusUnauthorized}
	ErrCodeInvalidRequest = ErrCode{"invalid_request", http.StatusBadRequest}
	ErrCodeNotFound       = ErrCode{"not_found", http.StatusNotFound}
	ErrCodeConflict       = ErrCode{"conflict", http.StatusConflict}
	ErrCodeUpload         = ErrCode{"invalid_upload", http.StatusBadRequest}
	ErrCodeInternalServer = ErrCode{"internal_server_error", http.StatusInternalServerError}
)

// Err is an error that knows its HTTP status and the message shown to users.
type Err struct {
	Message string   `json:"error"`
	Issues  []string `json:"issues"`
	Code    ErrCode  `json:"-"`
	Cause   error    `json:"-"`
}

func (e Err) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e Err) Unwrap() error {
	return e.Cause
}

func (e Err) HttpStatus() int {
	return e.Code.Status
}

func New(code ErrCode, msg string, cause error, issues ...string) error {
	if issues == nil {
		issues = []string{}
	}
	return Err{
		Message: msg,
		Issues:  issues,
		Code:    code,
		Cause:   cause,
	}
}

func NewErrUnauthorized(msg string) error {
	return New(ErrCodeUnauthorized, msg, nil)
}

func NewErrInvalidRequest(msg string, issues ...string) error {
	return New(ErrCodeInvalidRequest, msg, nil, issues...)
}

func NewErrNotFound(msg string) error {
	return New(ErrCodeNotFound, msg, nil)
}

func NewErrConflict(msg string) error {
	return New(ErrCodeConflict, msg, nil)
}

func NewErrUpload(msg string) error {
	return New(ErrCodeUpload, msg, nil)
}

func NewErrInternalServerError(msg string, cause error) error {
	return New(ErrCodeInternalServer, msg, cause)
}

// As extracts an Err from err, wrapping unknown errors as internal.
func As(err error, fallback string) Err {
	var perr Err
	if errors.As(err, &perr) {
		return perr
	}
	return New(ErrCodeInternalServer, fallback, err).(Err)
}
