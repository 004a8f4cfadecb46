package matrix

import (
	"errors"
	"fmt"
)

// Error is a structured error response from the homeserver. Use errors.As
// to inspect it:
//
//	var matrixErr *matrix.Error
//	if errors.As(err, &matrixErr) && matrixErr.Code == matrix.ErrCodeForbidden { ... }
type Error struct {
	Code       string `json:"errcode"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("matrix: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Matrix error codes the bridge acts on.
const (
	ErrCodeForbidden = "M_FORBIDDEN"
	ErrCodeUserInUse = "M_USER_IN_USE"
	ErrCodeExclusive = "M_EXCLUSIVE"
)

// IsError reports whether err is an *Error carrying code.
func IsError(err error, code string) bool {
	var matrixErr *Error
	if errors.As(err, &matrixErr) {
		return matrixErr.Code == code
	}
	return false
}
