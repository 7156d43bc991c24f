package failure

import (
	"errors"
	"net/http"
)

// Failure is an error that knows its HTTP status. Anything else reaching the
// transport layer is treated as an internal error.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

//nolint:gochecknoglobals
var ForbiddenError = &Failure{Code: http.StatusForbidden, Message: "You don't have the required permissions"}

func (e *Failure) Error() string {
	return e.Message
}

func newFailure(code int, msg string) error {
	return &Failure{Code: code, Message: msg}
}

// BadRequest turns a validation error into a 400. A nil error stays nil.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}

	return newFailure(http.StatusBadRequest, err.Error())
}

func BadRequestFromString(msg string) error {
	return newFailure(http.StatusBadRequest, msg)
}

// InvalidState reports a request that is well-formed but breaks a domain rule,
// such as booking a room under maintenance or cancelling twice.
func InvalidState(msg string) error {
	return newFailure(http.StatusBadRequest, msg)
}

func Unauthorized(msg string) error {
	return newFailure(http.StatusUnauthorized, msg)
}

func Forbidden(msg string) error {
	return newFailure(http.StatusForbidden, msg)
}

func NotFound(msg string) error {
	return newFailure(http.StatusNotFound, msg)
}

// Conflict reports an overlapping booking.
func Conflict(msg string) error {
	return newFailure(http.StatusConflict, msg)
}

// InternalError exposes err's message with a 500. Use it only for messages
// that are safe to show to callers.
func InternalError(err error) error {
	if err == nil {
		return nil
	}

	return newFailure(http.StatusInternalServerError, err.Error())
}

// GetCode returns the status carried by the first Failure in err's chain.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// Is reports whether err carries a Failure with the given code.
func Is(err error, code int) bool {
	var fail *Failure

	return errors.As(err, &fail) && fail.Code == code
}
