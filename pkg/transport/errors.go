package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/rsengine/pkg/api"
)

// HTTPStatus maps an error code to the corresponding HTTP status code.
// Unknown codes map to 500.
func HTTPStatus(code api.ErrorCode) int {
	switch code {
	case api.ErrorCodeBadRequest:
		return http.StatusBadRequest
	case api.ErrorCodeNotFound:
		return http.StatusNotFound
	case api.ErrorCodeUpstreamFailure:
		return http.StatusBadGateway
	case api.ErrorCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatusFromError maps an AppError to its HTTP status code.
func HTTPStatusFromError(err *api.AppError) int {
	return HTTPStatus(err.Code)
}

// WriteErrorResponse writes the JSON error envelope with the given status.
// Only the code and the user-safe message are serialized.
func WriteErrorResponse(w http.ResponseWriter, appErr *api.AppError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(appErr.Response())
}

// WriteAppError writes an AppError response, deriving the HTTP status code
// from the error code.
func WriteAppError(w http.ResponseWriter, appErr *api.AppError) {
	WriteErrorResponse(w, appErr, HTTPStatusFromError(appErr))
}

// ErrClientGone marks a render that stopped because the client could no
// longer be written to.
var ErrClientGone = errors.New("client gone")

// deliveredError marks an error that the renderer has already reported to
// the client in-band, or that cannot be reported because the client left.
type deliveredError struct {
	err error
}

func (e *deliveredError) Error() string { return e.err.Error() }
func (e *deliveredError) Unwrap() error { return e.err }

// Delivered wraps err to tell the transport that no further error output
// must be written for it. It returns nil for a nil err.
func Delivered(err error) error {
	if err == nil {
		return nil
	}
	return &deliveredError{err: err}
}

// IsDelivered reports whether err was wrapped with Delivered.
func IsDelivered(err error) bool {
	var d *deliveredError
	return errors.As(err, &d)
}
