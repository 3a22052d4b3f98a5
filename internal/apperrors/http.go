package apperrors

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the JSON error body returned by every endpoint.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

// statusFor maps the failure taxonomy onto HTTP status codes.
var statusFor = map[Kind]int{
	KindNotFound:     http.StatusNotFound,
	KindForbidden:    http.StatusForbidden,
	KindInvalidState: http.StatusUnprocessableEntity,
	KindConflict:     http.StatusConflict,
	KindValidation:   http.StatusBadRequest,
}

// Respond writes err as a JSON error response. Typed errors map to their
// taxonomy status; anything else becomes an opaque 500.
func Respond(c *gin.Context, err error) {
	var e *Error
	if errors.As(err, &e) {
		status, ok := statusFor[e.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, APIError{
			Code:    string(e.Kind),
			Message: e.Message,
			Rule:    e.Rule,
		})
		return
	}

	log.Printf("internal error: %v", err)
	c.JSON(http.StatusInternalServerError, APIError{
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
	})
}

// Unauthorized sends a 401 response.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	c.JSON(http.StatusUnauthorized, APIError{
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// BadRequest sends a 400 response for malformed input outside the taxonomy.
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "invalid request"
	}
	c.JSON(http.StatusBadRequest, APIError{
		Code:    string(KindValidation),
		Message: message,
	})
}
