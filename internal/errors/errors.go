package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/todo-web/internal/dto"
)

// Error codes
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// ErrorTemplate is the template rendered for error responses.
const ErrorTemplate = "error.html"

// AppError is an error shown to the user on an error page
type AppError struct {
	Code    string
	Message string
}

// Error implements the error interface
func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates a new AppError
func NewAppError(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// RespondWithError renders the error page and aborts the handler chain
func RespondWithError(c *gin.Context, statusCode int, err *AppError) {
	c.HTML(statusCode, ErrorTemplate, dto.ErrorPage{
		Status:  statusCode,
		Code:    err.Code,
		Message: err.Message,
	})
	c.Abort()
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAppError(ErrCodeUnauthorized, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Page not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAppError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAppError(ErrCodeInvalidInput, message))
}

// InternalError sends a 500 response. The cause is attached to the context
// for the request logger and never shown to the user.
func InternalError(c *gin.Context, cause error) {
	if cause != nil {
		_ = c.Error(cause)
	}
	RespondWithError(c, http.StatusInternalServerError, NewAppError(ErrCodeInternalError, "Internal server error"))
}
