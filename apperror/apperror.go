package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopcart-service/logger"
)

// Kind is the stable, machine-readable error category returned to clients.
type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUpstream     Kind = "upstream_error"
	KindInternal     Kind = "internal_error"
)

// Error represents an application error
type Error struct {
	Kind    Kind   `json:"error"`
	Code    int    `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind and message, so sentinel values
// can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New creates a new Error
func New(kind Kind, code int, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func Validation(message string) *Error {
	return New(KindValidation, http.StatusBadRequest, message, nil)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, http.StatusUnauthorized, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, http.StatusNotFound, message, nil)
}

// Conflict is a business-rule rejection. It answers 400 like the rest of the
// client-visible rule violations (empty cart, taken e-mail).
func Conflict(message string) *Error {
	return New(KindConflict, http.StatusBadRequest, message, nil)
}

func Upstream(message string, err error) *Error {
	return New(KindUpstream, http.StatusBadGateway, message, err)
}

func Internal(err error) *Error {
	return New(KindInternal, http.StatusInternalServerError, "Internal server error", err)
}

// Business rule errors
var (
	ErrEmptyCart          = Conflict("Cart is empty")
	ErrEmailTaken         = Conflict("User already exists with this email")
	ErrInvalidCredentials = Unauthorized("Invalid email or password")
	ErrNotAuthorized      = Unauthorized("Not authorized")
	ErrSessionExpired     = Unauthorized("Guest session expired")
	ErrCartItemNotFound   = NotFound("Cart item not found")
	ErrProductNotFound    = NotFound("Product not found")
	ErrUserNotFound       = NotFound("User not found")
)

// From converts any error into an *Error; unknown errors become internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Respond writes the stable error body. Wrapped causes are logged, never sent.
func Respond(c *gin.Context, log *zap.Logger, err error) {
	appErr := From(err)

	if log != nil {
		fields := []zap.Field{
			zap.String("kind", string(appErr.Kind)),
			zap.String("path", c.Request.URL.Path),
		}
		if rid := c.GetString(logger.RequestIDKey); rid != "" {
			fields = append(fields, zap.String(logger.RequestIDKey, rid))
		}
		if appErr.Err != nil {
			fields = append(fields, zap.Error(appErr.Err))
		}
		if appErr.Code >= http.StatusInternalServerError {
			log.Error(appErr.Message, fields...)
		} else {
			log.Debug(appErr.Message, fields...)
		}
	}

	c.AbortWithStatusJSON(appErr.Code, gin.H{
		"success": false,
		"error":   appErr.Kind,
		"message": appErr.Message,
	})
}

// ErrorMiddleware renders the last error attached with c.Error when the
// handler did not write a response itself.
func ErrorMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, log, c.Errors.Last().Err)
		}
	}
}
