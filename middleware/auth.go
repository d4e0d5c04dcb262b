package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/services"
)

const (
	// SessionCookie carries the session credential.
	SessionCookie = "token"
	// GuestCookie carries the guest correlation token.
	GuestCookie = "guestId"

	IdentityContextKey  = "identityID"
	GuestContextKey     = "isGuest"
	PrincipalContextKey = "principal"
)

// sessionToken reads the credential from the cookie, falling back to a
// bearer Authorization header for non-browser clients.
func sessionToken(c *gin.Context) string {
	if v, err := c.Cookie(SessionCookie); err == nil && v != "" {
		return v
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func setPrincipal(c *gin.Context, p *services.Principal) {
	c.Set(IdentityContextKey, p.IdentityID)
	c.Set(GuestContextKey, p.IsGuest)
	c.Set(PrincipalContextKey, p)
}

// AuthMiddleware rejects requests without a valid, unexpired session.
func AuthMiddleware(auth services.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			apperror.Respond(c, logger, apperror.Unauthorized("Not authorized, no token"))
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			apperror.Respond(c, logger, err)
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// OptionalAuth attaches the principal when a valid session is present and
// otherwise lets the request through anonymously.
func OptionalAuth(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := sessionToken(c); token != "" {
			if principal, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				setPrincipal(c, principal)
			}
		}
		c.Next()
	}
}

// GetPrincipal extracts the resolved caller from the Gin context.
func GetPrincipal(c *gin.Context) (*services.Principal, error) {
	if val, ok := c.Get(PrincipalContextKey); ok {
		if p, ok := val.(*services.Principal); ok && p != nil {
			return p, nil
		}
	}
	return nil, errors.New("principal not found in context")
}
