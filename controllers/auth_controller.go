package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/middleware"
	"shopcart-service/models"
	"shopcart-service/services"
)

// AuthController handles identity transitions over HTTP.
type AuthController struct {
	auth    services.AuthService
	cookies CookieConfig
	logger  *zap.Logger
}

func NewAuthController(auth services.AuthService, cookies CookieConfig, logger *zap.Logger) *AuthController {
	return &AuthController{auth: auth, cookies: cookies, logger: logger}
}

// Signup handles POST /auth/signup.
func (ac *AuthController) Signup(ctx *gin.Context) {
	var req models.SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperror.Respond(ctx, ac.logger, apperror.Validation(
			"Please provide a valid email, a password of at least 6 characters and a name of at least 2 characters"))
		return
	}

	res, err := ac.auth.Signup(ctx.Request.Context(), req, ac.guestToken(ctx))
	if err != nil {
		apperror.Respond(ctx, ac.logger, err)
		return
	}

	ac.cookies.setSession(ctx, res.Token)
	ac.cookies.clear(ctx, middleware.GuestCookie)
	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Account created successfully",
		"data":    res.Identity,
		"merged":  res.Merged,
	})
}

// Login handles POST /auth/login.
func (ac *AuthController) Login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperror.Respond(ctx, ac.logger, apperror.Validation("Please provide a valid email and password"))
		return
	}

	res, err := ac.auth.Login(ctx.Request.Context(), req, ac.guestToken(ctx))
	if err != nil {
		apperror.Respond(ctx, ac.logger, err)
		return
	}

	ac.cookies.setSession(ctx, res.Token)
	ac.cookies.clear(ctx, middleware.GuestCookie)
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged in successfully",
		"data":    res.Identity,
		"merged":  res.Merged,
	})
}

// ContinueAsGuest handles POST /auth/guest.
func (ac *AuthController) ContinueAsGuest(ctx *gin.Context) {
	res, err := ac.auth.ContinueAsGuest(ctx.Request.Context())
	if err != nil {
		apperror.Respond(ctx, ac.logger, err)
		return
	}

	ac.cookies.setSession(ctx, res.Token)
	ac.cookies.setGuest(ctx, res.GuestToken)
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Continuing as guest",
		"data":    res.Identity,
	})
}

// Logout handles POST /auth/logout. It succeeds even without a session.
func (ac *AuthController) Logout(ctx *gin.Context) {
	if principal, err := middleware.GetPrincipal(ctx); err == nil {
		if err := ac.auth.Logout(ctx.Request.Context(), principal.Claims); err != nil {
			// The cookies are cleared regardless; the token just stays valid
			// until it expires.
			ac.logger.Error("Failed to revoke session", zap.Error(err))
		}
	}

	ac.cookies.clear(ctx, middleware.SessionCookie)
	ac.cookies.clear(ctx, middleware.GuestCookie)
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Me handles GET /auth/me.
func (ac *AuthController) Me(ctx *gin.Context) {
	principal, err := middleware.GetPrincipal(ctx)
	if err != nil {
		apperror.Respond(ctx, ac.logger, apperror.ErrNotAuthorized)
		return
	}

	summary, err := ac.auth.Me(ctx.Request.Context(), principal.IdentityID)
	if err != nil {
		apperror.Respond(ctx, ac.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

func (ac *AuthController) guestToken(ctx *gin.Context) string {
	v, _ := ctx.Cookie(middleware.GuestCookie)
	return v
}
