package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopcart-service/middleware"
	"shopcart-service/models"
)

// CookieConfig controls the session and correlation cookies.
// MaxAge is the session lifetime; the guest correlation cookie lives as
// long as the guest cart does.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

func (cc CookieConfig) set(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", cc.Secure, true)
}

func (cc CookieConfig) setSession(c *gin.Context, token string) {
	cc.set(c, middleware.SessionCookie, token, int(cc.MaxAge.Seconds()))
}

func (cc CookieConfig) setGuest(c *gin.Context, guestToken string) {
	cc.set(c, middleware.GuestCookie, guestToken, int(models.GuestCartTTL.Seconds()))
}

func (cc CookieConfig) clear(c *gin.Context, name string) {
	cc.set(c, name, "", -1)
}
