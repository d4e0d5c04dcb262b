package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/controllers"
	"shopcart-service/events"
	"shopcart-service/metrics"
	"shopcart-service/middleware"
	"shopcart-service/models"
	"shopcart-service/repository/memstore"
	"shopcart-service/routes"
	"shopcart-service/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	logger := zap.NewNop()
	reg := metrics.NewRegistry()

	products := memstore.NewProducts(
		models.Product{ID: "p1", Name: "Wireless Headphones", Price: decimal.RequireFromString("6499")},
		models.Product{ID: "p2", Name: "Desk Lamp", Price: decimal.RequireFromString("3299")},
	)
	carts := memstore.NewCarts()
	tokens := services.NewTokenService("test-secret", 7*24*time.Hour, memstore.NewSessions())
	cartSvc := services.NewCartService(carts, products, reg, logger)
	authSvc := services.NewAuthService(memstore.NewIdentities(), cartSvc, tokens, reg, logger)
	checkoutSvc := services.NewCheckoutService(carts, products, events.NopPublisher{}, reg, logger)
	catalogSvc := services.NewCatalogService(products, nil, "", logger)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.MetricsMiddleware(reg), apperror.ErrorMiddleware(logger))
	routes.Setup(r, routes.Handlers{
		Auth:         controllers.NewAuthController(authSvc, controllers.CookieConfig{MaxAge: time.Hour}, logger),
		Cart:         controllers.NewCartController(cartSvc, logger),
		Checkout:     controllers.NewCheckoutController(checkoutSvc, logger),
		Products:     controllers.NewProductController(catalogSvc, logger),
		RequireAuth:  middleware.AuthMiddleware(authSvc, logger),
		OptionalAuth: middleware.OptionalAuth(authSvc),
		Metrics:      reg,
		Service:      "shopcart-service",
	})
	return r
}

// client replays cookies the way a browser would.
type client struct {
	t       *testing.T
	r       http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, r http.Handler) *client {
	return &client{t: t, r: r, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestHealth(t *testing.T) {
	code, body := newClient(t, setupRouter(t)).do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "shopcart-service", body["service"])
}

func TestGuestCartFollowsSignup(t *testing.T) {
	c := newClient(t, setupRouter(t))

	code, _ := c.do(http.MethodPost, "/auth/guest", nil)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, c.cookies, middleware.GuestCookie)

	code, _ = c.do(http.MethodPost, "/cart", map[string]interface{}{"productId": "p1", "qty": 2})
	require.Equal(t, http.StatusCreated, code)

	code, body := c.do(http.MethodPost, "/auth/signup", map[string]string{"email": "jane@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 1, body["merged"])
	assert.NotContains(t, c.cookies, middleware.GuestCookie)

	code, body = c.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, 12998, body["total"])

	code, body = c.do(http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, code)
	me := body["data"].(map[string]interface{})
	assert.Equal(t, false, me["isGuest"])
	assert.Equal(t, "jane", me["name"])
}

func TestLogoutRevokesSession(t *testing.T) {
	c := newClient(t, setupRouter(t))
	code, _ := c.do(http.MethodPost, "/signup", map[string]string{"email": "sam@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, code)
	session := c.cookies[middleware.SessionCookie]
	require.NotNil(t, session)

	code, _ = c.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, c.cookies, middleware.SessionCookie)

	// Replaying the old credential must fail.
	c.cookies[middleware.SessionCookie] = session
	code, body := c.do(http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])
}

func TestAPIPrefixAndCheckoutAlias(t *testing.T) {
	c := newClient(t, setupRouter(t))
	code, _ := c.do(http.MethodPost, "/api/auth/guest", nil)
	require.Equal(t, http.StatusOK, code)

	code, body := c.do(http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])

	code, _ = c.do(http.MethodPost, "/api/cart", map[string]interface{}{"productId": "p2", "qty": 1})
	require.Equal(t, http.StatusCreated, code)

	code, body = c.do(http.MethodPost, "/api/cart/checkout", map[string]string{"name": "Guest Buyer", "email": "buyer@example.com"})
	require.Equal(t, http.StatusOK, code)
	receipt := body["data"].(map[string]interface{})
	assert.EqualValues(t, 3299, receipt["total"])
	assert.Len(t, receipt["items"], 1)

	code, body = c.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["count"])
}

func TestCartRequiresSession(t *testing.T) {
	code, body := newClient(t, setupRouter(t)).do(http.MethodGet, "/cart", nil)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authorized, no token", body["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupRouter(t)
	newClient(t, r).do(http.MethodGet, "/health", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `shopcart_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
