package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/controllers"
	"shopcart-service/middleware"
	"shopcart-service/models"
	"shopcart-service/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock AuthService ---

type mockAuthService struct {
	guestFn  func(ctx context.Context) (*services.AuthResult, error)
	signupFn func(ctx context.Context, req models.SignupRequest, guestToken string) (*services.AuthResult, error)
	loginFn  func(ctx context.Context, req models.LoginRequest, guestToken string) (*services.AuthResult, error)
	logoutFn func(ctx context.Context, claims *services.SessionClaims) error
	meFn     func(ctx context.Context, identityID string) (*models.IdentitySummary, error)
}

func (m *mockAuthService) ContinueAsGuest(ctx context.Context) (*services.AuthResult, error) {
	return m.guestFn(ctx)
}
func (m *mockAuthService) Signup(ctx context.Context, req models.SignupRequest, guestToken string) (*services.AuthResult, error) {
	return m.signupFn(ctx, req, guestToken)
}
func (m *mockAuthService) Login(ctx context.Context, req models.LoginRequest, guestToken string) (*services.AuthResult, error) {
	return m.loginFn(ctx, req, guestToken)
}
func (m *mockAuthService) Logout(ctx context.Context, claims *services.SessionClaims) error {
	return m.logoutFn(ctx, claims)
}
func (m *mockAuthService) Me(ctx context.Context, identityID string) (*models.IdentitySummary, error) {
	return m.meFn(ctx, identityID)
}
func (m *mockAuthService) Authenticate(context.Context, string) (*services.Principal, error) {
	return nil, apperror.ErrNotAuthorized
}

// --- Helpers ---

var testCookies = controllers.CookieConfig{Secure: true, MaxAge: 24 * time.Hour}

func withPrincipal(p *services.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			c.Set(middleware.PrincipalContextKey, p)
		}
		c.Next()
	}
}

func setupAuthRouter(svc services.AuthService, p *services.Principal) *gin.Engine {
	r := gin.New()
	ac := controllers.NewAuthController(svc, testCookies, zap.NewNop())
	r.Use(withPrincipal(p))
	r.POST("/auth/signup", ac.Signup)
	r.POST("/auth/login", ac.Login)
	r.POST("/auth/guest", ac.ContinueAsGuest)
	r.POST("/auth/logout", ac.Logout)
	r.GET("/auth/me", ac.Me)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func accountResult() *services.AuthResult {
	return &services.AuthResult{
		Identity: models.IdentitySummary{Email: "jane@example.com", Name: "Jane"},
		Token:    "session-token",
		Merged:   2,
	}
}

// --- Tests ---

func TestAuthController_Signup_SetsSessionAndClearsGuestCookie(t *testing.T) {
	var gotToken string
	svc := &mockAuthService{
		signupFn: func(_ context.Context, req models.SignupRequest, guestToken string) (*services.AuthResult, error) {
			gotToken = guestToken
			assert.Equal(t, "jane@example.com", req.Email)
			return accountResult(), nil
		},
	}
	r := setupAuthRouter(svc, nil)

	w := doJSON(r, http.MethodPost, "/auth/signup",
		map[string]string{"email": "jane@example.com", "password": "secret1", "name": "Jane"},
		&http.Cookie{Name: middleware.GuestCookie, Value: "guest_abc"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "guest_abc", gotToken)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Account created successfully", body["message"])
	assert.EqualValues(t, 2, body["merged"])

	session := cookieNamed(w, middleware.SessionCookie)
	require.NotNil(t, session)
	assert.Equal(t, "session-token", session.Value)
	assert.True(t, session.HttpOnly)
	assert.True(t, session.Secure)
	assert.Equal(t, http.SameSiteStrictMode, session.SameSite)
	assert.Equal(t, 24*3600, session.MaxAge)

	guest := cookieNamed(w, middleware.GuestCookie)
	require.NotNil(t, guest)
	assert.Equal(t, -1, guest.MaxAge)
}

func TestAuthController_Signup_ValidationError(t *testing.T) {
	r := setupAuthRouter(&mockAuthService{}, nil)

	w := doJSON(r, http.MethodPost, "/auth/signup", map[string]string{"email": "not-an-email", "password": "123"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, string(apperror.KindValidation), body["error"])
}

func TestAuthController_Signup_EmailTaken(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(context.Context, models.SignupRequest, string) (*services.AuthResult, error) {
			return nil, apperror.ErrEmailTaken
		},
	}
	r := setupAuthRouter(svc, nil)

	w := doJSON(r, http.MethodPost, "/auth/signup", map[string]string{"email": "jane@example.com", "password": "secret1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists with this email", decode(t, w)["message"])
	assert.Nil(t, cookieNamed(w, middleware.SessionCookie))
}

func TestAuthController_Login_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(context.Context, models.LoginRequest, string) (*services.AuthResult, error) {
			return nil, apperror.ErrInvalidCredentials
		},
	}
	r := setupAuthRouter(svc, nil)

	w := doJSON(r, http.MethodPost, "/auth/login", map[string]string{"email": "jane@example.com", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w)["message"])
}

func TestAuthController_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, _ models.LoginRequest, guestToken string) (*services.AuthResult, error) {
			assert.Empty(t, guestToken)
			return accountResult(), nil
		},
	}
	r := setupAuthRouter(svc, nil)

	w := doJSON(r, http.MethodPost, "/auth/login", map[string]string{"email": "jane@example.com", "password": "secret1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged in successfully", decode(t, w)["message"])
	require.NotNil(t, cookieNamed(w, middleware.SessionCookie))
}

func TestAuthController_ContinueAsGuest_SetsBothCookies(t *testing.T) {
	guestID := "guest_123"
	expires := time.Now().Add(models.GuestCartTTL)
	svc := &mockAuthService{
		guestFn: func(context.Context) (*services.AuthResult, error) {
			return &services.AuthResult{
				Identity:   models.IdentitySummary{IsGuest: true, GuestID: guestID, ExpiresAt: &expires},
				Token:      "guest-session",
				GuestToken: guestID,
			}, nil
		},
	}
	r := setupAuthRouter(svc, nil)

	w := doJSON(r, http.MethodPost, "/auth/guest", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Continuing as guest", body["message"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["isGuest"])
	assert.Equal(t, guestID, data["guestId"])

	session := cookieNamed(w, middleware.SessionCookie)
	require.NotNil(t, session)
	assert.Equal(t, 24*3600, session.MaxAge)
	guest := cookieNamed(w, middleware.GuestCookie)
	require.NotNil(t, guest)
	assert.Equal(t, guestID, guest.Value)
	assert.Equal(t, int(models.GuestCartTTL.Seconds()), guest.MaxAge)
}

func TestAuthController_Logout_WithoutSession(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(context.Context, *services.SessionClaims) error {
			t.Fatal("logout must not be called without a session")
			return nil
		},
	}
	r := setupAuthRouter(svc, nil)

	w := doJSON(r, http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -1, cookieNamed(w, middleware.SessionCookie).MaxAge)
	assert.Equal(t, -1, cookieNamed(w, middleware.GuestCookie).MaxAge)
}

func TestAuthController_Logout_RevokesSession(t *testing.T) {
	claims := &services.SessionClaims{}
	revoked := false
	svc := &mockAuthService{
		logoutFn: func(_ context.Context, got *services.SessionClaims) error {
			revoked = got == claims
			return nil
		},
	}
	r := setupAuthRouter(svc, &services.Principal{IdentityID: "id-1", Claims: claims})

	w := doJSON(r, http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, revoked)
}

func TestAuthController_Me(t *testing.T) {
	svc := &mockAuthService{
		meFn: func(_ context.Context, identityID string) (*models.IdentitySummary, error) {
			assert.Equal(t, "id-1", identityID)
			return &models.IdentitySummary{Name: "Jane"}, nil
		},
	}
	r := setupAuthRouter(svc, &services.Principal{IdentityID: "id-1"})

	w := doJSON(r, http.MethodGet, "/auth/me", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Jane", data["name"])
}

func TestAuthController_Me_Unauthenticated(t *testing.T) {
	r := setupAuthRouter(&mockAuthService{}, nil)

	w := doJSON(r, http.MethodGet, "/auth/me", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
