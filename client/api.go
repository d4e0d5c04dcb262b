// Package client is a Go client for the shopcart HTTP API together with the
// anonymous cart a shopper keeps before they have a server identity.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopcart-service/models"
	"shopcart-service/reconcile"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopcart: %d %s: %s", e.Status, e.Kind, e.Message)
}

// API talks to the REST surface. Its cookie jar carries the session and
// guest cookies between calls.
type API struct {
	baseURL string
	client  *http.Client
}

func NewAPI(baseURL string, timeout time.Duration) (*API, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &API{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// CartResponse is the body of GET /cart and POST /cart/merge.
type CartResponse struct {
	Items  []models.CartItem `json:"data"`
	Total  decimal.Decimal   `json:"total"`
	Count  int               `json:"count"`
	Merged int               `json:"merged"`
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *API) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return &APIError{Status: resp.StatusCode, Kind: env.Error, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (a *API) data(ctx context.Context, method, path string, in, out interface{}) error {
	var env envelope
	if err := a.do(ctx, method, path, in, &env); err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (a *API) ContinueAsGuest(ctx context.Context) (*models.IdentitySummary, error) {
	var id models.IdentitySummary
	if err := a.data(ctx, http.MethodPost, "/auth/guest", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (a *API) Signup(ctx context.Context, req models.SignupRequest) (*models.IdentitySummary, error) {
	var id models.IdentitySummary
	if err := a.data(ctx, http.MethodPost, "/auth/signup", req, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (a *API) Login(ctx context.Context, req models.LoginRequest) (*models.IdentitySummary, error) {
	var id models.IdentitySummary
	if err := a.data(ctx, http.MethodPost, "/auth/login", req, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (a *API) Me(ctx context.Context) (*models.IdentitySummary, error) {
	var id models.IdentitySummary
	if err := a.data(ctx, http.MethodGet, "/auth/me", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (a *API) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := a.data(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (a *API) Cart(ctx context.Context) (*CartResponse, error) {
	var cart CartResponse
	if err := a.do(ctx, http.MethodGet, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (a *API) AddToCart(ctx context.Context, productID string, qty int) (*models.CartItem, error) {
	var item models.CartItem
	req := models.AddToCartRequest{ProductID: productID, Qty: qty}
	if err := a.data(ctx, http.MethodPost, "/cart", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (a *API) RemoveFromCart(ctx context.Context, lineID string) error {
	return a.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(lineID), nil, nil)
}

// MergeCart posts a local cart to the server-side cart.
func (a *API) MergeCart(ctx context.Context, lines []reconcile.Line) (*CartResponse, error) {
	if lines == nil {
		lines = []reconcile.Line{}
	}
	var cart CartResponse
	if err := a.do(ctx, http.MethodPost, "/cart/merge", map[string]interface{}{"localCart": lines}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (a *API) Checkout(ctx context.Context, req models.CheckoutRequest) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := a.data(ctx, http.MethodPost, "/checkout", req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
