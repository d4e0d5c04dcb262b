package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopcart-service/metrics"
	"shopcart-service/models"
	"shopcart-service/repository/memstore"
	"shopcart-service/services"
)

type recordedEvent struct {
	eventType string
	key       string
	payload   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, payload interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{eventType: eventType, key: key, payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type fixture struct {
	identities *memstore.Identities
	carts      *memstore.Carts
	products   *memstore.Products
	sessions   *memstore.Sessions
	publisher  *recordingPublisher
	metrics    *metrics.Registry

	tokens   services.TokenService
	cart     services.CartService
	auth     services.AuthService
	checkout services.CheckoutService
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		identities: memstore.NewIdentities(),
		carts:      memstore.NewCarts(),
		products: memstore.NewProducts(
			models.Product{ID: "p1", Name: "Wireless Headphones", Price: price("6499")},
			models.Product{ID: "p2", Name: "Desk Lamp", Price: price("3299.50")},
			models.Product{ID: "p3", Name: "Gaming Mouse", Price: price("4999")},
		),
		sessions:  memstore.NewSessions(),
		publisher: &recordingPublisher{},
		metrics:   metrics.NewRegistry(),
	}
	f.tokens = services.NewTokenService("test-secret", 7*24*time.Hour, f.sessions)
	f.cart = services.NewCartService(f.carts, f.products, f.metrics, logger)
	f.auth = services.NewAuthService(f.identities, f.cart, f.tokens, f.metrics, logger)
	f.checkout = services.NewCheckoutService(f.carts, f.products, f.publisher, f.metrics, logger)
	return f
}

// linesOf returns productID -> quantity for an identity.
func (f *fixture) linesOf(identityID string) map[string]int {
	out := map[string]int{}
	for _, l := range f.carts.Lines() {
		if l.IdentityID == identityID {
			out[l.ProductID] += l.Quantity
		}
	}
	return out
}

var errStorage = errors.New("storage unavailable")
