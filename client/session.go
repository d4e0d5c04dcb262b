package client

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"shopcart-service/models"
)

// Session drives a shopper through the cart lifecycle. Before any identity
// exists items go to the LocalCart; once the shopper has a session they go
// to the server and the local cart is synced and cleared.
type Session struct {
	api    *API
	cart   *LocalCart
	logger *zap.Logger

	mu       sync.Mutex
	identity *models.IdentitySummary
}

func NewSession(api *API, cart *LocalCart, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{api: api, cart: cart, logger: logger}
}

// Identity returns the current server identity, or nil while anonymous.
func (s *Session) Identity() *models.IdentitySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) setIdentity(id *models.IdentitySummary) {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
}

func (s *Session) ContinueAsGuest(ctx context.Context) (*models.IdentitySummary, error) {
	id, err := s.api.ContinueAsGuest(ctx)
	if err != nil {
		return nil, err
	}
	s.setIdentity(id)
	return id, s.SyncCart(ctx)
}

func (s *Session) Signup(ctx context.Context, req models.SignupRequest) (*models.IdentitySummary, error) {
	id, err := s.api.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	s.setIdentity(id)
	return id, s.SyncCart(ctx)
}

func (s *Session) Login(ctx context.Context, req models.LoginRequest) (*models.IdentitySummary, error) {
	id, err := s.api.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	s.setIdentity(id)
	return id, s.SyncCart(ctx)
}

func (s *Session) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		return err
	}
	s.setIdentity(nil)
	return nil
}

// Add puts qty of productID in the local cart while anonymous and in the
// server cart otherwise.
func (s *Session) Add(ctx context.Context, productID string, qty int) error {
	if s.Identity() == nil {
		return s.cart.Add(productID, qty)
	}
	_, err := s.api.AddToCart(ctx, productID, qty)
	return err
}

// SyncCart posts the local cart to the server and clears it once the server
// has accepted it. A failed sync leaves the local cart intact.
func (s *Session) SyncCart(ctx context.Context) error {
	if s.Identity() == nil || s.cart.Empty() {
		return nil
	}
	res, err := s.api.MergeCart(ctx, s.cart.Lines())
	if err != nil {
		return fmt.Errorf("sync local cart: %w", err)
	}
	s.logger.Info("Local cart synced", zap.Int("merged", res.Merged), zap.Int("quantity", res.Count))
	return s.cart.Clear()
}

// Checkout requires a server identity; the local cart is synced first and
// cleared along with the server cart on success.
func (s *Session) Checkout(ctx context.Context, req models.CheckoutRequest) (*models.Receipt, error) {
	if s.Identity() == nil {
		if _, err := s.ContinueAsGuest(ctx); err != nil {
			return nil, err
		}
	} else if err := s.SyncCart(ctx); err != nil {
		return nil, err
	}

	receipt, err := s.api.Checkout(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.cart.Clear(); err != nil {
		s.logger.Warn("Failed to clear local cart after checkout", zap.Error(err))
	}
	return receipt, nil
}
