package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/events"
	"shopcart-service/metrics"
	"shopcart-service/models"
	"shopcart-service/repository"
)

// CheckoutService converts a cart into a receipt.
type CheckoutService interface {
	Checkout(ctx context.Context, identityID string, isGuest bool, req models.CheckoutRequest) (*models.Receipt, error)
}

type checkoutServiceImpl struct {
	carts     repository.CartRepository
	products  repository.ProductRepository
	publisher events.Publisher
	metrics   *metrics.Registry
	logger    *zap.Logger
	now       func() time.Time
}

func NewCheckoutService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	publisher events.Publisher,
	m *metrics.Registry,
	logger *zap.Logger,
) CheckoutService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &checkoutServiceImpl{
		carts:     carts,
		products:  products,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Checkout prices the cart at current catalog prices, then locks the
// identity's lines and deletes exactly the lines it priced in one
// transaction. Prices are read before the transaction begins so the
// transaction never waits on a second pooled connection. A line for a
// product that was not priced (added after the price read) is left in the
// cart. The receipt is only returned once the transaction has committed.
func (s *checkoutServiceImpl) Checkout(ctx context.Context, identityID string, isGuest bool, req models.CheckoutRequest) (*models.Receipt, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if len(name) < 2 {
		return nil, apperror.Validation("Name must be at least 2 characters")
	}
	if email == "" {
		return nil, apperror.Validation("Please provide a valid email")
	}

	receipt, err := s.checkout(ctx, identityID, name, email)
	if err != nil {
		s.observe(err)
		if errors.Is(err, apperror.ErrEmptyCart) {
			return nil, apperror.ErrEmptyCart
		}
		return nil, apperror.Internal(err)
	}

	s.observe(nil)
	if s.metrics != nil {
		total, _ := receipt.Total.Float64()
		s.metrics.CheckoutTotal.Observe(total)
	}
	s.logger.Info("Checkout completed",
		zap.String("identity_id", identityID),
		zap.String("receipt_id", receipt.ReceiptID),
		zap.Int("items", len(receipt.Items)),
		zap.String("total", receipt.Total.StringFixed(2)))

	s.publish(ctx, identityID, isGuest, *receipt)
	return receipt, nil
}

func (s *checkoutServiceImpl) checkout(ctx context.Context, identityID, name, email string) (*models.Receipt, error) {
	current, err := s.carts.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(current) == 0 {
		return nil, apperror.ErrEmptyCart
	}

	priced := make(map[string]bool, len(current))
	ids := make([]string, 0, len(current))
	for _, l := range current {
		if !priced[l.ProductID] {
			priced[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}

	var receipt *models.Receipt
	err = s.carts.Transaction(ctx, func(tx repository.CartRepository) error {
		lines, err := tx.ListForUpdate(ctx, identityID)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}

		now := s.now()
		r := &models.Receipt{
			ReceiptID: newReceiptID(now),
			Timestamp: now.UTC(),
			Name:      name,
			Email:     email,
			Total:     decimal.Zero,
			Items:     make([]models.ReceiptItem, 0, len(lines)),
		}
		consumed := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			if !priced[l.ProductID] {
				continue
			}
			// Vanished products are dropped from the cart and the receipt.
			consumed = append(consumed, l.ID)
			p, ok := products[l.ProductID]
			if !ok {
				s.logger.Warn("Dropping cart line for missing product",
					zap.String("identity_id", identityID), zap.String("product_id", l.ProductID))
				continue
			}
			subtotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
			r.Items = append(r.Items, models.ReceiptItem{
				ProductID: p.ID,
				Product:   p.Name,
				Qty:       l.Quantity,
				Price:     p.Price,
				Subtotal:  subtotal.Round(2),
			})
			r.Total = r.Total.Add(subtotal)
		}
		if len(r.Items) == 0 {
			return apperror.ErrEmptyCart
		}
		r.Total = r.Total.Round(2)

		if _, err := tx.DeleteLines(ctx, identityID, consumed); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *checkoutServiceImpl) publish(ctx context.Context, identityID string, isGuest bool, receipt models.Receipt) {
	event := models.CheckoutCompletedEvent{
		EventType:  models.EventCheckoutCompleted,
		IdentityID: identityID,
		IsGuest:    isGuest,
		Receipt:    receipt,
		Timestamp:  s.now().UTC(),
	}
	// The request may already be finishing; give the broker its own deadline.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, models.EventCheckoutCompleted, identityID, event); err != nil {
		s.logger.Warn("Failed to publish checkout event",
			zap.String("receipt_id", receipt.ReceiptID), zap.Error(err))
	}
}

func (s *checkoutServiceImpl) observe(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "completed"
	switch {
	case errors.Is(err, apperror.ErrEmptyCart):
		outcome = "empty"
	case err != nil:
		outcome = "failed"
	}
	s.metrics.Checkouts.WithLabelValues(outcome).Inc()
}

// newReceiptID renders REC-<unix-ms>-<12 upper-case hex chars>.
func newReceiptID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("REC-%d-%s", now.UnixMilli(), strings.ToUpper(random[:12]))
}
