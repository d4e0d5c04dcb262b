package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/metrics"
	"shopcart-service/models"
	"shopcart-service/reconcile"
	"shopcart-service/repository"
)

const (
	mergeSourceGuest = "guest"
	mergeSourceLocal = "local"
)

// CartService defines the cart business logic.
type CartService interface {
	Add(ctx context.Context, identityID, productID string, qty int) (item *models.CartItem, created bool, err error)
	List(ctx context.Context, identityID string) (*models.CartView, error)
	Remove(ctx context.Context, identityID, lineID string) error
	// Merge folds a client-held cart into the identity's cart and returns
	// the resulting cart.
	Merge(ctx context.Context, identityID string, lines []reconcile.Line) (*models.MergeResult, error)
	// MergeLines applies lines to the identity's cart, skipping unknown
	// products and swallowing per-line failures. It never decrements or
	// removes an existing line.
	MergeLines(ctx context.Context, identityID string, lines []reconcile.Line) (int, error)
	// FoldGuest moves every line of guestID into targetID, one small
	// transaction per line.
	FoldGuest(ctx context.Context, guestID, targetID string) (int, error)
}

type cartServiceImpl struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	metrics  *metrics.Registry
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, m *metrics.Registry, logger *zap.Logger) CartService {
	return &cartServiceImpl{carts: carts, products: products, metrics: m, logger: logger}
}

func (s *cartServiceImpl) Add(ctx context.Context, identityID, productID string, qty int) (*models.CartItem, bool, error) {
	if qty < 1 {
		return nil, false, apperror.Validation("Quantity must be at least 1")
	}
	product, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, apperror.ErrProductNotFound
	}
	if err != nil {
		return nil, false, apperror.Internal(fmt.Errorf("find product %s: %w", productID, err))
	}

	line, created, err := s.carts.AddQuantity(ctx, identityID, productID, qty)
	if err != nil {
		return nil, false, apperror.Internal(fmt.Errorf("add to cart: %w", err))
	}
	item := toCartItem(*line, product)
	return &item, created, nil
}

func (s *cartServiceImpl) List(ctx context.Context, identityID string) (*models.CartView, error) {
	lines, err := s.carts.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list cart: %w", err))
	}
	return s.view(ctx, lines)
}

func (s *cartServiceImpl) Remove(ctx context.Context, identityID, lineID string) error {
	id, err := uuid.Parse(lineID)
	if err != nil {
		return apperror.Validation("Invalid cart item id")
	}
	err = s.carts.Delete(ctx, identityID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrCartItemNotFound
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("remove cart line: %w", err))
	}
	return nil
}

func (s *cartServiceImpl) Merge(ctx context.Context, identityID string, lines []reconcile.Line) (*models.MergeResult, error) {
	merged, err := s.MergeLines(ctx, identityID, lines)
	if err != nil {
		return nil, err
	}
	view, err := s.List(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return &models.MergeResult{Cart: *view, Merged: merged}, nil
}

func (s *cartServiceImpl) MergeLines(ctx context.Context, identityID string, lines []reconcile.Line) (int, error) {
	current, err := s.carts.ListByIdentity(ctx, identityID)
	if err != nil {
		return 0, apperror.Internal(fmt.Errorf("list cart: %w", err))
	}
	target := make([]reconcile.Line, 0, len(current))
	for _, l := range current {
		target = append(target, l.ReconcileLine())
	}

	changes := reconcile.Plan(lines, target)
	if len(changes) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(changes))
	for _, c := range changes {
		ids = append(ids, c.ProductID)
	}
	known, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return 0, apperror.Internal(fmt.Errorf("load products: %w", err))
	}

	merged := 0
	for _, c := range changes {
		if _, ok := known[c.ProductID]; !ok {
			s.skipped(mergeSourceLocal, "unknown_product")
			s.logger.Info("Skipping unknown product in merge",
				zap.String("identity_id", identityID), zap.String("product_id", c.ProductID))
			continue
		}
		if _, _, err := s.carts.AddQuantity(ctx, identityID, c.ProductID, c.Delta); err != nil {
			s.skipped(mergeSourceLocal, "storage_error")
			s.logger.Error("Failed to merge cart line",
				zap.String("identity_id", identityID), zap.String("product_id", c.ProductID), zap.Error(err))
			continue
		}
		merged++
	}
	if s.metrics != nil {
		s.metrics.MergedLines.WithLabelValues(mergeSourceLocal).Add(float64(merged))
	}
	return merged, nil
}

func (s *cartServiceImpl) FoldGuest(ctx context.Context, guestID, targetID string) (int, error) {
	if guestID == targetID {
		return 0, nil
	}
	guestLines, err := s.carts.ListByIdentity(ctx, guestID)
	if err != nil {
		return 0, fmt.Errorf("list guest cart: %w", err)
	}
	if len(guestLines) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(guestLines))
	for _, l := range guestLines {
		ids = append(ids, l.ProductID)
	}
	known, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load products: %w", err)
	}

	folded := 0
	for _, line := range guestLines {
		_, exists := known[line.ProductID]
		applied := false
		err := s.carts.Transaction(ctx, func(tx repository.CartRepository) error {
			// Whoever deletes the guest row owns it; a concurrent fold of the
			// same guest sees zero rows and skips.
			n, err := tx.DeleteLines(ctx, guestID, []uuid.UUID{line.ID})
			if err != nil || n == 0 || !exists {
				return err
			}
			if _, _, err := tx.AddQuantity(ctx, targetID, line.ProductID, line.Quantity); err != nil {
				return err
			}
			applied = true
			return nil
		})
		switch {
		case err != nil:
			s.skipped(mergeSourceGuest, "storage_error")
			s.logger.Error("Failed to fold guest cart line",
				zap.String("guest_id", guestID), zap.String("identity_id", targetID),
				zap.String("product_id", line.ProductID), zap.Error(err))
		case !exists:
			s.skipped(mergeSourceGuest, "unknown_product")
		case applied:
			folded++
		}
	}

	if s.metrics != nil {
		s.metrics.MergedLines.WithLabelValues(mergeSourceGuest).Add(float64(folded))
	}
	s.logger.Info("Merged guest cart",
		zap.String("guest_id", guestID), zap.String("identity_id", targetID),
		zap.Int("lines", len(guestLines)), zap.Int("merged", folded))
	return folded, nil
}

func (s *cartServiceImpl) skipped(source, reason string) {
	if s.metrics != nil {
		s.metrics.SkippedLines.WithLabelValues(source, reason).Inc()
	}
}

func (s *cartServiceImpl) view(ctx context.Context, lines []models.CartLine) (*models.CartView, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("load products: %w", err))
	}

	view := &models.CartView{Items: make([]models.CartItem, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		var product *models.Product
		if p, ok := products[l.ProductID]; ok {
			product = &p
		}
		item := toCartItem(l, product)
		view.Items = append(view.Items, item)
		view.Total = view.Total.Add(item.Subtotal)
		view.Quantity += l.Quantity
	}
	view.Lines = len(lines)
	view.Total = view.Total.Round(2)
	return view, nil
}

// toCartItem joins a line with its product. A vanished product yields a
// zero subtotal.
func toCartItem(line models.CartLine, product *models.Product) models.CartItem {
	item := models.CartItem{
		ID:        line.ID,
		ProductID: line.ProductID,
		Product:   product,
		Qty:       line.Quantity,
		Subtotal:  decimal.Zero,
	}
	if product != nil {
		item.Subtotal = product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
	}
	return item
}
