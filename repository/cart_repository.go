package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopcart-service/models"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartRepository defines the interface for cart line data access.
type CartRepository interface {
	ListByIdentity(ctx context.Context, identityID string) ([]models.CartLine, error)
	// ListForUpdate row-locks the lines when running inside Transaction.
	ListForUpdate(ctx context.Context, identityID string) ([]models.CartLine, error)
	// AddQuantity increments the (identity, product) line, creating it when
	// absent. created reports whether a new line was inserted.
	AddQuantity(ctx context.Context, identityID, productID string, qty int) (line *models.CartLine, created bool, err error)
	Delete(ctx context.Context, identityID string, lineID uuid.UUID) error
	DeleteLines(ctx context.Context, identityID string, lineIDs []uuid.UUID) (int64, error)
	DeleteByIdentity(ctx context.Context, identityID string) (int64, error)
	Transaction(ctx context.Context, fn func(repo CartRepository) error) error
}

// GormCartRepository implements CartRepository using GORM.
type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) CartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) ListByIdentity(ctx context.Context, identityID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at ASC").
		Find(&lines).Error
	return lines, err
}

func (r *GormCartRepository) ListForUpdate(ctx context.Context, identityID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("identity_id = ?", identityID).
		Order("created_at ASC").
		Find(&lines).Error
	return lines, err
}

// AddQuantity is a single INSERT ... ON CONFLICT DO UPDATE, so concurrent
// adds of the same product never produce two lines or lose an increment.
func (r *GormCartRepository) AddQuantity(ctx context.Context, identityID, productID string, qty int) (*models.CartLine, bool, error) {
	if qty < 1 {
		return nil, false, ErrInvalidQuantity
	}

	newID := uuid.New()
	now := time.Now()
	line := models.CartLine{
		ID:         newID,
		IdentityID: identityID,
		ProductID:  productID,
		Quantity:   qty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_lines.quantity + EXCLUDED.quantity"),
				"updated_at": gorm.Expr("EXCLUDED.updated_at"),
			}),
		}).
		Create(&line).Error
	if err != nil {
		return nil, false, translate(err)
	}

	var stored models.CartLine
	err = r.db.WithContext(ctx).
		Where("identity_id = ? AND product_id = ?", identityID, productID).
		First(&stored).Error
	if err != nil {
		return nil, false, translate(err)
	}
	return &stored, stored.ID == newID, nil
}

// Delete removes a line only if it belongs to identityID.
func (r *GormCartRepository) Delete(ctx context.Context, identityID string, lineID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND identity_id = ?", lineID, identityID).
		Delete(&models.CartLine{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormCartRepository) DeleteLines(ctx context.Context, identityID string, lineIDs []uuid.UUID) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("identity_id = ? AND id IN ?", identityID, lineIDs).
		Delete(&models.CartLine{})
	return result.RowsAffected, result.Error
}

func (r *GormCartRepository) DeleteByIdentity(ctx context.Context, identityID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Delete(&models.CartLine{})
	return result.RowsAffected, result.Error
}

// Transaction runs fn against a repository bound to one database transaction.
// Returning an error from fn rolls everything back.
func (r *GormCartRepository) Transaction(ctx context.Context, fn func(repo CartRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormCartRepository{db: tx})
	})
}
