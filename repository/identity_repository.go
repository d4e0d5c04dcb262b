package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopcart-service/models"
)

// IdentityRepository defines the interface for identity data access.
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindByGuestToken(ctx context.Context, token string) (*models.Identity, error)
}

// GormIdentityRepository implements IdentityRepository using GORM.
type GormIdentityRepository struct {
	db *gorm.DB
}

func NewGormIdentityRepository(db *gorm.DB) IdentityRepository {
	return &GormIdentityRepository{db: db}
}

// Create validates the identity shape before inserting it.
func (r *GormIdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	if err := identity.Validate(); err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Create(identity).Error)
}

func (r *GormIdentityRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, translate(err)
	}
	return &identity, nil
}

// FindByEmail looks up a durable identity; the address is normalized first.
func (r *GormIdentityRepository) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&identity).Error
	if err != nil {
		return nil, translate(err)
	}
	return &identity, nil
}

func (r *GormIdentityRepository) FindByGuestToken(ctx context.Context, token string) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).Where("guest_token = ?", token).First(&identity).Error; err != nil {
		return nil, translate(err)
	}
	return &identity, nil
}
