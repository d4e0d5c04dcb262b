package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shopcart-service/reconcile"
)

// CartLine is one product in one identity's cart. (IdentityID, ProductID) is
// unique; Quantity is always >= 1.
type CartLine struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"_id"`
	IdentityID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_lines_identity_product,priority:1" json:"userId"`
	ProductID  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_lines_identity_product,priority:2" json:"productId"`
	Quantity   int       `gorm:"not null;check:quantity >= 1" json:"qty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// ReconcileLine converts the row into the merge engine's line shape.
func (l CartLine) ReconcileLine() reconcile.Line {
	return reconcile.Line{ProductID: l.ProductID, Qty: l.Quantity}
}

// CartItem is a cart line joined with its catalog product.
type CartItem struct {
	ID        uuid.UUID       `json:"_id"`
	ProductID string          `json:"productId"`
	Product   *Product        `json:"product,omitempty"`
	Qty       int             `json:"qty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CartView is the full cart of an identity.
type CartView struct {
	Items []CartItem `json:"data"`
	// Total is Σ price × qty over lines whose product still exists.
	Total decimal.Decimal `json:"total"`
	// Lines is the number of lines; Quantity the summed quantity.
	Lines    int `json:"-"`
	Quantity int `json:"-"`
}

// MergeResult is returned by a client-initiated merge.
type MergeResult struct {
	Cart   CartView
	Merged int
}
