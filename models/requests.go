package models

import (
	"encoding/json"

	"shopcart-service/reconcile"
)

// SignupRequest is the payload for creating an account.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"omitempty,min=2,max=100"`
}

// LoginRequest is the payload for logging in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AddToCartRequest adds qty of a product to the caller's cart.
type AddToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Qty       int    `json:"qty" binding:"required,min=1"`
}

// MergeCartRequest carries a client-held cart. Entries are kept raw so a
// single malformed entry is skipped instead of failing the whole request.
type MergeCartRequest struct {
	LocalCart []json.RawMessage `json:"localCart"`
}

// Lines returns the well-formed entries of the local cart.
func (r MergeCartRequest) Lines() []reconcile.Line {
	lines := make([]reconcile.Line, 0, len(r.LocalCart))
	for _, raw := range r.LocalCart {
		var entry struct {
			ProductID string      `json:"productId"`
			Qty       json.Number `json:"qty"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		qty, err := entry.Qty.Int64()
		if err != nil || entry.ProductID == "" || qty < 1 {
			continue
		}
		lines = append(lines, reconcile.Line{ProductID: entry.ProductID, Qty: int(qty)})
	}
	return lines
}

// CheckoutRequest names the purchaser.
type CheckoutRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=100"`
	Email string `json:"email" binding:"required,email"`
}
