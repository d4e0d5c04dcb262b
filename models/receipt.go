package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the immutable result of a checkout. It is returned once and
// never stored.
type Receipt struct {
	ReceiptID string          `json:"receiptId"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Items     []ReceiptItem   `json:"items"`
}

// ReceiptItem snapshots a line at purchase time.
type ReceiptItem struct {
	ProductID string          `json:"productId"`
	Product   string          `json:"product"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CheckoutCompletedEvent is published after a checkout commits.
type CheckoutCompletedEvent struct {
	EventType  string    `json:"event_type"`
	IdentityID string    `json:"identity_id"`
	IsGuest    bool      `json:"is_guest"`
	Receipt    Receipt   `json:"receipt"`
	Timestamp  time.Time `json:"timestamp"`
}

const EventCheckoutCompleted = "checkout.completed"
