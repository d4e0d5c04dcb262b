package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, as the storefront expects.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry. Prices are in INR.
type Product struct {
	ID        string          `gorm:"type:varchar(64);primaryKey" json:"_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Image     string          `gorm:"type:text;not null" json:"image"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}
