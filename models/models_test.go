package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcart-service/reconcile"
)

func TestIdentityValidate(t *testing.T) {
	now := time.Now()

	guest := NewGuest(now)
	assert.NoError(t, guest.Validate())
	assert.True(t, guest.IsGuest)
	assert.Contains(t, *guest.GuestToken, GuestTokenPrefix)
	assert.WithinDuration(t, now.Add(GuestCartTTL), *guest.CartExpiresAt, time.Second)

	account := NewAccount(" Jane@Example.COM ", "hash", "")
	assert.NoError(t, account.Validate())
	assert.Equal(t, "jane@example.com", *account.Email)
	assert.Equal(t, "jane", account.Name)

	both := NewAccount("a@b.co", "hash", "Ann")
	both.GuestToken = guest.GuestToken
	assert.ErrorIs(t, both.Validate(), ErrIdentityShape)

	neither := &Identity{}
	assert.ErrorIs(t, neither.Validate(), ErrIdentityShape)

	noExpiry := NewGuest(now)
	noExpiry.CartExpiresAt = nil
	assert.ErrorIs(t, noExpiry.Validate(), ErrGuestWithoutExpiry)
}

func TestIdentityCartExpired(t *testing.T) {
	now := time.Now()
	guest := NewGuest(now)

	assert.False(t, guest.CartExpired(now))
	assert.True(t, guest.CartExpired(now.Add(GuestCartTTL+time.Minute)))

	account := NewAccount("a@b.co", "hash", "")
	assert.False(t, account.CartExpired(now.Add(365*24*time.Hour)))
}

func TestMergeCartRequestLinesSkipsMalformedEntries(t *testing.T) {
	var req MergeCartRequest
	body := `{"localCart":[
		{"productId":"p1","qty":2},
		{"productId":"p2","qty":"lots"},
		{"productId":"","qty":1},
		{"productId":"p3","qty":1.5},
		{"productId":"p4","qty":0},
		"garbage",
		{"productId":"p5","qty":1}
	]}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, []reconcile.Line{
		{ProductID: "p1", Qty: 2},
		{ProductID: "p5", Qty: 1},
	}, req.Lines())
}

func TestReceiptPricesSerializeAsNumbers(t *testing.T) {
	b, err := json.Marshal(ReceiptItem{Product: "Lamp", Qty: 2, Price: decimal.RequireFromString("3299"), Subtotal: decimal.RequireFromString("6598")})
	require.NoError(t, err)

	assert.Contains(t, string(b), `"price":3299`)
	assert.Contains(t, string(b), `"subtotal":6598`)
}
