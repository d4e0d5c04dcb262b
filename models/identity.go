package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GuestCartTTL is how long a guest identity (and its cart) stays usable.
const GuestCartTTL = 7 * 24 * time.Hour

// GuestTokenPrefix prefixes every guest correlation token.
const GuestTokenPrefix = "guest_"

var (
	ErrIdentityShape      = errors.New("identity must be either a guest or a credentialed account")
	ErrGuestWithoutExpiry = errors.New("guest identity requires a cart expiry")
)

// Identity is a shopper: either a durable account (email + password) or a
// short-lived guest addressed by its guest token.
type Identity struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email         *string    `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	PasswordHash  string     `gorm:"type:varchar(255)" json:"-"`
	Name          string     `gorm:"type:varchar(100)" json:"name,omitempty"`
	IsGuest       bool       `gorm:"not null;default:false" json:"isGuest"`
	GuestToken    *string    `gorm:"type:varchar(64);uniqueIndex" json:"guestId,omitempty"`
	CartExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// NewGuest builds an unsaved guest identity expiring GuestCartTTL after now.
func NewGuest(now time.Time) *Identity {
	token := GuestTokenPrefix + uuid.NewString()
	expires := now.Add(GuestCartTTL)
	return &Identity{
		ID:            uuid.New(),
		IsGuest:       true,
		GuestToken:    &token,
		CartExpiresAt: &expires,
	}
}

// NewAccount builds an unsaved durable identity. The e-mail is normalized and
// name falls back to the e-mail local part.
func NewAccount(email, passwordHash, name string) *Identity {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	return &Identity{
		ID:           uuid.New(),
		Email:        &email,
		PasswordHash: passwordHash,
		Name:         name,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate enforces that an identity is exactly one of the two shapes.
func (i *Identity) Validate() error {
	hasCredential := i.Email != nil && *i.Email != "" && i.PasswordHash != ""
	hasGuestToken := i.GuestToken != nil && *i.GuestToken != ""

	if i.IsGuest {
		if !hasGuestToken || i.Email != nil || i.PasswordHash != "" {
			return ErrIdentityShape
		}
		if i.CartExpiresAt == nil {
			return ErrGuestWithoutExpiry
		}
		return nil
	}
	if !hasCredential || i.GuestToken != nil {
		return ErrIdentityShape
	}
	return nil
}

// CartExpired reports whether a guest's cart window has passed. Durable
// identities never expire.
func (i *Identity) CartExpired(now time.Time) bool {
	if !i.IsGuest || i.CartExpiresAt == nil {
		return false
	}
	return now.After(*i.CartExpiresAt)
}

// IdentitySummary is the public view of an identity.
type IdentitySummary struct {
	ID        string     `json:"_id"`
	Email     string     `json:"email,omitempty"`
	Name      string     `json:"name,omitempty"`
	IsGuest   bool       `json:"isGuest"`
	GuestID   string     `json:"guestId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (i *Identity) Summary() IdentitySummary {
	s := IdentitySummary{
		ID:        i.ID.String(),
		Name:      i.Name,
		IsGuest:   i.IsGuest,
		ExpiresAt: i.CartExpiresAt,
	}
	if i.Email != nil {
		s.Email = *i.Email
	}
	if i.GuestToken != nil {
		s.GuestID = *i.GuestToken
	}
	return s
}
