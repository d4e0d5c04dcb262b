// Package memstore provides in-memory implementations of the repository
// interfaces for tests and local runs without Postgres or Redis.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopcart-service/models"
	"shopcart-service/repository"
)

// Identities is an in-memory repository.IdentityRepository.
type Identities struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]models.Identity
}

func NewIdentities() *Identities {
	return &Identities{byID: make(map[uuid.UUID]models.Identity)}
}

func (s *Identities) Create(_ context.Context, identity *models.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if identity.Email != nil && existing.Email != nil && *existing.Email == *identity.Email {
			return repository.ErrDuplicate
		}
		if identity.GuestToken != nil && existing.GuestToken != nil && *existing.GuestToken == *identity.GuestToken {
			return repository.ErrDuplicate
		}
	}
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	now := time.Now()
	identity.CreatedAt, identity.UpdatedAt = now, now
	s.byID[identity.ID] = *identity
	return nil
}

func (s *Identities) FindByID(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &identity, nil
}

func (s *Identities) FindByEmail(_ context.Context, email string) (*models.Identity, error) {
	email = models.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, identity := range s.byID {
		if identity.Email != nil && *identity.Email == email {
			found := identity
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Identities) FindByGuestToken(_ context.Context, token string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, identity := range s.byID {
		if identity.GuestToken != nil && *identity.GuestToken == token {
			found := identity
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Put stores identity as-is, bypassing validation. Useful for fixtures such
// as already-expired guests.
func (s *Identities) Put(identity models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[identity.ID] = identity
}

// Products is an in-memory repository.ProductRepository.
type Products struct {
	mu       sync.RWMutex
	products []models.Product
}

func NewProducts(products ...models.Product) *Products {
	return &Products{products: append([]models.Product(nil), products...)}
}

func (s *Products) List(context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product(nil), s.products...), nil
}

func (s *Products) FindByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Products) FindByIDs(_ context.Context, ids []string) (map[string]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[string]models.Product, len(ids))
	for _, p := range s.products {
		if want[p.ID] {
			out[p.ID] = p
		}
	}
	return out, nil
}

func (s *Products) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.products)), nil
}

func (s *Products) CreateMany(_ context.Context, products []models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.NewString()
		}
		s.products = append(s.products, products[i])
	}
	return nil
}

// Remove deletes a product, simulating a catalog change.
func (s *Products) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.products[:0]
	for _, p := range s.products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.products = kept
}

// Sessions is an in-memory repository.SessionRevoker.
type Sessions struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewSessions() *Sessions {
	return &Sessions{revoked: make(map[string]time.Time)}
}

func (s *Sessions) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = time.Now().Add(ttl)
	return nil
}

func (s *Sessions) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	return ok && time.Now().Before(until), nil
}

// Carts is an in-memory repository.CartRepository. Transactions hold the
// store lock for their whole duration and restore a snapshot on error.
type Carts struct {
	mu    sync.Mutex
	lines []models.CartLine
	seq   int64

	// FailAdd, when set, is consulted before every AddQuantity.
	FailAdd func(identityID, productID string) error
}

func NewCarts() *Carts {
	return &Carts{}
}

var _ repository.CartRepository = (*Carts)(nil)

func (s *Carts) ListByIdentity(ctx context.Context, identityID string) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*cartState)(s).list(identityID), nil
}

func (s *Carts) ListForUpdate(ctx context.Context, identityID string) ([]models.CartLine, error) {
	return s.ListByIdentity(ctx, identityID)
}

func (s *Carts) AddQuantity(ctx context.Context, identityID, productID string, qty int) (*models.CartLine, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*cartState)(s).add(identityID, productID, qty)
}

func (s *Carts) Delete(ctx context.Context, identityID string, lineID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if (*cartState)(s).remove(identityID, func(l models.CartLine) bool { return l.ID == lineID }) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Carts) DeleteLines(ctx context.Context, identityID string, lineIDs []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*cartState)(s).remove(identityID, idIn(lineIDs)), nil
}

func (s *Carts) DeleteByIdentity(ctx context.Context, identityID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*cartState)(s).remove(identityID, func(models.CartLine) bool { return true }), nil
}

func (s *Carts) Transaction(ctx context.Context, fn func(repo repository.CartRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := append([]models.CartLine(nil), s.lines...)
	seq := s.seq
	if err := fn((*cartState)(s)); err != nil {
		s.lines, s.seq = snapshot, seq
		return err
	}
	return nil
}

// Lines returns every stored line, for assertions.
func (s *Carts) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartLine(nil), s.lines...)
}

// cartState is Carts with the lock already held.
type cartState Carts

func (c *cartState) list(identityID string) []models.CartLine {
	var out []models.CartLine
	for _, l := range c.lines {
		if l.IdentityID == identityID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (c *cartState) add(identityID, productID string, qty int) (*models.CartLine, bool, error) {
	if qty < 1 {
		return nil, false, repository.ErrInvalidQuantity
	}
	if c.FailAdd != nil {
		if err := c.FailAdd(identityID, productID); err != nil {
			return nil, false, err
		}
	}
	now := time.Now()
	for i := range c.lines {
		if c.lines[i].IdentityID == identityID && c.lines[i].ProductID == productID {
			c.lines[i].Quantity += qty
			c.lines[i].UpdatedAt = now
			line := c.lines[i]
			return &line, false, nil
		}
	}
	// Strictly increasing timestamps keep creation order stable.
	c.seq++
	line := models.CartLine{
		ID:         uuid.New(),
		IdentityID: identityID,
		ProductID:  productID,
		Quantity:   qty,
		CreatedAt:  now.Add(time.Duration(c.seq)),
		UpdatedAt:  now,
	}
	c.lines = append(c.lines, line)
	return &line, true, nil
}

func (c *cartState) remove(identityID string, match func(models.CartLine) bool) int64 {
	var removed int64
	kept := c.lines[:0]
	for _, l := range c.lines {
		if l.IdentityID == identityID && match(l) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	c.lines = kept
	return removed
}

func (c *cartState) ListByIdentity(_ context.Context, identityID string) ([]models.CartLine, error) {
	return c.list(identityID), nil
}

func (c *cartState) ListForUpdate(_ context.Context, identityID string) ([]models.CartLine, error) {
	return c.list(identityID), nil
}

func (c *cartState) AddQuantity(_ context.Context, identityID, productID string, qty int) (*models.CartLine, bool, error) {
	return c.add(identityID, productID, qty)
}

func (c *cartState) Delete(_ context.Context, identityID string, lineID uuid.UUID) error {
	if c.remove(identityID, func(l models.CartLine) bool { return l.ID == lineID }) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c *cartState) DeleteLines(_ context.Context, identityID string, lineIDs []uuid.UUID) (int64, error) {
	return c.remove(identityID, idIn(lineIDs)), nil
}

func (c *cartState) DeleteByIdentity(_ context.Context, identityID string) (int64, error) {
	return c.remove(identityID, func(models.CartLine) bool { return true }), nil
}

func (c *cartState) Transaction(_ context.Context, fn func(repo repository.CartRepository) error) error {
	return fn(c)
}

func idIn(ids []uuid.UUID) func(models.CartLine) bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(l models.CartLine) bool { return set[l.ID] }
}
