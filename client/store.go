package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"shopcart-service/reconcile"
)

// LocalCartKey is the single key the anonymous cart is stored under.
const LocalCartKey = "shopcart_local_cart"

// Store persists the anonymous cart between runs.
type Store interface {
	Load() ([]reconcile.Line, error)
	Save(lines []reconcile.Line) error
	Clear() error
}

// MemoryStore keeps the cart for the lifetime of the process.
type MemoryStore struct {
	mu    sync.Mutex
	lines []reconcile.Line
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load() ([]reconcile.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reconcile.Line(nil), s.lines...), nil
}

func (s *MemoryStore) Save(lines []reconcile.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append([]reconcile.Line(nil), lines...)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return nil
}

// PebbleStore keeps the cart as JSON under LocalCartKey in a pebble DB.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens dir on fs. A nil fs means the OS filesystem.
func NewPebbleStore(dir string, fs vfs.FS) (*PebbleStore, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

// Load returns the stored cart. A missing or unreadable value is an empty
// cart so a corrupt file never locks the shopper out.
func (p *PebbleStore) Load() ([]reconcile.Line, error) {
	v, closer, err := p.db.Get([]byte(LocalCartKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var lines []reconcile.Line
	if err := json.Unmarshal(v, &lines); err != nil {
		return nil, nil
	}
	return reconcile.Normalize(lines), nil
}

func (p *PebbleStore) Save(lines []reconcile.Line) error {
	b, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return p.db.Set([]byte(LocalCartKey), b, pebble.Sync)
}

func (p *PebbleStore) Clear() error {
	return p.db.Delete([]byte(LocalCartKey), pebble.Sync)
}
