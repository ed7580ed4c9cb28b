package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidSymbol is returned for an empty or malformed symbol.
var ErrInvalidSymbol = errors.New("invalid symbol")

// Store holds the watched symbols in insertion order.
type Store interface {
	// Add reports whether the symbol was newly added.
	Add(ctx context.Context, symbol string) (bool, error)
	// Remove reports whether the symbol was present.
	Remove(ctx context.Context, symbol string) (bool, error)
	// Snapshot returns a copy of the current symbols.
	Snapshot(ctx context.Context) ([]string, error)
}

// Normalize trims and upper-cases a symbol.
func Normalize(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.ContainsAny(s, " \t\n,;/") || len(s) > 32 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	symbols []string
	index   map[string]struct{}
}

// NewMemoryStore creates a store holding seed. Invalid or repeated seed
// symbols are skipped.
func NewMemoryStore(seed []string) *MemoryStore {
	m := &MemoryStore{index: make(map[string]struct{})}
	for _, s := range seed {
		if n, err := Normalize(s); err == nil {
			m.add(n)
		}
	}
	return m
}

func (m *MemoryStore) Add(_ context.Context, symbol string) (bool, error) {
	n, err := Normalize(symbol)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(n), nil
}

func (m *MemoryStore) add(symbol string) bool {
	if _, ok := m.index[symbol]; ok {
		return false
	}
	m.index[symbol] = struct{}{}
	m.symbols = append(m.symbols, symbol)
	return true
}

func (m *MemoryStore) Remove(_ context.Context, symbol string) (bool, error) {
	n, err := Normalize(symbol)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[n]; !ok {
		return false, nil
	}
	delete(m.index, n)
	for i, s := range m.symbols {
		if s == n {
			m.symbols = append(m.symbols[:i:i], m.symbols[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MemoryStore) Snapshot(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.symbols))
	copy(out, m.symbols)
	return out, nil
}
