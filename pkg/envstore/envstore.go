// Package envstore persists decrypted tenant environment maps between builds.
// Writes are idempotent: storing an unchanged map is a no-op, so callers can
// blindly persist after every build.
package envstore

import (
	"context"
	"maps"
	"sync"
)

// Store holds one env map per tenant.
type Store interface {
	// Get returns a copy of the tenant's env map; empty map when absent.
	Get(ctx context.Context, userID string) (map[string]string, error)
	// Put stores vars for the tenant, reporting whether anything changed.
	Put(ctx context.Context, userID string, vars map[string]string) (bool, error)
	// Delete removes the tenant's map.
	Delete(ctx context.Context, userID string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	vars map[string]map[string]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{vars: make(map[string]map[string]string)}
}

func (m *Memory) Get(ctx context.Context, userID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.vars[userID]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(stored))
	maps.Copy(out, stored)
	return out, nil
}

func (m *Memory) Put(ctx context.Context, userID string, vars map[string]string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stored, ok := m.vars[userID]; ok && maps.Equal(stored, vars) {
		return false, nil
	}

	copied := make(map[string]string, len(vars))
	maps.Copy(copied, vars)
	m.vars[userID] = copied
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vars, userID)
	return nil
}
