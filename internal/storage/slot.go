// Package storage provides the durable key-value slot that holds the
// serialized workout collection.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// DefaultKey is the slot name used when none is configured.
const DefaultKey = "workouts"

// Slot is a single named durable value. Save overwrites the whole value.
type Slot interface {
	// Load returns the stored text, or ok=false when nothing is stored.
	Load(ctx context.Context) (text string, ok bool, err error)
	Save(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	Close() error
}

// Memory is a process-local Slot.
type Memory struct {
	mu    sync.Mutex
	value *string
}

// NewMemory returns an empty in-memory slot.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value == nil {
		return "", false, nil
	}
	return *m.value, true, nil
}

func (m *Memory) Save(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = &text
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = nil
	return nil
}

func (m *Memory) Close() error { return nil }
