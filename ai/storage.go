// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Storage persists [TurnState] scopes. Implementations must be safe for
// concurrent use; serializing writers of the same conversation is the
// caller's concern.
type Storage interface {
	// Read returns the stored items for keys. Missing keys are omitted.
	Read(ctx context.Context, keys []string) (map[string]map[string]any, error)

	// Write upserts the given items.
	Write(ctx context.Context, changes map[string]map[string]any) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys []string) error
}

// MemoryStorage is an in-memory [Storage]. Items are stored in JSON form so
// readers never share memory with writers.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStorage creates an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: map[string][]byte{}}
}

func (s *MemoryStorage) Read(_ context.Context, keys []string) (map[string]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]any, len(keys))
	for _, k := range keys {
		b, ok := s.items[k]
		if !ok {
			continue
		}
		var item map[string]any
		if err := json.Unmarshal(b, &item); err != nil {
			return nil, fmt.Errorf("%w: decode %q: %w", ErrOperationFailed, k, err)
		}
		out[k] = item
	}
	return out, nil
}

func (s *MemoryStorage) Write(_ context.Context, changes map[string]map[string]any) error {
	encoded := make(map[string][]byte, len(changes))
	for k, v := range changes {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: encode %q: %w", ErrOperationFailed, k, err)
		}
		encoded[k] = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, b := range encoded {
		s.items[k] = b
	}
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}
