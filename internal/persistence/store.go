// Package persistence saves the creature registry into a per-save key/value
// store and loads it back, migrating the older per-category layout.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Keys of the current layout.
const (
	KeySkinMap            = "skin-map"
	KeyIDToCategory       = "id-to-category"
	KeyAnimalLongToShort  = "animal-long-to-short-ids"
	KeyAnimalShortToLong  = "animal-short-to-long-ids"
	KeyDataVersion        = "data-version"
	KeyFirstPetReceived   = "first-pet-received"
	KeyFirstHorseReceived = "first-horse-received"
)

// Keys of the legacy per-category layout.
const (
	KeyLegacyAnimalSkinMap = "animal-skin-map"
	KeyLegacyPetSkinMap    = "pet-skin-map"
	KeyLegacyHorseSkinMap  = "horse-skin-map"
)

// DataVersion is written with every save.
const DataVersion = "4"

// KeyValueStore is the per-save data store provided by the host.
type KeyValueStore interface {
	// Read decodes the value stored under key into dst. It returns false
	// when the key is absent.
	Read(ctx context.Context, key string, dst any) (bool, error)
	// Write stores value under key.
	Write(ctx context.Context, key string, value any) error
}

// MemoryStore is an in-memory KeyValueStore holding JSON-encoded values.
type MemoryStore struct {
	data map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Read implements KeyValueStore.
func (s *MemoryStore) Read(ctx context.Context, key string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Write implements KeyValueStore.
func (s *MemoryStore) Write(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.data[key] = raw
	return nil
}

// Keys returns the stored keys, sorted.
func (s *MemoryStore) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
