package persistence

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	"github.com/Gathouria/Adopt-Skin/internal/registry"
)

// Strategy loads one generation of the saved layout into a registry.
type Strategy interface {
	Name() string
	Load(ctx context.Context, store KeyValueStore, reg *registry.Registry, live []creature.Creature, logger *log.Logger) (LoadResult, error)
}

var (
	// LoadCurrent reads the unified layout written by Save.
	LoadCurrent Strategy = currentStrategy{}
	// LoadV1 migrates the per-category layout of older saves.
	LoadV1 Strategy = v1Strategy{}
)

var legacyKeys = []struct {
	key      string
	category creature.Category
}{
	{KeyLegacyHorseSkinMap, creature.Horse},
	{KeyLegacyPetSkinMap, creature.Pet},
	{KeyLegacyAnimalSkinMap, creature.Animal},
}

// Detect picks the strategy for the data in store: the current layout when
// its skin map has entries, the legacy layout when only legacy maps do.
func Detect(ctx context.Context, store KeyValueStore) (Strategy, error) {
	var skins map[int64]int
	if _, err := store.Read(ctx, KeySkinMap, &skins); err != nil {
		return nil, fmt.Errorf("read %s: %w", KeySkinMap, err)
	}
	if len(skins) > 0 {
		return LoadCurrent, nil
	}
	for _, legacy := range legacyKeys {
		var m map[int64]int
		if _, err := store.Read(ctx, legacy.key, &m); err != nil {
			return nil, fmt.Errorf("read %s: %w", legacy.key, err)
		}
		if len(m) > 0 {
			return LoadV1, nil
		}
	}
	return LoadCurrent, nil
}

type currentStrategy struct{}

func (currentStrategy) Name() string { return "current" }

func (currentStrategy) Load(ctx context.Context, store KeyValueStore, reg *registry.Registry, live []creature.Creature, logger *log.Logger) (LoadResult, error) {
	state, err := ReadState(ctx, store)
	if err != nil {
		return LoadResult{}, err
	}
	err = reg.Restore(state)
	if err == nil {
		return LoadResult{}, nil
	}

	logger.Printf("alert: saved creature data is inconsistent, rebuilding: %v", err)
	var entries []savedEntry
	skipped := 0
	for id, skinID := range state.Skins {
		if !id.Category.Valid() {
			skipped++
			continue
		}
		entries = append(entries, savedEntry{
			Category: id.Category,
			Key:      id.LongID,
			Skin:     skinID,
			Order:    state.AnimalLongToShort[id.LongID],
		})
	}
	result := rebuild(reg, live, entries, logger)
	result.Skipped += skipped
	result.Rebuilt = true
	return result, nil
}

// ReadState reads the current layout from store without checking it. An
// entry without a saved category keeps the zero Category.
func ReadState(ctx context.Context, store KeyValueStore) (registry.State, error) {
	var doc document
	reads := []struct {
		key string
		dst any
	}{
		{KeySkinMap, &doc.skins},
		{KeyIDToCategory, &doc.categories},
		{KeyAnimalLongToShort, &doc.longToShort},
		{KeyAnimalShortToLong, &doc.shortToLong},
	}
	for _, r := range reads {
		if _, err := store.Read(ctx, r.key, r.dst); err != nil {
			return registry.State{}, fmt.Errorf("read %s: %w", r.key, err)
		}
	}

	state := registry.State{
		Skins:             make(map[creature.Identity]int, len(doc.skins)),
		AnimalLongToShort: doc.longToShort,
		AnimalShortToLong: doc.shortToLong,
	}
	for longID, skinID := range doc.skins {
		state.Skins[creature.Identity{Category: doc.categories[longID], LongID: longID}] = skinID
	}
	return state, nil
}

type v1Strategy struct{}

func (v1Strategy) Name() string { return "v1" }

func (v1Strategy) Load(ctx context.Context, store KeyValueStore, reg *registry.Registry, live []creature.Creature, logger *log.Logger) (LoadResult, error) {
	var shortIDs map[int64]int
	if _, err := store.Read(ctx, KeyAnimalLongToShort, &shortIDs); err != nil {
		return LoadResult{}, fmt.Errorf("read %s: %w", KeyAnimalLongToShort, err)
	}

	var entries []savedEntry
	for _, legacy := range legacyKeys {
		var m map[int64]int
		if _, err := store.Read(ctx, legacy.key, &m); err != nil {
			return LoadResult{}, fmt.Errorf("read %s: %w", legacy.key, err)
		}
		for key, skinID := range m {
			e := savedEntry{Category: legacy.category, Key: key, Skin: skinID}
			if legacy.category == creature.Animal {
				e.Order = shortIDs[key]
			}
			entries = append(entries, e)
		}
	}
	logger.Printf("persistence: migrating %d entries from the per-category layout", len(entries))
	return rebuild(reg, live, entries, logger), nil
}

// savedEntry is one saved skin assignment. Key is the animal long id or the
// horse and pet id field value. Order is the saved animal short id, if any.
type savedEntry struct {
	Category creature.Category
	Key      int64
	Skin     int
	Order    int
}

// rebuild clears reg and registers every live creature matching an entry,
// keeping the saved skin. Entries without a live creature are skipped.
// Animals are added in saved short id order so their ids survive where the
// allocator allows.
func rebuild(reg *registry.Registry, live []creature.Creature, entries []savedEntry, logger *log.Logger) LoadResult {
	reg.Reset()
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if (a.Order == 0) != (b.Order == 0) {
			return a.Order != 0
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Key < b.Key
	})

	byIdentity := make(map[creature.Identity][]creature.Creature)
	for _, c := range live {
		if c.Trackable() {
			byIdentity[c.Identity()] = append(byIdentity[c.Identity()], c)
		}
	}

	var result LoadResult
	for _, e := range entries {
		matches := byIdentity[creature.Identity{Category: e.Category, LongID: e.Key}]
		if len(matches) == 0 {
			result.Skipped++
			continue
		}
		for _, c := range matches {
			if _, err := reg.AddCreature(c, live, e.Skin); err != nil {
				logger.Printf("persistence: could not restore %s: %v", c.Identity(), err)
				result.Skipped++
			}
		}
	}
	return result
}
