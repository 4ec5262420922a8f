package registry

import (
	"sort"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
)

// IsRegistered reports whether id is known.
func (r *Registry) IsRegistered(id creature.Identity) bool {
	_, ok := r.skins[id]
	return ok
}

// Categories returns the categories longID is registered under, in
// Horse, Pet, Animal order.
func (r *Registry) Categories(longID int64) []creature.Category {
	var out []creature.Category
	for _, category := range creature.Categories {
		if r.IsRegistered(creature.Identity{Category: category, LongID: longID}) {
			out = append(out, category)
		}
	}
	return out
}

// ShortID returns the short id of a registered creature.
func (r *Registry) ShortID(category creature.Category, longID int64) (int, bool) {
	if category == creature.Animal {
		shortID, ok := r.longToShort[longID]
		return shortID, ok
	}
	if !r.IsRegistered(creature.Identity{Category: category, LongID: longID}) {
		return 0, false
	}
	return int(longID), true
}

// LongID resolves a short id to the registered creature's long id.
func (r *Registry) LongID(category creature.Category, shortID int) (int64, bool) {
	if category == creature.Animal {
		longID, ok := r.shortToLong[shortID]
		return longID, ok
	}
	longID := int64(shortID)
	if !r.IsRegistered(creature.Identity{Category: category, LongID: longID}) {
		return 0, false
	}
	return longID, true
}

// SkinID returns the stored variant id, which may be out of range for the
// current catalog.
func (r *Registry) SkinID(id creature.Identity) (int, bool) {
	skinID, ok := r.skins[id]
	return skinID, ok
}

// Entry is one registered creature.
type Entry struct {
	Identity creature.Identity
	ShortID  int
	SkinID   int
}

// Entries returns the registered creatures of category ordered by short id.
func (r *Registry) Entries(category creature.Category) []Entry {
	var out []Entry
	for id, skinID := range r.skins {
		if id.Category != category {
			continue
		}
		shortID, _ := r.ShortID(id.Category, id.LongID)
		out = append(out, Entry{Identity: id, ShortID: shortID, SkinID: skinID})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShortID != out[j].ShortID {
			return out[i].ShortID < out[j].ShortID
		}
		return out[i].Identity.LongID < out[j].Identity.LongID
	})
	return out
}

// Len returns how many creatures are registered.
func (r *Registry) Len() int {
	return len(r.skins)
}
