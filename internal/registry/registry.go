// Package registry tracks which creatures are known to the mod, the short id
// players use to name each one, and the skin variant assigned to it.
//
// A Registry is created per session and driven from a single goroutine. It
// holds identities only, never host objects, and never enumerates the world
// itself: callers pass the live snapshot in.
package registry

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	"github.com/Gathouria/Adopt-Skin/internal/identity"
	apperrors "github.com/Gathouria/Adopt-Skin/internal/platform/errors"
	"github.com/Gathouria/Adopt-Skin/internal/skin"
)

var (
	// ErrNotRegistered is returned when mutating a creature that was never added.
	ErrNotRegistered = apperrors.New(apperrors.CodeCreatureNotRegistered, "creature is not registered")
	// ErrNoSkins is returned when a creature type has no skin variants loaded.
	ErrNoSkins = apperrors.New(apperrors.CodeNoSkinsForType, "no skins for creature type")
	// ErrInvalidCategory is returned for creatures outside the known categories.
	ErrInvalidCategory = apperrors.New(apperrors.CodeInvalidCategory, "invalid creature category")
)

// Catalog is the skin lookup the registry needs. *skin.Catalog satisfies it.
type Catalog interface {
	VariantCount(typ string) int
	VariantAt(typ string, id int) (skin.Variant, bool)
	RandomVariantID(typ string, rng skin.Rand) int
	SkinType(c creature.Creature) string
}

// ShortIDSetter mirrors a newly allocated horse or pet short id onto the
// host entity.
type ShortIDSetter interface {
	SetShortID(c creature.Creature, shortID int)
}

// ShortIDSetterFunc adapts a function to ShortIDSetter.
type ShortIDSetterFunc func(c creature.Creature, shortID int)

// SetShortID calls f.
func (f ShortIDSetterFunc) SetShortID(c creature.Creature, shortID int) {
	f(c, shortID)
}

// Registry is the per-session creature registry.
type Registry struct {
	catalog Catalog
	rng     skin.Rand
	logger  *log.Logger
	setter  ShortIDSetter

	skins       map[creature.Identity]int
	longToShort map[int64]int
	shortToLong map[int]int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger routes registry logging to logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithShortIDSetter sets the callback that mirrors horse and pet short ids
// onto host entities.
func WithShortIDSetter(setter ShortIDSetter) Option {
	return func(r *Registry) {
		r.setter = setter
	}
}

// New returns an empty registry picking skins from catalog with rng.
func New(catalog Catalog, rng skin.Rand, opts ...Option) *Registry {
	r := &Registry{
		catalog:     catalog,
		rng:         rng,
		logger:      log.Default(),
		skins:       make(map[creature.Identity]int),
		longToShort: make(map[int64]int),
		shortToLong: make(map[int]int64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddCreature registers c and returns its short id.
//
// Adding a registered creature changes nothing and returns its existing short
// id. live is the current world snapshot and seeds short id allocation.
// explicitSkin is stored as given when positive; otherwise a random variant
// is picked. When the catalog has no variants for the creature's type the call
// is a logged no-op returning ErrNoSkins.
func (r *Registry) AddCreature(c creature.Creature, live []creature.Creature, explicitSkin int) (int, error) {
	if !c.Category.Valid() {
		r.logger.Printf("registry: refusing creature %d with invalid category %d", c.LongID, c.Category)
		return 0, ErrInvalidCategory
	}
	if shortID, ok := r.ShortID(c.Category, c.LongID); ok {
		return shortID, nil
	}

	typ := r.catalog.SkinType(c)
	if r.catalog.VariantCount(typ) == 0 {
		r.logger.Printf("registry: no skins for type %q, %s not added", typ, c.Identity())
		return 0, apperrors.WithMetadata(ErrNoSkins.Code, fmt.Sprintf("no skins for creature type %q", typ), map[string]string{"Type": typ})
	}

	var (
		id      creature.Identity
		shortID int
	)
	switch c.Category {
	case creature.Animal:
		shortID = identity.NextUnused(r.animalUsedIDs(c, live))
		id = c.Identity()
		r.longToShort[c.LongID] = shortID
		r.shortToLong[shortID] = c.LongID
	default:
		shortID = identity.NextUnused(r.fieldUsedIDs(live))
		id = creature.Identity{Category: c.Category, LongID: int64(shortID)}
		if r.setter != nil {
			r.setter.SetShortID(c, shortID)
		}
	}

	skinID := explicitSkin
	if skinID <= 0 {
		skinID = r.catalog.RandomVariantID(typ, r.rng)
	}
	r.skins[id] = skinID
	r.logger.Printf("registry: added %s short id %d skin %d", id, shortID, skinID)
	return shortID, nil
}

// animalUsedIDs collects the short ids an animal must not take: every
// assigned animal short id plus the long ids of untracked live animals.
func (r *Registry) animalUsedIDs(c creature.Creature, live []creature.Creature) identity.Set {
	used := identity.NewSet()
	for shortID := range r.shortToLong {
		used.Add(shortID)
	}
	for _, other := range live {
		if other.Category != creature.Animal || other.LongID == c.LongID {
			continue
		}
		if _, tracked := r.longToShort[other.LongID]; tracked {
			continue
		}
		if other.LongID >= 1 && other.LongID <= math.MaxInt32 {
			used.Add(int(other.LongID))
		}
	}
	return used
}

// fieldUsedIDs collects the values a horse or pet id field must not take.
// Horses and pets share one namespace. Live sentinel entities are ignored
// and the sentinel values themselves stay reserved.
func (r *Registry) fieldUsedIDs(live []creature.Creature) identity.Set {
	used := identity.NewSet(int(creature.WildHorseSentinel), int(creature.StraySentinel))
	for id := range r.skins {
		if id.Category != creature.Animal {
			used.Add(int(id.LongID))
		}
	}
	for _, other := range live {
		if other.Category == creature.Animal || other.IsSentinel() {
			continue
		}
		if other.LongID >= 1 && other.LongID <= math.MaxInt32 {
			used.Add(int(other.LongID))
		}
	}
	return used
}

// RemoveCreature forgets the creature. Unknown creatures are ignored.
func (r *Registry) RemoveCreature(category creature.Category, longID int64) bool {
	id := creature.Identity{Category: category, LongID: longID}
	if _, ok := r.skins[id]; !ok {
		return false
	}
	delete(r.skins, id)
	if category == creature.Animal {
		if shortID, ok := r.longToShort[longID]; ok {
			delete(r.shortToLong, shortID)
		}
		delete(r.longToShort, longID)
	}
	r.logger.Printf("registry: removed %s", id)
	return true
}

// GetSkin returns the variant assigned to c.
//
// A stored id outside the range of c's current skin list is replaced by a
// random one, which is kept and logged as an alert. It returns false when c
// is not registered or its type has no variants.
func (r *Registry) GetSkin(c creature.Creature) (skin.Variant, bool) {
	id := c.Identity()
	skinID, ok := r.skins[id]
	if !ok {
		return skin.Variant{}, false
	}
	typ := r.catalog.SkinType(c)
	count := r.catalog.VariantCount(typ)
	if count == 0 {
		return skin.Variant{}, false
	}
	if skinID < 1 || skinID > count {
		repaired := r.catalog.RandomVariantID(typ, r.rng)
		r.logger.Printf("alert: %s had skin %d but %q has %d skins, reassigned skin %d", id, skinID, typ, count, repaired)
		r.skins[id] = repaired
		skinID = repaired
	}
	return r.catalog.VariantAt(typ, skinID)
}

// SetSkin stores variant for the creature without range checking it. An out
// of range value is repaired on the next GetSkin.
func (r *Registry) SetSkin(category creature.Category, longID int64, variant int) error {
	id := creature.Identity{Category: category, LongID: longID}
	if _, ok := r.skins[id]; !ok {
		return notRegistered(id)
	}
	r.skins[id] = variant
	return nil
}

// RandomizeSkin assigns c a new random variant and returns it.
func (r *Registry) RandomizeSkin(c creature.Creature) (int, error) {
	id := c.Identity()
	if _, ok := r.skins[id]; !ok {
		return 0, notRegistered(id)
	}
	typ := r.catalog.SkinType(c)
	skinID := r.catalog.RandomVariantID(typ, r.rng)
	if skinID == 0 {
		return 0, apperrors.WithMetadata(ErrNoSkins.Code, fmt.Sprintf("no skins for creature type %q", typ), map[string]string{"Type": typ})
	}
	r.skins[id] = skinID
	return skinID, nil
}

func notRegistered(id creature.Identity) error {
	return apperrors.WithMetadata(ErrNotRegistered.Code, fmt.Sprintf("%s is not registered", id), map[string]string{
		"Category": id.Category.String(),
		"LongID":   fmt.Sprint(id.LongID),
	})
}

// Diff is the result of comparing the registry against a live snapshot.
type Diff struct {
	Added   []int64
	Removed []int64
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Reconcile compares the registered ids of category with live and reports
// which live ids are unknown and which registered ids are gone. Both lists
// are sorted and free of duplicates. Reconcile changes nothing.
func (r *Registry) Reconcile(category creature.Category, live []int64) Diff {
	liveSet := make(map[int64]struct{}, len(live))
	var diff Diff
	for _, longID := range live {
		if _, seen := liveSet[longID]; seen {
			continue
		}
		liveSet[longID] = struct{}{}
		if _, ok := r.skins[creature.Identity{Category: category, LongID: longID}]; !ok {
			diff.Added = append(diff.Added, longID)
		}
	}
	for id := range r.skins {
		if id.Category != category {
			continue
		}
		if _, ok := liveSet[id.LongID]; !ok {
			diff.Removed = append(diff.Removed, id.LongID)
		}
	}
	sortIDs(diff.Added)
	sortIDs(diff.Removed)
	return diff
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Reset forgets every creature.
func (r *Registry) Reset() {
	clear(r.skins)
	clear(r.longToShort)
	clear(r.shortToLong)
}
