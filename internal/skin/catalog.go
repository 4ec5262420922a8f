// Package skin holds the catalog of skin variants available per creature type.
//
// Skin files live in one directory and are named <type>_<id>.<ext>, for
// example whitechicken_3.png. Each type keeps its variants sorted by id, and a
// variant is addressed by its 1-based position in that list.
package skin

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
)

// Variant is one skin option for a creature type.
type Variant struct {
	CreatureType string
	ID           int
	AssetRef     string
}

// Rand is the random source used to pick variants. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Catalog maps sanitized creature types to their skin variants.
//
// A Catalog is owned by one session and is not safe for concurrent use.
type Catalog struct {
	logger   *log.Logger
	types    map[string]creature.Category
	variants map[string][]Variant
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger routes catalog logging to logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog returns an empty catalog with no registered types.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		logger:   log.Default(),
		types:    make(map[string]creature.Category),
		variants: make(map[string][]Variant),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterType makes typ a known creature type of the given category.
func (c *Catalog) RegisterType(category creature.Category, typ string) error {
	if !category.Valid() {
		return fmt.Errorf("register %q: invalid category %d", typ, category)
	}
	key := creature.Sanitize(typ)
	if key == "" {
		return fmt.Errorf("creature type is required")
	}
	if existing, ok := c.types[key]; ok && existing != category {
		return fmt.Errorf("register %q: already registered as %s", key, existing)
	}
	c.types[key] = category
	if _, ok := c.variants[key]; !ok {
		c.variants[key] = nil
	}
	return nil
}

// DefaultTypes lists the stock host creature types per category.
var DefaultTypes = map[creature.Category][]string{
	creature.Horse: {"horse"},
	creature.Pet:   {"cat", "dog"},
	creature.Animal: {
		"whitechicken", "brownchicken", "bluechicken", "voidchicken", "goldenchicken",
		"duck", "rabbit", "dinosaur",
		"whitecow", "browncow", "goat", "pig", "sheep", "ostrich",
		"babywhitechicken", "babybrownchicken", "babybluechicken", "babyvoidchicken", "babygoldenchicken",
		"babyduck", "babyrabbit",
		"babywhitecow", "babybrowncow", "babygoat", "babypig", "babysheep", "babyostrich",
		"shearedsheep",
	},
}

// RegisterDefaults registers DefaultTypes.
func (c *Catalog) RegisterDefaults() {
	for _, category := range creature.Categories {
		for _, typ := range DefaultTypes[category] {
			// Default names are sanitized and unique per category.
			_ = c.RegisterType(category, typ)
		}
	}
}

// HasType reports whether typ is registered.
func (c *Catalog) HasType(typ string) bool {
	_, ok := c.types[creature.Sanitize(typ)]
	return ok
}

// CategoryOf returns the category typ was registered under.
func (c *Catalog) CategoryOf(typ string) (creature.Category, bool) {
	category, ok := c.types[creature.Sanitize(typ)]
	return category, ok
}

// Types returns the registered types of category, sorted.
func (c *Catalog) Types(category creature.Category) []string {
	var out []string
	for typ, cat := range c.types {
		if cat == category {
			out = append(out, typ)
		}
	}
	sort.Strings(out)
	return out
}

// Add inserts v into the list for its type, keeping the list sorted by id.
func (c *Catalog) Add(v Variant) error {
	key := creature.Sanitize(v.CreatureType)
	if _, ok := c.types[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, key)
	}
	if v.ID < 1 {
		return fmt.Errorf("%w: %d", ErrSkinIDNotPositive, v.ID)
	}
	list := c.variants[key]
	i := sort.Search(len(list), func(i int) bool { return list[i].ID >= v.ID })
	if i < len(list) && list[i].ID == v.ID {
		return fmt.Errorf("%w: %s_%d", ErrDuplicateSkin, key, v.ID)
	}
	v.CreatureType = key
	list = append(list, Variant{})
	copy(list[i+1:], list[i:])
	list[i] = v
	c.variants[key] = list
	return nil
}

// Clear drops every loaded variant but keeps registered types.
func (c *Catalog) Clear() {
	for typ := range c.variants {
		c.variants[typ] = nil
	}
}

// VariantCount returns how many variants typ has.
func (c *Catalog) VariantCount(typ string) int {
	return len(c.variants[creature.Sanitize(typ)])
}

// VariantAt returns the id-th variant of typ. It returns false when id is
// outside [1, VariantCount(typ)].
func (c *Catalog) VariantAt(typ string, id int) (Variant, bool) {
	list := c.variants[creature.Sanitize(typ)]
	if id < 1 || id > len(list) {
		return Variant{}, false
	}
	return list[id-1], true
}

// RandomVariantID picks a variant id uniformly from [1, VariantCount(typ)].
// It returns 0 when typ has no variants.
func (c *Catalog) RandomVariantID(typ string, rng Rand) int {
	count := c.VariantCount(typ)
	if count == 0 {
		return 0
	}
	return rng.IntN(count) + 1
}

// SkinType returns the type whose skin list applies to cr. Animals that are
// babies or sheared use the baby or sheared list when it has any skins.
func (c *Catalog) SkinType(cr creature.Creature) string {
	typ := creature.Sanitize(cr.Type)
	if cr.Category != creature.Animal {
		return typ
	}
	switch {
	case cr.Baby && c.VariantCount("baby"+typ) > 0:
		return "baby" + typ
	case cr.Sheared && c.VariantCount("sheared"+typ) > 0:
		return "sheared" + typ
	default:
		return typ
	}
}

// assetNames lists the base file names of typ's variants.
func (c *Catalog) assetNames(typ string) []string {
	list := c.variants[typ]
	names := make([]string, 0, len(list))
	for _, v := range list {
		ref := v.AssetRef
		if i := strings.LastIndexAny(ref, `/\`); i >= 0 {
			ref = ref[i+1:]
		}
		names = append(names, ref)
	}
	sort.Strings(names)
	return names
}
