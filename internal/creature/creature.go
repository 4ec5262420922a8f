package creature

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category partitions tracked entities. Every entity keeps one category for
// its whole lifetime.
type Category uint8

const (
	// Horse is a rideable horse owned by the player.
	Horse Category = iota + 1
	// Pet is a cat, dog, or other registered pet type.
	Pet
	// Animal is a farm animal living in a coop or barn.
	Animal
)

// Categories lists every category in a stable order.
var Categories = []Category{Horse, Pet, Animal}

// Reserved long ids for unadopted entities.
const (
	WildHorseSentinel int64 = 3000
	StraySentinel     int64 = 8000
)

const tractorPrefix = "tractor/"

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case Horse:
		return "horse"
	case Pet:
		return "pet"
	case Animal:
		return "animal"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= Horse && c <= Animal
}

// ParseCategory resolves a category name, ignoring case and spaces.
func ParseCategory(value string) (Category, error) {
	switch Sanitize(value) {
	case "horse":
		return Horse, nil
	case "pet":
		return Pet, nil
	case "animal":
		return Animal, nil
	default:
		return 0, fmt.Errorf("unknown creature category %q", value)
	}
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid creature category %d", c)
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalJSON accepts either a category name or the ordinal written by older
// saves, where 0 is horse, 1 is pet, and 2 is animal.
func (c *Category) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return c.UnmarshalText([]byte(name))
	}
	ordinal, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("decode creature category %s: %w", data, err)
	}
	switch ordinal {
	case 0:
		*c = Horse
	case 1:
		*c = Pet
	case 2:
		*c = Animal
	default:
		return fmt.Errorf("unknown creature category ordinal %d", ordinal)
	}
	return nil
}

// Identity addresses one tracked entity.
type Identity struct {
	Category Category
	LongID   int64
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%d", id.Category, id.LongID)
}

// Creature is the host-agnostic view of one live entity.
type Creature struct {
	Category Category
	// LongID is the host id for animals and the current value of the
	// repurposed id field for horses and pets (0 when never assigned).
	LongID int64
	// Type is the sanitized creature type, such as "whitechicken" or "cat".
	Type string
	Name string

	// Baby and Sheared select the animal sprite sub-type when the catalog
	// carries a dedicated skin list for it.
	Baby    bool
	Sheared bool
	// Coop marks animals living in a coop rather than a barn.
	Coop bool
}

// Identity returns the registry key for c.
func (c Creature) Identity() Identity {
	return Identity{Category: c.Category, LongID: c.LongID}
}

// IsSentinel reports whether c is the unadopted stray or wild horse.
func (c Creature) IsSentinel() bool {
	switch c.Category {
	case Horse:
		return c.LongID == WildHorseSentinel
	case Pet:
		return c.LongID == StraySentinel
	default:
		return false
	}
}

// IsTractor reports whether c is a horse entity standing in for a tractor.
func (c Creature) IsTractor() bool {
	return c.Category == Horse && strings.HasPrefix(c.Name, tractorPrefix)
}

// Trackable reports whether c may enter the registry during reconciliation.
func (c Creature) Trackable() bool {
	return c.Category.Valid() && !c.IsSentinel() && !c.IsTractor()
}

// IsSentinelID reports whether id is reserved in the given category.
func IsSentinelID(category Category, id int64) bool {
	return Creature{Category: category, LongID: id}.IsSentinel()
}

// Sanitize normalizes a creature type or file name part into a lookup key:
// lowercased with all whitespace removed.
func Sanitize(value string) string {
	// Casers keep state between calls, so each call gets its own.
	lowered := cases.Lower(language.Und).String(value)
	return strings.Join(strings.Fields(lowered), "")
}

// Of returns the creatures in list that belong to category.
func Of(list []Creature, category Category) []Creature {
	out := make([]Creature, 0, len(list))
	for _, c := range list {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}
