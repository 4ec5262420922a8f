package registry

import (
	"errors"
	"fmt"
	"maps"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
)

// State is a copy of the registry's tables, used by the persistence layer.
type State struct {
	Skins             map[creature.Identity]int
	AnimalLongToShort map[int64]int
	AnimalShortToLong map[int]int64
}

// State returns a copy of the registry's tables.
func (r *Registry) State() State {
	return State{
		Skins:             maps.Clone(r.skins),
		AnimalLongToShort: maps.Clone(r.longToShort),
		AnimalShortToLong: maps.Clone(r.shortToLong),
	}
}

// Restore replaces the registry's tables with a copy of s. When s is
// inconsistent the registry is left unchanged and the violations are
// returned.
func (r *Registry) Restore(s State) error {
	if err := s.Check(); err != nil {
		return err
	}
	r.skins = cloneOrEmpty(s.Skins)
	r.longToShort = cloneOrEmpty(s.AnimalLongToShort)
	r.shortToLong = cloneOrEmpty(s.AnimalShortToLong)
	return nil
}

func cloneOrEmpty[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return make(map[K]V)
	}
	return maps.Clone(m)
}

// CheckInvariants verifies the registry's tables are consistent.
func (r *Registry) CheckInvariants() error {
	return State{Skins: r.skins, AnimalLongToShort: r.longToShort, AnimalShortToLong: r.shortToLong}.Check()
}

// Check reports every violation of the table invariants: animal short id
// maps are inverses of each other, every animal with a skin has a short id
// and the reverse, short ids are positive, and horse and pet ids are
// positive and not reserved.
func (s State) Check() error {
	var errs []error
	if len(s.AnimalLongToShort) != len(s.AnimalShortToLong) {
		errs = append(errs, fmt.Errorf("animal id maps differ in size: %d long to short, %d short to long",
			len(s.AnimalLongToShort), len(s.AnimalShortToLong)))
	}
	for longID, shortID := range s.AnimalLongToShort {
		if shortID < 1 {
			errs = append(errs, fmt.Errorf("animal %d has short id %d", longID, shortID))
		}
		if back, ok := s.AnimalShortToLong[shortID]; !ok || back != longID {
			errs = append(errs, fmt.Errorf("animal short id %d does not map back to %d", shortID, longID))
		}
		if _, ok := s.Skins[creature.Identity{Category: creature.Animal, LongID: longID}]; !ok {
			errs = append(errs, fmt.Errorf("animal %d has a short id but no skin", longID))
		}
	}
	for shortID, longID := range s.AnimalShortToLong {
		if back, ok := s.AnimalLongToShort[longID]; !ok || back != shortID {
			errs = append(errs, fmt.Errorf("animal %d does not map back to short id %d", longID, shortID))
		}
	}
	for id := range s.Skins {
		switch {
		case !id.Category.Valid():
			errs = append(errs, fmt.Errorf("skin entry %d has invalid category %d", id.LongID, id.Category))
		case id.Category == creature.Animal:
			if _, ok := s.AnimalLongToShort[id.LongID]; !ok {
				errs = append(errs, fmt.Errorf("%s has a skin but no short id", id))
			}
		case id.LongID < 1 || creature.IsSentinelID(creature.Horse, id.LongID) || creature.IsSentinelID(creature.Pet, id.LongID):
			errs = append(errs, fmt.Errorf("%s uses a reserved or non-positive id", id))
		}
	}
	return errors.Join(errs...)
}
