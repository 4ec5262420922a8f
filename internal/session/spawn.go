package session

import (
	"fmt"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	apperrors "github.com/Gathouria/Adopt-Skin/internal/platform/errors"
)

// Spawn is an unadopted stray or wild horse and the skin it wears.
type Spawn struct {
	Creature creature.Creature
	SkinID   int
}

// DayReport tells which adoptable creatures spawned at the start of a day.
type DayReport struct {
	Stray     bool
	WildHorse bool
}

// DayStarted rolls for a stray and a wild horse. luck is the host's daily
// luck; positive luck raises the chances. A stray needs a first pet and a
// wild horse a first horse.
func (s *Session) DayStarted(luck float64) DayReport {
	var report DayReport
	if !s.loaded {
		return report
	}
	bonus := -int(luck * 100)
	if s.cfg.StrayAnimals && s.flags.FirstPetReceived && s.rng.IntN(100)+bonus < s.cfg.StrayChance {
		if _, err := s.SpawnStray(); err == nil {
			report.Stray = true
		} else {
			s.Detailf("session: no stray today: %v", err)
		}
	}
	if s.cfg.WildHorses && s.flags.FirstHorseReceived && s.rng.IntN(100)+bonus < s.cfg.WildHorseChance {
		if _, err := s.SpawnWildHorse(); err == nil {
			report.WildHorse = true
		} else {
			s.Detailf("session: no wild horse today: %v", err)
		}
	}
	return report
}

// DayEnding removes the stray and wild horse nobody adopted.
func (s *Session) DayEnding() {
	if s.stray != nil {
		s.host.Remove(s.stray.Creature)
		s.stray = nil
	}
	if s.wildHorse != nil {
		s.host.Remove(s.wildHorse.Creature)
		s.wildHorse = nil
	}
}

// Stray returns the current stray, if any.
func (s *Session) Stray() (Spawn, bool) {
	if s.stray == nil {
		return Spawn{}, false
	}
	return *s.stray, true
}

// WildHorse returns the current wild horse, if any.
func (s *Session) WildHorse() (Spawn, bool) {
	if s.wildHorse == nil {
		return Spawn{}, false
	}
	return *s.wildHorse, true
}

// SpawnStray places a stray pet of a random type and skin, replacing any
// earlier stray.
func (s *Session) SpawnStray() (Spawn, error) {
	spawn, err := s.spawn(creature.Pet, creature.StraySentinel, s.stray)
	if err != nil {
		return Spawn{}, err
	}
	s.stray = &spawn
	return spawn, nil
}

// SpawnWildHorse places a wild horse of a random type and skin, replacing
// any earlier wild horse.
func (s *Session) SpawnWildHorse() (Spawn, error) {
	spawn, err := s.spawn(creature.Horse, creature.WildHorseSentinel, s.wildHorse)
	if err != nil {
		return Spawn{}, err
	}
	s.wildHorse = &spawn
	return spawn, nil
}

func (s *Session) spawn(category creature.Category, sentinel int64, previous *Spawn) (Spawn, error) {
	if !s.loaded {
		return Spawn{}, ErrNotLoaded
	}
	var types []string
	for _, typ := range s.catalog.Types(category) {
		if s.catalog.VariantCount(typ) > 0 {
			types = append(types, typ)
		}
	}
	if len(types) == 0 {
		return Spawn{}, apperrors.WithMetadata(apperrors.CodeNoSkinsForType,
			fmt.Sprintf("no %s skins loaded", category),
			map[string]string{"Category": category.String()})
	}
	if previous != nil {
		s.host.Remove(previous.Creature)
	}

	typ := types[s.rng.IntN(len(types))]
	c := creature.Creature{Category: category, LongID: sentinel, Type: typ}
	skinID := s.catalog.RandomVariantID(typ, s.rng)
	v, _ := s.catalog.VariantAt(typ, skinID)
	s.host.Spawn(c, v)
	s.Detailf("session: spawned %s %s with skin %d", category, typ, skinID)
	return Spawn{Creature: c, SkinID: skinID}, nil
}

// AdoptStray registers the stray with the skin it wore and returns its new
// short id.
func (s *Session) AdoptStray(name string) (int, error) {
	shortID, err := s.adopt(s.stray, name)
	if err != nil {
		return 0, err
	}
	s.stray = nil
	return shortID, nil
}

// AdoptWildHorse registers the wild horse with the skin it wore and returns
// its new short id.
func (s *Session) AdoptWildHorse(name string) (int, error) {
	shortID, err := s.adopt(s.wildHorse, name)
	if err != nil {
		return 0, err
	}
	s.wildHorse = nil
	return shortID, nil
}

func (s *Session) adopt(spawn *Spawn, name string) (int, error) {
	if !s.loaded {
		return 0, ErrNotLoaded
	}
	if spawn == nil {
		return 0, apperrors.New(apperrors.CodeNotFound, "nothing to adopt")
	}
	c := spawn.Creature
	c.Name = name
	shortID, err := s.reg.AddCreature(c, s.host.Creatures(), spawn.SkinID)
	if err != nil {
		return 0, fmt.Errorf("adopt %s: %w", c.Category, err)
	}
	adopted := Registered(c, shortID)
	if v, ok := s.reg.GetSkin(adopted); ok {
		s.host.ApplySkin(adopted, v)
	}
	switch c.Category {
	case creature.Pet:
		s.flags.FirstPetReceived = true
	case creature.Horse:
		s.flags.FirstHorseReceived = true
	}
	s.logger.Printf("session: adopted %s %q as %s %d", c.Type, name, c.Category, shortID)
	return shortID, nil
}

// ClearUnowned removes every stray and wild horse in the world and returns
// how many there were.
func (s *Session) ClearUnowned() int {
	removed := 0
	for _, c := range s.host.Creatures() {
		if c.IsSentinel() {
			s.host.Remove(c)
			removed++
		}
	}
	s.stray = nil
	s.wildHorse = nil
	return removed
}
