package command

import (
	"fmt"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	"github.com/Gathouria/Adopt-Skin/internal/session"
)

func (c *Console) debugReset([]string) error {
	added, err := c.session.Reset()
	if err != nil {
		return fmt.Errorf("reset registry: %w", err)
	}
	c.printf("registry reset, %d creatures registered", added)
	return nil
}

func (c *Console) debugIDMaps([]string) error {
	reg := c.session.Registry()
	for _, category := range creature.Categories {
		entries := reg.Entries(category)
		c.printf("%s: %d registered", category, len(entries))
		for _, entry := range entries {
			c.printf("  short %d <-> long %d", entry.ShortID, entry.Identity.LongID)
		}
	}
	return nil
}

func (c *Console) debugSkinMaps([]string) error {
	reg := c.session.Registry()
	for _, category := range creature.Categories {
		for _, entry := range reg.Entries(category) {
			c.printf("%s %d: skin %d", category, entry.ShortID, entry.SkinID)
		}
	}
	return nil
}

func (c *Console) debugPets([]string) error {
	return c.debugCategory(creature.Pet)
}

func (c *Console) debugHorses([]string) error {
	return c.debugCategory(creature.Horse)
}

// debugCategory prints every live creature of category, including the ones
// the registry does not track.
func (c *Console) debugCategory(category creature.Category) error {
	reg := c.session.Registry()
	count := 0
	for _, cr := range creature.Of(c.session.Host().Creatures(), category) {
		state := "untracked"
		switch {
		case cr.IsSentinel():
			state = "unadopted"
		case cr.IsTractor():
			state = "tractor"
		case reg.IsRegistered(cr.Identity()):
			skinID, _ := reg.SkinID(cr.Identity())
			state = fmt.Sprintf("skin %d", skinID)
		}
		c.printf("%s id %d: %q (%s) %s", category, cr.LongID, cr.Name, creature.Sanitize(cr.Type), state)
		count++
	}
	if count == 0 {
		c.printf("no %ss", category)
	}
	return nil
}

func (c *Console) debugFind(args []string) error {
	t, err := c.resolve(args, creature.Categories)
	if err != nil {
		return err
	}
	reg := c.session.Registry()
	skinID, _ := reg.SkinID(t.creature.Identity())
	typ := c.session.Catalog().SkinType(t.creature)
	c.printf("%s %d: long id %d, %q (%s), skin %d of %d",
		t.creature.Category, t.shortID, t.creature.LongID, t.creature.Name, typ, skinID, c.session.Catalog().VariantCount(typ))
	return nil
}

func (c *Console) summonStray([]string) error {
	spawn, err := c.session.SpawnStray()
	if err != nil {
		return fmt.Errorf("summon stray: %w", err)
	}
	c.printSpawn(spawn)
	return nil
}

func (c *Console) summonHorse([]string) error {
	spawn, err := c.session.SpawnWildHorse()
	if err != nil {
		return fmt.Errorf("summon wild horse: %w", err)
	}
	c.printSpawn(spawn)
	return nil
}

func (c *Console) printSpawn(spawn session.Spawn) {
	c.printf("spawned a %s wearing skin %d", spawn.Creature.Type, spawn.SkinID)
}

func (c *Console) debugClearUnowned([]string) error {
	c.printf("removed %d unowned creatures", c.session.ClearUnowned())
	return nil
}
