package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	apperrors "github.com/Gathouria/Adopt-Skin/internal/platform/errors"
	"github.com/Gathouria/Adopt-Skin/internal/registry"
)

// groups are the list_creatures filters besides creature type names.
var groups = map[string]func(creature.Creature) bool{
	"all":     func(creature.Creature) bool { return true },
	"horse":   func(c creature.Creature) bool { return c.Category == creature.Horse },
	"pet":     func(c creature.Creature) bool { return c.Category == creature.Pet },
	"animal":  func(c creature.Creature) bool { return c.Category == creature.Animal },
	"coop":    func(c creature.Creature) bool { return c.Category == creature.Animal && c.Coop },
	"barn":    func(c creature.Creature) bool { return c.Category == creature.Animal && !c.Coop },
	"chicken": animalNamed("chicken"),
	"cow":     animalNamed("cow"),
}

func animalNamed(part string) func(creature.Creature) bool {
	return func(c creature.Creature) bool {
		return c.Category == creature.Animal && strings.Contains(creature.Sanitize(c.Type), part)
	}
}

// target is a registered creature resolved from command arguments.
type target struct {
	creature creature.Creature
	shortID  int
}

// registered returns every registered creature that is alive, in category
// then short id order.
func (c *Console) registered() []target {
	live := make(map[creature.Identity]creature.Creature)
	for _, cr := range c.session.Host().Creatures() {
		if cr.Trackable() {
			live[cr.Identity()] = cr
		}
	}
	reg := c.session.Registry()
	var out []target
	for _, category := range creature.Categories {
		for _, entry := range reg.Entries(category) {
			if cr, ok := live[entry.Identity]; ok {
				out = append(out, target{creature: cr, shortID: entry.ShortID})
			}
		}
	}
	return out
}

func (c *Console) listCreatures(args []string) error {
	group := "all"
	if len(args) == 1 {
		group = creature.Sanitize(args[0])
	}
	match, ok := groups[group]
	if !ok {
		catalog := c.session.Catalog()
		if !catalog.HasType(group) {
			return c.unknownGroup(group)
		}
		match = func(cr creature.Creature) bool {
			return creature.Sanitize(cr.Type) == group || catalog.SkinType(cr) == group
		}
	}

	reg := c.session.Registry()
	listed := 0
	for _, t := range c.registered() {
		if !match(t.creature) {
			continue
		}
		skinID, _ := reg.SkinID(t.creature.Identity())
		c.printf("%s %d: %q (%s) skin %d", t.creature.Category, t.shortID, t.creature.Name, creature.Sanitize(t.creature.Type), skinID)
		listed++
	}
	if listed == 0 {
		c.printf("no %s creatures", group)
	}
	return nil
}

func (c *Console) unknownGroup(group string) error {
	candidates := make([]string, 0, len(groups))
	for name := range groups {
		candidates = append(candidates, name)
	}
	for _, category := range creature.Categories {
		candidates = append(candidates, c.session.Catalog().Types(category)...)
	}
	sort.Strings(candidates)

	message := fmt.Sprintf("unknown creature group or type %q", group)
	metadata := map[string]string{"Group": group}
	if suggestion, ok := suggest(group, candidates); ok {
		message += fmt.Sprintf(", did you mean %q?", suggestion)
		metadata["Suggestion"] = suggestion
	}
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, message, metadata)
}

// resolve finds the live creature named by [category] <short id>. Without a
// category every category in search is tried, and a short id that matches in
// more than one of them is ambiguous.
func (c *Console) resolve(args []string, search []creature.Category) (target, error) {
	if len(args) == 2 {
		category, err := creature.ParseCategory(args[0])
		if err != nil {
			return target{}, apperrors.Wrap(apperrors.CodeInvalidCategory, fmt.Sprintf("unknown category %q", args[0]), err)
		}
		search = []creature.Category{category}
	}
	raw := args[len(args)-1]
	shortID, err := strconv.Atoi(raw)
	if err != nil || shortID < 1 {
		return target{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("short id must be a positive number, got %q", raw),
			map[string]string{"ShortID": raw})
	}

	reg := c.session.Registry()
	var found []creature.Identity
	for _, category := range search {
		if longID, ok := reg.LongID(category, shortID); ok {
			found = append(found, creature.Identity{Category: category, LongID: longID})
		}
	}
	switch {
	case len(found) > 1:
		names := make([]string, 0, len(found))
		for _, id := range found {
			names = append(names, id.Category.String())
		}
		return target{}, apperrors.WithMetadata(apperrors.CodeCreatureAmbiguous,
			fmt.Sprintf("short id %d matches more than one category (%s), name the category", shortID, strings.Join(names, ", ")),
			map[string]string{"ShortID": raw})
	case len(found) == 0:
		return target{}, notFound(search, shortID)
	}

	cr, ok := c.session.Find(found[0])
	if !ok {
		return target{}, notFound(search, shortID)
	}
	return target{creature: cr, shortID: shortID}, nil
}

func notFound(search []creature.Category, shortID int) error {
	names := make([]string, 0, len(search))
	for _, category := range search {
		names = append(names, category.String())
	}
	return apperrors.WithMetadata(apperrors.CodeCreatureNotFound,
		fmt.Sprintf("no %s with short id %d", strings.Join(names, " or "), shortID),
		map[string]string{"ShortID": strconv.Itoa(shortID)})
}

// apply pushes the registered skin of cr to the host.
func (c *Console) apply(cr creature.Creature) {
	if v, ok := c.session.Registry().GetSkin(cr); ok {
		c.session.Host().ApplySkin(cr, v)
	}
}

func (c *Console) setSkin(args []string) error {
	skinID, err := strconv.Atoi(args[0])
	if err != nil {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("skin id must be a number, got %q", args[0]),
			map[string]string{"SkinID": args[0]})
	}
	t, err := c.resolve(args[1:], creature.Categories)
	if err != nil {
		return err
	}

	typ := c.session.Catalog().SkinType(t.creature)
	count := c.session.Catalog().VariantCount(typ)
	if skinID < 1 || skinID > count {
		return apperrors.WithMetadata(apperrors.CodeSkinOutOfRange,
			fmt.Sprintf("skin %d is out of range, %s has skins 1 to %d", skinID, typ, count),
			map[string]string{"SkinID": args[0], "Type": typ, "Count": strconv.Itoa(count)})
	}
	if err := c.session.Registry().SetSkin(t.creature.Category, t.creature.LongID, skinID); err != nil {
		return fmt.Errorf("set skin: %w", err)
	}
	c.apply(t.creature)
	c.printf("%s %d %q now wears %s skin %d", t.creature.Category, t.shortID, t.creature.Name, typ, skinID)
	return nil
}

func (c *Console) randomizeSkin(args []string) error {
	t, err := c.resolve(args, creature.Categories)
	if err != nil {
		return err
	}
	skinID, err := c.session.Registry().RandomizeSkin(t.creature)
	if err != nil {
		return fmt.Errorf("randomize skin: %w", err)
	}
	c.apply(t.creature)
	c.printf("%s %d %q now wears skin %d", t.creature.Category, t.shortID, t.creature.Name, skinID)
	return nil
}

func (c *Console) randomizeAllSkins([]string) error {
	reg := c.session.Registry()
	changed := 0
	for _, t := range c.registered() {
		if _, err := reg.RandomizeSkin(t.creature); err != nil {
			if apperrors.CodeOf(err) == registry.ErrNoSkins.Code {
				continue
			}
			return fmt.Errorf("randomize skin of %s: %w", t.creature.Identity(), err)
		}
		c.apply(t.creature)
		changed++
	}
	c.printf("randomized %d skins", changed)
	return nil
}

func (c *Console) sell(args []string) error {
	t, err := c.resolve(args, []creature.Category{creature.Horse, creature.Pet})
	if err != nil {
		return err
	}
	sold, err := c.session.Sell(t.creature.Identity())
	if err != nil {
		return err
	}
	c.printf("sold %s %d %q", sold.Category, t.shortID, sold.Name)
	return nil
}
