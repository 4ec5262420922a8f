package registry

import (
	"errors"
	"io"
	"log"
	"math/rand/v2"
	"testing"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	apperrors "github.com/Gathouria/Adopt-Skin/internal/platform/errors"
	"github.com/Gathouria/Adopt-Skin/internal/random"
	"github.com/Gathouria/Adopt-Skin/internal/skin"
)

func newCatalog(t *testing.T, counts map[string]int) *skin.Catalog {
	t.Helper()
	c := skin.NewCatalog(skin.WithLogger(log.New(io.Discard, "", 0)))
	c.RegisterDefaults()
	for typ, n := range counts {
		for i := 1; i <= n; i++ {
			if err := c.Add(skin.Variant{CreatureType: typ, ID: i, AssetRef: typ}); err != nil {
				t.Fatalf("add %s_%d: %v", typ, i, err)
			}
		}
	}
	return c
}

func newRegistry(catalog Catalog, opts ...Option) *Registry {
	opts = append([]Option{WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return New(catalog, random.New(7), opts...)
}

func chicken(longID int64) creature.Creature {
	return creature.Creature{Category: creature.Animal, LongID: longID, Type: "whitechicken"}
}

func TestChickenScenario(t *testing.T) {
	catalog := newCatalog(t, map[string]int{"whitechicken": 3})
	reg := newRegistry(catalog)
	c := chicken(77)

	if _, err := reg.AddCreature(c, []creature.Creature{c}, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	skinID, ok := reg.SkinID(c.Identity())
	if !ok || skinID < 1 || skinID > 3 {
		t.Fatalf("skin = %d, %v, want in [1,3]", skinID, ok)
	}

	if err := reg.SetSkin(creature.Animal, 77, 2); err != nil {
		t.Fatalf("set skin: %v", err)
	}
	v, ok := reg.GetSkin(c)
	if !ok || v.ID != 2 {
		t.Fatalf("get skin = %+v, %v, want variant 2", v, ok)
	}

	catalog.Clear()
	if err := catalog.Add(skin.Variant{CreatureType: "whitechicken", ID: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	v, ok = reg.GetSkin(c)
	if !ok || v.ID != 1 {
		t.Fatalf("get skin after shrink = %+v, %v, want variant 1", v, ok)
	}
	if got, _ := reg.SkinID(c.Identity()); got != 1 {
		t.Fatalf("stored skin = %d, want 1", got)
	}
}

func TestAddCreatureIsIdempotent(t *testing.T) {
	reg := newRegistry(newCatalog(t, map[string]int{"whitechicken": 5}))
	c := chicken(10)

	first, err := reg.AddCreature(c, nil, 0)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	before := reg.State()
	second, err := reg.AddCreature(c, nil, 4)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if first != second {
		t.Fatalf("short id changed: %d -> %d", first, second)
	}
	after := reg.State()
	if len(after.Skins) != 1 || after.Skins[c.Identity()] != before.Skins[c.Identity()] {
		t.Fatalf("state changed: %+v -> %+v", before, after)
	}
}

func TestGetSkinRepairConverges(t *testing.T) {
	catalog := newCatalog(t, map[string]int{"whitechicken": 4})
	reg := newRegistry(catalog)
	c := chicken(3)
	if _, err := reg.AddCreature(c, nil, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := reg.SetSkin(creature.Animal, 3, catalog.VariantCount("whitechicken")+5); err != nil {
		t.Fatalf("set skin: %v", err)
	}

	first, ok := reg.GetSkin(c)
	if !ok || first.ID < 1 || first.ID > 4 {
		t.Fatalf("repaired skin = %+v, %v", first, ok)
	}
	for i := 0; i < 5; i++ {
		again, ok := reg.GetSkin(c)
		if !ok || again.ID != first.ID {
			t.Fatalf("read %d = %+v, want %d", i, again, first.ID)
		}
	}
}

func TestGetSkinUsesSubTypeList(t *testing.T) {
	catalog := newCatalog(t, map[string]int{"sheep": 4, "babysheep": 1})
	reg := newRegistry(catalog)
	lamb := creature.Creature{Category: creature.Animal, LongID: 9, Type: "sheep", Baby: true}
	if _, err := reg.AddCreature(lamb, nil, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got, _ := reg.SkinID(lamb.Identity()); got != 1 {
		t.Fatalf("baby skin = %d, want 1", got)
	}

	adult := lamb
	adult.Baby = false
	if err := reg.SetSkin(creature.Animal, 9, 4); err != nil {
		t.Fatalf("set skin: %v", err)
	}
	if v, ok := reg.GetSkin(adult); !ok || v.ID != 4 || v.CreatureType != "sheep" {
		t.Fatalf("adult skin = %+v, %v", v, ok)
	}
	// Still a baby: 4 is out of range for the single baby skin.
	if v, ok := reg.GetSkin(lamb); !ok || v.ID != 1 || v.CreatureType != "babysheep" {
		t.Fatalf("baby skin = %+v, %v", v, ok)
	}
}

func TestRemoveThenReconcileReportsAdded(t *testing.T) {
	reg := newRegistry(newCatalog(t, map[string]int{"whitechicken": 2}))
	c := chicken(42)
	if _, err := reg.AddCreature(c, nil, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !reg.RemoveCreature(creature.Animal, 42) {
		t.Fatal("remove returned false")
	}
	if reg.RemoveCreature(creature.Animal, 42) {
		t.Fatal("second remove returned true")
	}

	diff := reg.Reconcile(creature.Animal, []int64{42})
	if len(diff.Added) != 1 || diff.Added[0] != 42 || len(diff.Removed) != 0 {
		t.Fatalf("diff = %+v", diff)
	}
	if _, ok := reg.ShortID(creature.Animal, 42); ok {
		t.Fatal("short id survived removal")
	}
}

func TestReconcile(t *testing.T) {
	reg := newRegistry(newCatalog(t, map[string]int{"whitechicken": 2}))
	for _, id := range []int64{5, 1, 9} {
		if _, err := reg.AddCreature(chicken(id), nil, 0); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}
	before := reg.State()

	diff := reg.Reconcile(creature.Animal, []int64{12, 5, 7, 12, 5})
	if got, want := diff.Added, []int64{7, 12}; !equalIDs(got, want) {
		t.Fatalf("added = %v, want %v", got, want)
	}
	if got, want := diff.Removed, []int64{1, 9}; !equalIDs(got, want) {
		t.Fatalf("removed = %v, want %v", got, want)
	}
	if len(reg.State().Skins) != len(before.Skins) {
		t.Fatal("reconcile mutated the registry")
	}
	if d := reg.Reconcile(creature.Pet, nil); !d.Empty() {
		t.Fatalf("pet diff = %+v, want empty", d)
	}
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAnimalShortIDsAvoidUntrackedLongIDs(t *testing.T) {
	reg := newRegistry(newCatalog(t, map[string]int{"whitechicken": 2}))
	live := []creature.Creature{chicken(1), chicken(2), chicken(500)}

	shortID, err := reg.AddCreature(chicken(500), live, 0)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if shortID != 3 {
		t.Fatalf("short id = %d, want 3", shortID)
	}
	if longID, ok := reg.LongID(creature.Animal, 3); !ok || longID != 500 {
		t.Fatalf("long id = %d, %v", longID, ok)
	}
}

func TestHorseAndPetShareFieldNamespace(t *testing.T) {
	var mirrored []int
	setter := ShortIDSetterFunc(func(_ creature.Creature, id int) { mirrored = append(mirrored, id) })
	reg := newRegistry(newCatalog(t, map[string]int{"cat": 2, "horse": 2}), WithShortIDSetter(setter))

	cat := creature.Creature{Category: creature.Pet, LongID: 0, Type: "cat"}
	live := []creature.Creature{
		cat,
		{Category: creature.Pet, LongID: 1, Type: "dog"},
		{Category: creature.Horse, LongID: 2, Type: "horse"},
		{Category: creature.Pet, LongID: creature.StraySentinel, Type: "cat"},
		{Category: creature.Animal, LongID: 3, Type: "pig"},
	}
	shortID, err := reg.AddCreature(cat, live, 0)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if shortID != 3 {
		t.Fatalf("short id = %d, want 3", shortID)
	}
	if len(mirrored) != 1 || mirrored[0] != 3 {
		t.Fatalf("mirrored = %v, want [3]", mirrored)
	}
	if !reg.IsRegistered(creature.Identity{Category: creature.Pet, LongID: 3}) {
		t.Fatal("pet 3 not registered")
	}

	horse := creature.Creature{Category: creature.Horse, LongID: 0, Type: "horse"}
	shortID, err = reg.AddCreature(horse, live, 0)
	if err != nil {
		t.Fatalf("add horse: %v", err)
	}
	if shortID != 4 {
		t.Fatalf("horse short id = %d, want 4", shortID)
	}
	if got := reg.Categories(4); len(got) != 1 || got[0] != creature.Horse {
		t.Fatalf("categories(4) = %v", got)
	}
}

func TestAddCreatureWithoutSkinsIsNoop(t *testing.T) {
	reg := newRegistry(newCatalog(t, nil))
	_, err := reg.AddCreature(chicken(1), nil, 0)
	if !errors.Is(err, ErrNoSkins) {
		t.Fatalf("err = %v, want ErrNoSkins", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("len = %d, want 0", reg.Len())
	}
	if _, err := reg.AddCreature(creature.Creature{LongID: 1}, nil, 0); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("err = %v, want ErrInvalidCategory", err)
	}
}

func TestExplicitSkinStoredAsGiven(t *testing.T) {
	reg := newRegistry(newCatalog(t, map[string]int{"whitechicken": 2}))
	if _, err := reg.AddCreature(chicken(1), nil, 9); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got, _ := reg.SkinID(chicken(1).Identity()); got != 9 {
		t.Fatalf("skin = %d, want 9", got)
	}
}

func TestMutatingUnregisteredCreatureFails(t *testing.T) {
	reg := newRegistry(newCatalog(t, map[string]int{"whitechicken": 2}))

	err := reg.SetSkin(creature.Animal, 5, 1)
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("set skin err = %v, want ErrNotRegistered", err)
	}
	if code := apperrors.CodeOf(err); code != apperrors.CodeCreatureNotRegistered {
		t.Fatalf("code = %s", code)
	}
	if _, err := reg.RandomizeSkin(chicken(5)); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("randomize err = %v, want ErrNotRegistered", err)
	}
	if _, ok := reg.GetSkin(chicken(5)); ok {
		t.Fatal("get skin found an unregistered creature")
	}
}

func TestRandomizeSkin(t *testing.T) {
	reg := newRegistry(newCatalog(t, map[string]int{"whitechicken": 3}))
	c := chicken(1)
	if _, err := reg.AddCreature(c, nil, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	for i := 0; i < 20; i++ {
		skinID, err := reg.RandomizeSkin(c)
		if err != nil {
			t.Fatalf("randomize: %v", err)
		}
		if stored, _ := reg.SkinID(c.Identity()); stored != skinID || skinID < 1 || skinID > 3 {
			t.Fatalf("skin = %d stored %d", skinID, stored)
		}
	}
}

func TestAnimalMapsStayInverse(t *testing.T) {
	reg := newRegistry(newCatalog(t, map[string]int{"whitechicken": 3}))
	rng := rand.New(rand.NewPCG(11, 13))
	var live []creature.Creature

	for step := 0; step < 500; step++ {
		longID := int64(rng.IntN(40) + 1)
		if rng.IntN(3) == 0 {
			reg.RemoveCreature(creature.Animal, longID)
		} else {
			live = append(live, chicken(longID))
			if _, err := reg.AddCreature(chicken(longID), live, 0); err != nil {
				t.Fatalf("step %d add: %v", step, err)
			}
		}

		s := reg.State()
		if len(s.AnimalLongToShort) != len(s.AnimalShortToLong) {
			t.Fatalf("step %d: map sizes %d != %d", step, len(s.AnimalLongToShort), len(s.AnimalShortToLong))
		}
		for id, shortID := range s.AnimalLongToShort {
			if s.AnimalShortToLong[shortID] != id {
				t.Fatalf("step %d: %d -> %d -> %d", step, id, shortID, s.AnimalShortToLong[shortID])
			}
		}
		if err := reg.CheckInvariants(); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
	}
}

func TestRestoreRejectsInconsistentState(t *testing.T) {
	reg := newRegistry(newCatalog(t, map[string]int{"whitechicken": 3}))
	if _, err := reg.AddCreature(chicken(1), nil, 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	tests := []struct {
		name  string
		state State
	}{
		{
			name: "short id maps disagree",
			state: State{
				Skins:             map[creature.Identity]int{{Category: creature.Animal, LongID: 5}: 1},
				AnimalLongToShort: map[int64]int{5: 1},
				AnimalShortToLong: map[int]int64{1: 6},
			},
		},
		{
			name: "animal without short id",
			state: State{
				Skins: map[creature.Identity]int{{Category: creature.Animal, LongID: 5}: 1},
			},
		},
		{
			name: "reserved pet id",
			state: State{
				Skins: map[creature.Identity]int{{Category: creature.Pet, LongID: creature.StraySentinel}: 1},
			},
		},
		{
			name: "invalid category",
			state: State{
				Skins: map[creature.Identity]int{{LongID: 2}: 1},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := reg.Restore(tc.state); err == nil {
				t.Fatal("expected error")
			}
			if reg.Len() != 1 || !reg.IsRegistered(chicken(1).Identity()) {
				t.Fatal("registry changed after rejected restore")
			}
		})
	}
}

func TestStateRoundTrip(t *testing.T) {
	catalog := newCatalog(t, map[string]int{"whitechicken": 3, "dog": 2})
	reg := newRegistry(catalog)
	if _, err := reg.AddCreature(chicken(100), nil, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := reg.AddCreature(creature.Creature{Category: creature.Pet, Type: "dog"}, nil, 1); err != nil {
		t.Fatalf("add pet: %v", err)
	}

	state := reg.State()
	other := newRegistry(catalog)
	if err := other.Restore(state); err != nil {
		t.Fatalf("restore: %v", err)
	}
	state.Skins[chicken(100).Identity()] = 3
	if got, _ := other.SkinID(chicken(100).Identity()); got != 2 {
		t.Fatalf("restored registry shares maps with the state: skin %d", got)
	}
	if entries := other.Entries(creature.Pet); len(entries) != 1 || entries[0].ShortID != 1 || entries[0].SkinID != 1 {
		t.Fatalf("pet entries = %+v", entries)
	}

	other.Reset()
	if other.Len() != 0 {
		t.Fatalf("len after reset = %d", other.Len())
	}
}
