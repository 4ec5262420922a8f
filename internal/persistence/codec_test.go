package persistence

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	"github.com/Gathouria/Adopt-Skin/internal/random"
	"github.com/Gathouria/Adopt-Skin/internal/registry"
	"github.com/Gathouria/Adopt-Skin/internal/skin"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newCatalog(t *testing.T) *skin.Catalog {
	t.Helper()
	c := skin.NewCatalog(skin.WithLogger(quietLogger()))
	c.RegisterDefaults()
	for _, typ := range []string{"whitechicken", "cat", "dog", "horse"} {
		for i := 1; i <= 5; i++ {
			if err := c.Add(skin.Variant{CreatureType: typ, ID: i}); err != nil {
				t.Fatalf("add %s_%d: %v", typ, i, err)
			}
		}
	}
	return c
}

// renumbering records the short ids the registry mirrors onto horses and pets.
type renumbering map[creature.Identity]int

func (r renumbering) SetShortID(c creature.Creature, shortID int) {
	r[c.Identity()] = shortID
}

func newRegistry(catalog *skin.Catalog, setter registry.ShortIDSetter) *registry.Registry {
	opts := []registry.Option{registry.WithLogger(quietLogger())}
	if setter != nil {
		opts = append(opts, registry.WithShortIDSetter(setter))
	}
	return registry.New(catalog, random.New(3), opts...)
}

func chicken(longID int64) creature.Creature {
	return creature.Creature{Category: creature.Animal, LongID: longID, Type: "whitechicken"}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	store := NewMemoryStore()
	codec := NewCodec(store, WithLogger(quietLogger()))

	reg := newRegistry(catalog, nil)
	for i, c := range []creature.Creature{chicken(900001), chicken(900002)} {
		if _, err := reg.AddCreature(c, nil, i+2); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if _, err := reg.AddCreature(creature.Creature{Category: creature.Pet, Type: "cat"}, nil, 4); err != nil {
		t.Fatalf("add pet: %v", err)
	}
	if _, err := reg.AddCreature(creature.Creature{Category: creature.Horse, Type: "horse"}, nil, 5); err != nil {
		t.Fatalf("add horse: %v", err)
	}

	flags := Flags{FirstPetReceived: true}
	if err := codec.Save(ctx, reg, flags); err != nil {
		t.Fatalf("save: %v", err)
	}

	var version string
	if ok, err := store.Read(ctx, KeyDataVersion, &version); err != nil || !ok || version != DataVersion {
		t.Fatalf("data version = %q, %v, %v", version, ok, err)
	}
	var categories map[string]string
	if _, err := store.Read(ctx, KeyIDToCategory, &categories); err != nil {
		t.Fatalf("read categories: %v", err)
	}
	want := map[string]string{"900001": "animal", "900002": "animal", "1": "pet", "2": "horse"}
	if len(categories) != len(want) {
		t.Fatalf("categories = %v, want %v", categories, want)
	}
	for key, value := range want {
		if categories[key] != value {
			t.Fatalf("categories[%s] = %q, want %q", key, categories[key], value)
		}
	}

	loaded := newRegistry(catalog, nil)
	result, err := codec.Load(ctx, loaded, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.Strategy != "current" || result.Restored != 4 || result.Rebuilt || result.Flags != flags {
		t.Fatalf("result = %+v", result)
	}
	for id, skinID := range reg.State().Skins {
		if got, ok := loaded.SkinID(id); !ok || got != skinID {
			t.Fatalf("%s skin = %d, %v, want %d", id, got, ok, skinID)
		}
	}
	if err := loaded.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestLoadMigratesLegacyLayout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	legacy := map[string]map[int64]int{
		KeyLegacyAnimalSkinMap: {700001: 1, 700002: 3, 700003: 5},
		KeyLegacyPetSkinMap:    {1: 2, 2: 4},
		KeyLegacyHorseSkinMap:  {3: 1},
	}
	for key, m := range legacy {
		if err := store.Write(ctx, key, m); err != nil {
			t.Fatalf("write %s: %v", key, err)
		}
	}
	if err := store.Write(ctx, KeyAnimalLongToShort, map[int64]int{700001: 2, 700002: 1, 700003: 3}); err != nil {
		t.Fatalf("write short ids: %v", err)
	}

	live := []creature.Creature{
		chicken(700001), chicken(700002), chicken(700003),
		{Category: creature.Pet, LongID: 1, Type: "cat"},
		{Category: creature.Pet, LongID: 2, Type: "dog"},
		{Category: creature.Horse, LongID: 3, Type: "horse"},
	}
	ids := renumbering{}
	reg := newRegistry(newCatalog(t), ids)
	codec := NewCodec(store, WithLogger(quietLogger()))

	result, err := codec.Load(ctx, reg, live)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.Strategy != "v1" || result.Restored != 6 || result.Skipped != 0 {
		t.Fatalf("result = %+v", result)
	}

	for _, c := range live {
		want := legacy[legacyKeyFor(c.Category)][c.LongID]
		current := c
		if c.Category != creature.Animal {
			shortID, ok := ids[c.Identity()]
			if !ok {
				t.Fatalf("%s was not given a new short id", c.Identity())
			}
			current.LongID = int64(shortID)
		}
		v, ok := reg.GetSkin(current)
		if !ok || v.ID != want {
			t.Fatalf("%s skin = %+v, %v, want %d", current.Identity(), v, ok, want)
		}
	}
	// Animals keep their saved short ids.
	for longID, shortID := range map[int64]int{700001: 2, 700002: 1, 700003: 3} {
		if got, _ := reg.ShortID(creature.Animal, longID); got != shortID {
			t.Fatalf("animal %d short id = %d, want %d", longID, got, shortID)
		}
	}

	if err := codec.Save(ctx, reg, Flags{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	var categories map[int64]creature.Category
	if _, err := store.Read(ctx, KeyIDToCategory, &categories); err != nil {
		t.Fatalf("read categories: %v", err)
	}
	counts := map[creature.Category]int{}
	for _, category := range categories {
		counts[category]++
	}
	if len(categories) != 6 || counts[creature.Animal] != 3 || counts[creature.Pet] != 2 || counts[creature.Horse] != 1 {
		t.Fatalf("categories = %v", categories)
	}
}

func legacyKeyFor(category creature.Category) string {
	for _, legacy := range legacyKeys {
		if legacy.category == category {
			return legacy.key
		}
	}
	return ""
}

func TestMigrationSkipsEntriesWithoutLiveCreature(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Write(ctx, KeyLegacyAnimalSkinMap, map[int64]int{1001: 2, 1002: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg := newRegistry(newCatalog(t), nil)

	result, err := NewCodec(store, WithLogger(quietLogger())).Load(ctx, reg, []creature.Creature{chicken(1002)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.Restored != 1 || result.Skipped != 1 {
		t.Fatalf("result = %+v", result)
	}
	if got, _ := reg.SkinID(chicken(1002).Identity()); got != 3 {
		t.Fatalf("skin = %d, want 3", got)
	}
}

func TestLoadRebuildsInconsistentState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	var logs bytes.Buffer
	codec := NewCodec(store, WithLogger(log.New(&logs, "", 0)))

	// An animal entry without short id maps.
	if err := store.Write(ctx, KeySkinMap, map[int64]int{5000: 4}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, KeyIDToCategory, map[int64]int{5000: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}

	reg := newRegistry(newCatalog(t), nil)
	result, err := codec.Load(ctx, reg, []creature.Creature{chicken(5000)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !result.Rebuilt || result.Restored != 1 {
		t.Fatalf("result = %+v", result)
	}
	if got, _ := reg.SkinID(chicken(5000).Identity()); got != 4 {
		t.Fatalf("skin = %d, want 4", got)
	}
	if _, ok := reg.ShortID(creature.Animal, 5000); !ok {
		t.Fatal("rebuilt animal has no short id")
	}
	if !strings.Contains(logs.String(), "alert:") {
		t.Fatalf("expected alert log, got %q", logs.String())
	}
}

func TestNonAuthoritativeParticipantSkipsLoadAndSave(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	codec := NewCodec(store, WithLogger(quietLogger()), WithAuthority(AuthorityFunc(func() bool { return false })))

	reg := newRegistry(newCatalog(t), nil)
	if _, err := reg.AddCreature(chicken(1), nil, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := codec.Save(ctx, reg, Flags{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if keys := store.Keys(); len(keys) != 0 {
		t.Fatalf("keys written: %v", keys)
	}

	result, err := codec.Load(ctx, reg, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !result.Disabled || reg.Len() != 1 {
		t.Fatalf("result = %+v, len = %d", result, reg.Len())
	}
}

func TestSaveKeepsFirstCategoryOnIDCollision(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	var logs bytes.Buffer
	codec := NewCodec(store, WithLogger(log.New(&logs, "", 0)))

	reg := newRegistry(newCatalog(t), nil)
	if _, err := reg.AddCreature(creature.Creature{Category: creature.Horse, Type: "horse"}, nil, 2); err != nil {
		t.Fatalf("add horse: %v", err)
	}
	if _, err := reg.AddCreature(chicken(1), nil, 3); err != nil {
		t.Fatalf("add chicken: %v", err)
	}
	if err := codec.Save(ctx, reg, Flags{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var categories map[int64]creature.Category
	if _, err := store.Read(ctx, KeyIDToCategory, &categories); err != nil {
		t.Fatalf("read: %v", err)
	}
	var shortIDs map[int64]int
	if _, err := store.Read(ctx, KeyAnimalLongToShort, &shortIDs); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(categories) != 1 || categories[1] != creature.Horse || len(shortIDs) != 0 {
		t.Fatalf("categories = %v, short ids = %v", categories, shortIDs)
	}
	if !strings.Contains(logs.String(), "alert:") {
		t.Fatalf("expected alert log, got %q", logs.String())
	}
}

func TestLoadFlags(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Write(ctx, KeyFirstPetReceived, "True"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, KeyFirstHorseReceived, "maybe"); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := NewCodec(store, WithLogger(quietLogger())).Load(ctx, newRegistry(newCatalog(t), nil), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !result.Flags.FirstPetReceived || result.Flags.FirstHorseReceived {
		t.Fatalf("flags = %+v", result.Flags)
	}
	if result.Strategy != "current" || result.Restored != 0 {
		t.Fatalf("result = %+v", result)
	}
}

type failingStore struct{ err error }

func (s failingStore) Read(context.Context, string, any) (bool, error) { return false, s.err }
func (s failingStore) Write(context.Context, string, any) error        { return s.err }

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")
	codec := NewCodec(failingStore{err: boom}, WithLogger(quietLogger()))
	reg := newRegistry(newCatalog(t), nil)

	if _, err := codec.Load(ctx, reg, nil); !errors.Is(err, boom) {
		t.Fatalf("load err = %v, want %v", err, boom)
	}
	if err := codec.Save(ctx, reg, Flags{}); !errors.Is(err, boom) {
		t.Fatalf("save err = %v, want %v", err, boom)
	}
}
