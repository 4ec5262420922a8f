package persistence

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	"github.com/Gathouria/Adopt-Skin/internal/registry"
)

const tracerName = "github.com/Gathouria/Adopt-Skin/internal/persistence"

// Authority reports whether this participant owns the save data. In shared
// sessions only the main player loads and saves.
type Authority interface {
	IsMainPlayer() bool
}

// AuthorityFunc adapts a function to Authority.
type AuthorityFunc func() bool

// IsMainPlayer calls f.
func (f AuthorityFunc) IsMainPlayer() bool {
	return f()
}

// Flags are the adoption milestones saved alongside the registry.
type Flags struct {
	FirstPetReceived   bool
	FirstHorseReceived bool
}

// LoadResult describes what Load did.
type LoadResult struct {
	// Strategy names the layout that was read.
	Strategy string
	// Disabled is set when this participant is not allowed to load.
	Disabled bool
	// Restored counts creatures registered after the load.
	Restored int
	// Skipped counts saved entries that could not be registered.
	Skipped int
	// Rebuilt is set when saved tables were inconsistent and the registry
	// was rebuilt entry by entry.
	Rebuilt bool
	Flags   Flags
}

// Codec reads and writes registry state in a KeyValueStore.
type Codec struct {
	store     KeyValueStore
	authority Authority
	logger    *log.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithAuthority gates Load and Save on authority.
func WithAuthority(authority Authority) Option {
	return func(c *Codec) {
		c.authority = authority
	}
}

// WithLogger routes codec logging to logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCodec returns a codec over store.
func NewCodec(store KeyValueStore, opts ...Option) *Codec {
	c := &Codec{
		store:  store,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) authoritative() bool {
	return c.authority == nil || c.authority.IsMainPlayer()
}

// Load replaces reg's contents with the saved state. live is the current
// world snapshot, used when entries have to be re-registered.
func (c *Codec) Load(ctx context.Context, reg *registry.Registry, live []creature.Creature) (LoadResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "persistence.Codec.Load")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}
	if c == nil || c.store == nil {
		return LoadResult{}, fmt.Errorf("store is not configured")
	}
	if !c.authoritative() {
		c.logger.Printf("persistence: not the main player, save data not loaded")
		return LoadResult{Disabled: true}, nil
	}

	strategy, err := Detect(ctx, c.store)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "detect layout")
		return LoadResult{}, err
	}
	result, err := strategy.Load(ctx, c.store, reg, live, c.logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load "+strategy.Name())
		return LoadResult{}, fmt.Errorf("load %s layout: %w", strategy.Name(), err)
	}
	result.Strategy = strategy.Name()
	result.Restored = reg.Len()

	flags, err := c.readFlags(ctx)
	if err != nil {
		span.RecordError(err)
		return LoadResult{}, err
	}
	result.Flags = flags

	span.SetAttributes(
		attribute.String("persistence.strategy", result.Strategy),
		attribute.Int("persistence.restored", result.Restored),
		attribute.Int("persistence.skipped", result.Skipped),
		attribute.Bool("persistence.rebuilt", result.Rebuilt),
	)
	c.logger.Printf("persistence: loaded %d creatures from %s layout, %d skipped", result.Restored, result.Strategy, result.Skipped)
	return result, nil
}

func (c *Codec) readFlags(ctx context.Context) (Flags, error) {
	var flags Flags
	for _, f := range []struct {
		key string
		dst *bool
	}{
		{KeyFirstPetReceived, &flags.FirstPetReceived},
		{KeyFirstHorseReceived, &flags.FirstHorseReceived},
	} {
		var raw string
		ok, err := c.store.Read(ctx, f.key, &raw)
		if err != nil {
			return Flags{}, fmt.Errorf("read %s: %w", f.key, err)
		}
		if !ok {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			c.logger.Printf("persistence: ignoring %s value %q", f.key, raw)
			continue
		}
		*f.dst = value
	}
	return flags, nil
}

// Save writes reg and flags in the current layout.
//
// The saved maps are keyed by long id alone. When two categories register
// the same long id only the first, in Horse, Pet, Animal order, is kept.
func (c *Codec) Save(ctx context.Context, reg *registry.Registry, flags Flags) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "persistence.Codec.Save")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil || c.store == nil {
		return fmt.Errorf("store is not configured")
	}
	if !c.authoritative() {
		c.logger.Printf("persistence: not the main player, save data not written")
		return nil
	}

	doc := c.encode(reg.State())
	writes := []struct {
		key   string
		value any
	}{
		{KeySkinMap, doc.skins},
		{KeyIDToCategory, doc.categories},
		{KeyAnimalLongToShort, doc.longToShort},
		{KeyAnimalShortToLong, doc.shortToLong},
		{KeyFirstPetReceived, strconv.FormatBool(flags.FirstPetReceived)},
		{KeyFirstHorseReceived, strconv.FormatBool(flags.FirstHorseReceived)},
		{KeyDataVersion, DataVersion},
	}
	for _, w := range writes {
		if err := c.store.Write(ctx, w.key, w.value); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "write "+w.key)
			return fmt.Errorf("write %s: %w", w.key, err)
		}
	}
	span.SetAttributes(attribute.Int("persistence.saved", len(doc.skins)))
	return nil
}

// document is the current layout.
type document struct {
	skins       map[int64]int
	categories  map[int64]creature.Category
	longToShort map[int64]int
	shortToLong map[int]int64
}

func (c *Codec) encode(state registry.State) document {
	doc := document{
		skins:       make(map[int64]int, len(state.Skins)),
		categories:  make(map[int64]creature.Category, len(state.Skins)),
		longToShort: make(map[int64]int, len(state.AnimalLongToShort)),
		shortToLong: make(map[int]int64, len(state.AnimalShortToLong)),
	}
	ids := make([]creature.Identity, 0, len(state.Skins))
	for id := range state.Skins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Category != ids[j].Category {
			return ids[i].Category < ids[j].Category
		}
		return ids[i].LongID < ids[j].LongID
	})
	for _, id := range ids {
		if kept, dup := doc.categories[id.LongID]; dup {
			c.logger.Printf("alert: %s shares its id with a %s and was not saved", id, kept)
			continue
		}
		doc.skins[id.LongID] = state.Skins[id]
		doc.categories[id.LongID] = id.Category
		if id.Category == creature.Animal {
			shortID := state.AnimalLongToShort[id.LongID]
			doc.longToShort[id.LongID] = shortID
			doc.shortToLong[shortID] = id.LongID
		}
	}
	return doc
}
