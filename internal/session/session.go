package session

import (
	"context"
	"fmt"
	"log"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	"github.com/Gathouria/Adopt-Skin/internal/persistence"
	apperrors "github.com/Gathouria/Adopt-Skin/internal/platform/errors"
	"github.com/Gathouria/Adopt-Skin/internal/registry"
	"github.com/Gathouria/Adopt-Skin/internal/skin"
)

// ErrNotLoaded is returned by operations that need a loaded save.
var ErrNotLoaded = apperrors.New(apperrors.CodeSessionNotLoaded, "no save is loaded")

// Host is the game the session runs in.
type Host interface {
	// Creatures returns every horse, pet and farm animal in the world,
	// including horses that are being ridden. Tick forgets a horse or pet
	// missing from the result, and it comes back with a new short id and a
	// random skin.
	Creatures() []creature.Creature
	// IsMainPlayer reports whether this participant owns the save.
	IsMainPlayer() bool
	// SetShortID writes a new short id onto a horse or pet.
	SetShortID(c creature.Creature, shortID int)
	// ApplySkin changes the sprite of c.
	ApplySkin(c creature.Creature, v skin.Variant)
	// Spawn places a new stray or wild horse wearing v.
	Spawn(c creature.Creature, v skin.Variant)
	// Remove takes c out of the world.
	Remove(c creature.Creature)
}

// Session owns the registry of one loaded save.
type Session struct {
	cfg     Config
	host    Host
	catalog *skin.Catalog
	codec   *persistence.Codec
	rng     skin.Rand
	logger  *log.Logger

	reg    *registry.Registry
	loaded bool
	paused bool
	flags  persistence.Flags

	stray     *Spawn
	wildHorse *Spawn
}

// Option configures a Session.
type Option func(*Session)

// WithLogger routes session logging to logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a session that persists into store and picks skins from
// catalog using rng.
func New(cfg Config, host Host, catalog *skin.Catalog, store persistence.KeyValueStore, rng skin.Rand, opts ...Option) *Session {
	s := &Session{
		cfg:     cfg,
		host:    host,
		catalog: catalog,
		rng:     rng,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.codec = persistence.NewCodec(store,
		persistence.WithAuthority(host),
		persistence.WithLogger(s.logger),
	)
	return s
}

// Config returns the session settings.
func (s *Session) Config() Config { return s.cfg }

// Catalog returns the skin catalog.
func (s *Session) Catalog() *skin.Catalog { return s.catalog }

// Host returns the host game.
func (s *Session) Host() Host { return s.host }

// Registry returns the registry of the loaded save, or nil.
func (s *Session) Registry() *registry.Registry { return s.reg }

// Loaded reports whether a save is loaded and this participant owns it.
func (s *Session) Loaded() bool { return s.loaded }

// Paused reports whether ticks are suspended for a save.
func (s *Session) Paused() bool { return s.paused }

// Flags returns the adoption milestones.
func (s *Session) Flags() persistence.Flags { return s.flags }

// Detailf logs when detailed console output is enabled.
func (s *Session) Detailf(format string, args ...any) {
	if s.cfg.DetailedConsoleOutput {
		s.logger.Printf(format, args...)
	}
}

// OnSaveLoaded loads the saved registry, registers creatures the save did
// not know about, and applies every skin.
func (s *Session) OnSaveLoaded(ctx context.Context) (persistence.LoadResult, error) {
	s.reset()
	reg := registry.New(s.catalog, s.rng,
		registry.WithLogger(s.logger),
		registry.WithShortIDSetter(s.host),
	)

	live := s.host.Creatures()
	for _, c := range live {
		// Unadopted strays and wild horses never outlive the day they spawned.
		if c.IsSentinel() {
			s.host.Remove(c)
		}
	}

	result, err := s.codec.Load(ctx, reg, live)
	if err != nil {
		return persistence.LoadResult{}, fmt.Errorf("load save data: %w", err)
	}
	if result.Disabled {
		s.logger.Printf("session: not the main player, creature tracking disabled")
		return result, nil
	}

	s.reg = reg
	s.flags = result.Flags
	s.loaded = true
	s.Tick(ctx)
	s.RefreshSkins()
	return result, nil
}

// TickReport counts the registry changes made by one tick.
type TickReport struct {
	Added   int
	Removed int
}

// Tick registers creatures that appeared and forgets those that vanished.
// It does nothing while paused or before a save is loaded.
func (s *Session) Tick(ctx context.Context) TickReport {
	var report TickReport
	if !s.loaded || s.paused || ctx.Err() != nil {
		return report
	}

	// Removals for every category run before any additions. Horse and pet
	// short ids share one space.
	live := s.host.Creatures()
	var pending []creature.Creature
	for _, category := range creature.Categories {
		tracked := make([]creature.Creature, 0, len(live))
		ids := make([]int64, 0, len(live))
		for _, c := range creature.Of(live, category) {
			if c.Trackable() {
				tracked = append(tracked, c)
				ids = append(ids, c.LongID)
			}
		}

		diff := s.reg.Reconcile(category, ids)
		for _, longID := range diff.Removed {
			if s.reg.RemoveCreature(category, longID) {
				report.Removed++
			}
		}
		added := make(map[int64]struct{}, len(diff.Added))
		for _, longID := range diff.Added {
			added[longID] = struct{}{}
		}
		for _, c := range tracked {
			if _, ok := added[c.LongID]; ok {
				pending = append(pending, c)
			}
		}
	}
	for _, c := range pending {
		if s.add(c, live, 0) {
			report.Added++
		}
	}

	s.updateFirstCreatures(live)
	if report.Added > 0 || report.Removed > 0 {
		trace.SpanFromContext(ctx).AddEvent("session.tick", trace.WithAttributes(
			attribute.Int("session.added", report.Added),
			attribute.Int("session.removed", report.Removed),
		))
		s.Detailf("session: tick added %d and removed %d creatures", report.Added, report.Removed)
	}
	return report
}

// add registers c and applies its skin. It reports whether c was added.
func (s *Session) add(c creature.Creature, live []creature.Creature, explicitSkin int) bool {
	shortID, err := s.reg.AddCreature(c, live, explicitSkin)
	if err != nil {
		s.Detailf("session: %s not tracked: %v", c.Identity(), err)
		return false
	}
	c = Registered(c, shortID)
	if v, ok := s.reg.GetSkin(c); ok {
		s.host.ApplySkin(c, v)
	}
	return true
}

// Registered returns c as the registry knows it after AddCreature gave it
// shortID: horses and pets carry their short id as their long id.
func Registered(c creature.Creature, shortID int) creature.Creature {
	if c.Category != creature.Animal {
		c.LongID = int64(shortID)
	}
	return c
}

func (s *Session) updateFirstCreatures(live []creature.Creature) {
	for _, c := range live {
		if !c.Trackable() {
			continue
		}
		switch c.Category {
		case creature.Pet:
			s.flags.FirstPetReceived = true
		case creature.Horse:
			s.flags.FirstHorseReceived = true
		}
	}
}

// RefreshSkins applies the registered skin of every live creature.
func (s *Session) RefreshSkins() int {
	if !s.loaded {
		return 0
	}
	refreshed := 0
	for _, c := range s.host.Creatures() {
		if !c.Trackable() {
			continue
		}
		if v, ok := s.reg.GetSkin(c); ok {
			s.host.ApplySkin(c, v)
			refreshed++
		}
	}
	return refreshed
}

// OnSaving pauses ticks and writes the registry.
func (s *Session) OnSaving(ctx context.Context) error {
	if !s.loaded {
		return nil
	}
	s.paused = true
	if err := s.codec.Save(ctx, s.reg, s.flags); err != nil {
		return fmt.Errorf("save creature data: %w", err)
	}
	return nil
}

// OnSaved resumes ticks after a save.
func (s *Session) OnSaved() {
	s.paused = false
}

// OnReturnedToTitle discards the registry of the closed save.
func (s *Session) OnReturnedToTitle() {
	s.reset()
}

func (s *Session) reset() {
	s.reg = nil
	s.loaded = false
	s.paused = false
	s.flags = persistence.Flags{}
	s.stray = nil
	s.wildHorse = nil
}

// Find returns the live creature with the given identity.
func (s *Session) Find(id creature.Identity) (creature.Creature, bool) {
	for _, c := range s.host.Creatures() {
		if c.Identity() == id && c.Trackable() {
			return c, true
		}
	}
	return creature.Creature{}, false
}

// Sell removes a registered horse or pet from the registry and the world.
func (s *Session) Sell(id creature.Identity) (creature.Creature, error) {
	if !s.loaded {
		return creature.Creature{}, ErrNotLoaded
	}
	if id.Category == creature.Animal {
		return creature.Creature{}, apperrors.New(apperrors.CodeInvalidArgument, "only pets and horses can be sold")
	}
	c, ok := s.Find(id)
	if !ok || !s.reg.IsRegistered(id) {
		return creature.Creature{}, apperrors.WithMetadata(apperrors.CodeCreatureNotFound,
			fmt.Sprintf("no %s with id %d", id.Category, id.LongID),
			map[string]string{"Category": id.Category.String(), "ID": fmt.Sprint(id.LongID)})
	}
	s.reg.RemoveCreature(id.Category, id.LongID)
	s.host.Remove(c)
	return c, nil
}

// Reset forgets every creature and registers the live ones again with
// short ids counted from 1 and random skins.
func (s *Session) Reset() (int, error) {
	if !s.loaded {
		return 0, ErrNotLoaded
	}
	s.reg.Reset()
	live := slices.Clone(s.host.Creatures())
	for i, c := range live {
		if c.Category != creature.Animal && c.Trackable() {
			s.host.SetShortID(c, 0)
			live[i].LongID = 0
		}
	}
	added := 0
	for _, category := range creature.Categories {
		for _, c := range creature.Of(live, category) {
			if c.Trackable() && s.add(c, live, 0) {
				added++
			}
		}
	}
	return added, nil
}
