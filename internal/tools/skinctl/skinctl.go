// Package skinctl inspects and edits saved creature data outside the game.
package skinctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
	"github.com/Gathouria/Adopt-Skin/internal/persistence"
	platformcmd "github.com/Gathouria/Adopt-Skin/internal/platform/cmd"
	apperrors "github.com/Gathouria/Adopt-Skin/internal/platform/errors"
	"github.com/Gathouria/Adopt-Skin/internal/random"
	"github.com/Gathouria/Adopt-Skin/internal/registry"
	"github.com/Gathouria/Adopt-Skin/internal/skin"
	"github.com/Gathouria/Adopt-Skin/internal/storage/sqlite"
)

// Commands lists the subcommands Run accepts.
var Commands = []string{"summary", "saves", "list", "set-skin", "remove", "check"}

// Config holds skinctl configuration.
type Config struct {
	DBPath     string        `env:"ADOPTSKIN_DB_PATH"`
	SkinsDir   string        `env:"ADOPTSKIN_SKINS_DIR"`
	SaveID     string        `env:"ADOPTSKIN_SAVE_ID" envDefault:"default"`
	Timeout    time.Duration `env:"ADOPTSKIN_TIMEOUT" envDefault:"1m"`
	JSONOutput bool
	SkinType   string

	Command string
	Args    []string
}

// ParseConfig parses env defaults and flags into a Config. Flags override
// the environment. The first positional argument is the subcommand.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.DBPath, "db", "", "path to the save data sqlite database (default: ADOPTSKIN_DB_PATH or data/adopt-skin.db)")
	fs.StringVar(&cfg.SkinsDir, "skins", "", "directory of skin files (default: ADOPTSKIN_SKINS_DIR)")
	fs.StringVar(&cfg.SaveID, "save", "", "save id to operate on (default: ADOPTSKIN_SAVE_ID or default)")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "overall timeout (default: ADOPTSKIN_TIMEOUT or 1m)")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.StringVar(&cfg.SkinType, "type", "", "creature type used to range check set-skin (needs -skins)")
	if err := platformcmd.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "adopt-skin.db")
	}
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Command = rest[0]
		cfg.Args = rest[1:]
	}
	return cfg, nil
}

// Run executes the configured subcommand. With JSON output a failure is also
// written to errOut as an errorReport.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	err := execute(ctx, cfg, out, errOut)
	if err != nil && cfg.JSONOutput {
		if writeErr := writeJSON(errOut, newErrorReport(err)); writeErr != nil {
			return errors.Join(err, writeErr)
		}
	}
	return err
}

func execute(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	logger := log.New(errOut, "", 0)

	switch cfg.Command {
	case "":
		return fmt.Errorf("command is required: %s", strings.Join(Commands, ", "))
	case "summary":
		return runSummary(ctx, cfg, out, logger)
	case "saves", "list", "set-skin", "remove", "check":
	default:
		return fmt.Errorf("unknown command %q, want one of %s", cfg.Command, strings.Join(Commands, ", "))
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open save data: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Printf("close save data: %v", err)
		}
	}()

	switch cfg.Command {
	case "saves":
		return runSaves(ctx, store, cfg, out)
	case "list":
		return runList(ctx, store.Scope(cfg.SaveID), cfg, out, logger)
	case "set-skin":
		return runSetSkin(ctx, store.Scope(cfg.SaveID), cfg, out, logger)
	case "remove":
		return runRemove(ctx, store.Scope(cfg.SaveID), cfg, out, logger)
	default:
		return runCheck(ctx, store, cfg, out)
	}
}

func loadCatalog(ctx context.Context, cfg Config, logger *log.Logger) (*skin.Catalog, skin.LoadReport, error) {
	catalog := skin.NewCatalog(skin.WithLogger(logger))
	catalog.RegisterDefaults()
	if strings.TrimSpace(cfg.SkinsDir) == "" {
		return catalog, skin.LoadReport{}, nil
	}
	report, err := catalog.Load(ctx, cfg.SkinsDir)
	if err != nil {
		return nil, skin.LoadReport{}, fmt.Errorf("load skins: %w", err)
	}
	return catalog, report, nil
}

func runSummary(ctx context.Context, cfg Config, out io.Writer, logger *log.Logger) error {
	if strings.TrimSpace(cfg.SkinsDir) == "" {
		return errors.New("-skins is required for summary")
	}
	_, report, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		warnings := make([]string, 0, len(report.Warnings))
		for _, w := range report.Warnings {
			warnings = append(warnings, w.String())
		}
		return writeJSON(out, struct {
			Loaded   int      `json:"loaded"`
			Warnings []string `json:"warnings"`
		}{report.Loaded, warnings})
	}
	fmt.Fprintf(out, "loaded %d skins\n", report.Loaded)
	fmt.Fprint(out, report.Summary)
	for _, w := range report.Warnings {
		fmt.Fprintln(out, w.String())
	}
	return nil
}

func runSaves(ctx context.Context, store *sqlite.Store, cfg Config, out io.Writer) error {
	saves, err := store.Saves(ctx)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		return writeJSON(out, saves)
	}
	if len(saves) == 0 {
		fmt.Fprintln(out, "no saves")
		return nil
	}
	for _, save := range saves {
		fmt.Fprintf(out, "%s\t%d keys\tupdated %s\n", save.SaveID, save.Keys, save.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

// entry is one saved creature as skinctl reports it.
type entry struct {
	Category string `json:"category"`
	ShortID  int    `json:"short_id"`
	LongID   int64  `json:"long_id"`
	SkinID   int    `json:"skin_id"`
}

func entriesOf(state registry.State) []entry {
	out := make([]entry, 0, len(state.Skins))
	for id, skinID := range state.Skins {
		shortID := int(id.LongID)
		if id.Category == creature.Animal {
			shortID = state.AnimalLongToShort[id.LongID]
		}
		out = append(out, entry{Category: id.Category.String(), ShortID: shortID, LongID: id.LongID, SkinID: skinID})
	}
	order := func(name string) int {
		category, err := creature.ParseCategory(name)
		if err != nil {
			return len(creature.Categories) + 1
		}
		return int(category)
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := order(out[i].Category), order(out[j].Category); a != b {
			return a < b
		}
		if out[i].ShortID != out[j].ShortID {
			return out[i].ShortID < out[j].ShortID
		}
		return out[i].LongID < out[j].LongID
	})
	return out
}

func runList(ctx context.Context, store persistence.KeyValueStore, cfg Config, out io.Writer, logger *log.Logger) error {
	strategy, err := persistence.Detect(ctx, store)
	if err != nil {
		return err
	}
	if strategy != persistence.LoadCurrent {
		logger.Printf("save %q uses the %s layout, load it in game to migrate it", cfg.SaveID, strategy.Name())
	}
	state, err := persistence.ReadState(ctx, store)
	if err != nil {
		return err
	}
	entries := entriesOf(state)
	if cfg.JSONOutput {
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "save %q has no creatures\n", cfg.SaveID)
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s %d: long id %d, skin %d\n", e.Category, e.ShortID, e.LongID, e.SkinID)
	}
	return nil
}

// openRegistry loads the saved registry. Saves that would need live
// creatures to load, because they use the legacy layout or are
// inconsistent, are refused so that writing back cannot drop entries.
func openRegistry(ctx context.Context, store persistence.KeyValueStore, catalog *skin.Catalog, cfg Config, logger *log.Logger) (*registry.Registry, *persistence.Codec, persistence.Flags, error) {
	rng, err := random.NewSeeded()
	if err != nil {
		return nil, nil, persistence.Flags{}, err
	}
	reg := registry.New(catalog, rng, registry.WithLogger(logger))
	codec := persistence.NewCodec(store, persistence.WithLogger(logger))
	result, err := codec.Load(ctx, reg, nil)
	if err != nil {
		return nil, nil, persistence.Flags{}, err
	}
	if result.Strategy != persistence.LoadCurrent.Name() || result.Rebuilt {
		return nil, nil, persistence.Flags{}, fmt.Errorf("save %q needs live creatures to load, open it in game first", cfg.SaveID)
	}
	return reg, codec, result.Flags, nil
}

// target parses <category> <short id>.
func target(reg *registry.Registry, args []string) (creature.Identity, int, error) {
	category, err := creature.ParseCategory(args[0])
	if err != nil {
		return creature.Identity{}, 0, apperrors.Wrap(apperrors.CodeInvalidCategory, fmt.Sprintf("unknown category %q", args[0]), err)
	}
	shortID, err := strconv.Atoi(args[1])
	if err != nil || shortID < 1 {
		return creature.Identity{}, 0, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("short id must be a positive number, got %q", args[1]))
	}
	longID, ok := reg.LongID(category, shortID)
	if !ok {
		return creature.Identity{}, 0, apperrors.WithMetadata(apperrors.CodeCreatureNotFound,
			fmt.Sprintf("no %s with short id %d", category, shortID),
			map[string]string{"Category": category.String(), "ShortID": args[1]})
	}
	return creature.Identity{Category: category, LongID: longID}, shortID, nil
}

func runSetSkin(ctx context.Context, store persistence.KeyValueStore, cfg Config, out io.Writer, logger *log.Logger) error {
	if len(cfg.Args) != 3 {
		return errors.New("usage: set-skin <category> <short id> <skin id>")
	}
	skinID, err := strconv.Atoi(cfg.Args[2])
	if err != nil {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("skin id must be a number, got %q", cfg.Args[2]))
	}
	catalog, _, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cfg.SkinType != "" {
		typ := creature.Sanitize(cfg.SkinType)
		count := catalog.VariantCount(typ)
		if skinID < 1 || skinID > count {
			return apperrors.WithMetadata(apperrors.CodeSkinOutOfRange,
				fmt.Sprintf("skin %d is out of range, %s has skins 1 to %d", skinID, typ, count),
				map[string]string{"Type": typ, "Count": strconv.Itoa(count)})
		}
	}

	reg, codec, flags, err := openRegistry(ctx, store, catalog, cfg, logger)
	if err != nil {
		return err
	}
	id, shortID, err := target(reg, cfg.Args[:2])
	if err != nil {
		return err
	}
	if err := reg.SetSkin(id.Category, id.LongID, skinID); err != nil {
		return err
	}
	if err := codec.Save(ctx, reg, flags); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %d now has skin %d\n", id.Category, shortID, skinID)
	return nil
}

func runRemove(ctx context.Context, store persistence.KeyValueStore, cfg Config, out io.Writer, logger *log.Logger) error {
	if len(cfg.Args) != 2 {
		return errors.New("usage: remove <category> <short id>")
	}
	catalog, _, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	reg, codec, flags, err := openRegistry(ctx, store, catalog, cfg, logger)
	if err != nil {
		return err
	}
	id, shortID, err := target(reg, cfg.Args)
	if err != nil {
		return err
	}
	reg.RemoveCreature(id.Category, id.LongID)
	if err := codec.Save(ctx, reg, flags); err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %s %d\n", id.Category, shortID)
	return nil
}

// checkReport is the outcome of the check command.
type checkReport struct {
	SaveID     string   `json:"save_id"`
	Layout     string   `json:"layout"`
	Entries    int      `json:"entries"`
	Problems   []string `json:"problems"`
	Migrations []string `json:"migrations"`
}

func runCheck(ctx context.Context, store *sqlite.Store, cfg Config, out io.Writer) error {
	scope := store.Scope(cfg.SaveID)
	strategy, err := persistence.Detect(ctx, scope)
	if err != nil {
		return err
	}
	state, err := persistence.ReadState(ctx, scope)
	if err != nil {
		return err
	}
	applied, err := store.Migrations(ctx)
	if err != nil {
		return err
	}

	report := checkReport{SaveID: cfg.SaveID, Layout: strategy.Name(), Entries: len(state.Skins)}
	for _, m := range applied {
		report.Migrations = append(report.Migrations, m.Name)
	}
	if strategy == persistence.LoadCurrent {
		checkErr := state.Check()
		var joined interface{ Unwrap() []error }
		switch {
		case checkErr == nil:
		case errors.As(checkErr, &joined):
			for _, e := range joined.Unwrap() {
				report.Problems = append(report.Problems, e.Error())
			}
		default:
			report.Problems = append(report.Problems, checkErr.Error())
		}
	}

	if cfg.JSONOutput {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "save %q: %d entries in the %s layout\n", report.SaveID, report.Entries, report.Layout)
		fmt.Fprintf(out, "migrations: %s\n", strings.Join(report.Migrations, ", "))
		for _, problem := range report.Problems {
			fmt.Fprintf(out, "problem: %s\n", problem)
		}
	}
	if len(report.Problems) > 0 {
		return fmt.Errorf("save %q has %d problems", cfg.SaveID, len(report.Problems))
	}
	return nil
}

func writeJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
