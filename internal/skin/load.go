package skin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Gathouria/Adopt-Skin/internal/creature"
)

const tracerName = "github.com/Gathouria/Adopt-Skin/internal/skin"

// AllowedExtensions are the skin file extensions the host can load.
var AllowedExtensions = []string{".png", ".xnb"}

var (
	// ErrInvalidExtension marks a file whose extension cannot be loaded.
	ErrInvalidExtension = errors.New("invalid extension")
	// ErrUnknownType marks a file whose type is not registered.
	ErrUnknownType = errors.New("unknown creature type")
	// ErrMissingSkinID marks a file name without a skin id part.
	ErrMissingSkinID = errors.New("no skin id found")
	// ErrExtraNameParts marks a file name with more than one underscore.
	ErrExtraNameParts = errors.New("skin file name must be <type>_<id>")
	// ErrSkinIDNotNumber marks a skin id that is not an integer.
	ErrSkinIDNotNumber = errors.New("skin id is not a number")
	// ErrSkinIDNotPositive marks a skin id below 1.
	ErrSkinIDNotPositive = errors.New("skin id must be at least 1")
	// ErrDuplicateSkin marks a second file for an already loaded type and id.
	ErrDuplicateSkin = errors.New("duplicate skin")
)

// Warning records one skipped skin file.
type Warning struct {
	File string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("ignored skin %s: %v", w.File, w.Err)
}

// LoadReport describes the outcome of a catalog load.
type LoadReport struct {
	Loaded   int
	Warnings []Warning
	Summary  string
}

// Load replaces the catalog contents with the skin files found in dir.
func (c *Catalog) Load(ctx context.Context, dir string) (LoadReport, error) {
	if strings.TrimSpace(dir) == "" {
		return LoadReport{}, fmt.Errorf("skins directory is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return LoadReport{}, fmt.Errorf("stat skins directory: %w", err)
	}
	if !info.IsDir() {
		return LoadReport{}, fmt.Errorf("skins path %s is not a directory", dir)
	}
	return c.LoadFS(ctx, os.DirFS(dir), dir)
}

// LoadFS replaces the catalog contents with the skin files at the root of fsys.
// Asset references are reported relative to base.
//
// Malformed files are skipped with a warning; only an unreadable directory
// fails the load.
func (c *Catalog) LoadFS(ctx context.Context, fsys fs.FS, base string) (LoadReport, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "skin.Catalog.Load")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return LoadReport{}, err
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		span.RecordError(err)
		return LoadReport{}, fmt.Errorf("read skins directory: %w", err)
	}

	c.Clear()
	var report LoadReport
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		v, err := c.parseFileName(entry.Name(), base)
		if err == nil {
			err = c.Add(v)
		}
		if err != nil {
			w := Warning{File: entry.Name(), Err: err}
			report.Warnings = append(report.Warnings, w)
			c.logger.Printf("warn: %s", w)
			continue
		}
		report.Loaded++
	}

	report.Summary = c.summary()
	c.logger.Printf("skin catalog loaded:\n%s", report.Summary)
	span.SetAttributes(
		attribute.String("skins.dir", base),
		attribute.Int("skins.loaded", report.Loaded),
		attribute.Int("skins.warnings", len(report.Warnings)),
	)
	return report, nil
}

// parseFileName applies the naming rules in order and returns the variant
// described by name.
func (c *Catalog) parseFileName(name, base string) (Variant, error) {
	ext := path.Ext(name)
	if !allowedExtension(ext) {
		return Variant{}, fmt.Errorf("%w %q (expected one of %s)", ErrInvalidExtension, ext, strings.Join(AllowedExtensions, ", "))
	}

	stem := strings.TrimSuffix(name, ext)
	parts := strings.Split(stem, "_")
	typ := creature.Sanitize(parts[0])
	if !c.HasType(typ) {
		return Variant{}, fmt.Errorf("%w %q", ErrUnknownType, parts[0])
	}
	switch {
	case len(parts) == 1:
		return Variant{}, ErrMissingSkinID
	case len(parts) > 2:
		return Variant{}, fmt.Errorf("%w: %q", ErrExtraNameParts, stem)
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return Variant{}, fmt.Errorf("%w: %q", ErrSkinIDNotNumber, parts[1])
	}
	if id < 1 {
		return Variant{}, fmt.Errorf("%w: %d", ErrSkinIDNotPositive, id)
	}

	ref := name
	if strings.EqualFold(ext, ".xnb") {
		// Compiled assets are referenced without their extension.
		ref = stem
	}
	if base != "" {
		ref = path.Join(filepathToSlash(base), ref)
	}
	return Variant{CreatureType: typ, ID: id, AssetRef: ref}, nil
}

func allowedExtension(ext string) bool {
	for _, allowed := range AllowedExtensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// summary renders loaded skin counts per category.
func (c *Catalog) summary() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	for _, category := range creature.Categories {
		p.Fprintf(&b, "  %s skins:\n", category)
		for _, typ := range c.Types(category) {
			count := c.VariantCount(typ)
			if count == 0 {
				continue
			}
			p.Fprintf(&b, "    %s: %d skins (%s)\n", typ, count, strings.Join(c.assetNames(typ), ", "))
		}
	}
	return b.String()
}
