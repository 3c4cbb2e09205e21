// Package directive implements the uml directive: it validates directive
// flags, shells out to an external class-diagram generator, post-processes the
// produced images and returns references the host framework embeds in the page.
package directive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/umlgen/internal/cache"
	"git.home.luguber.info/inful/umlgen/internal/generator"
	"git.home.luguber.info/inful/umlgen/internal/imaging"
	"git.home.luguber.info/inful/umlgen/internal/logfields"
	"git.home.luguber.info/inful/umlgen/internal/metrics"
)

// Flags accepted by the directive. Each selects one of the diagram kinds the
// generator produces.
const (
	FlagClasses  = ":classes:"
	FlagPackages = ":packages:"
)

// Defaults applied when Options fields are zero.
const (
	DefaultDirName  = "uml"
	DefaultFormat   = "png"
	DefaultMaxWidth = 1000
)

var flagKinds = map[string]string{
	FlagClasses:  "classes",
	FlagPackages: "packages",
}

// ValidFlags lists the accepted directive flags in canonical order.
var ValidFlags = []string{FlagClasses, FlagPackages}

// Environment describes the host document being rendered.
type Environment struct {
	// SrcDir is the document source root. The diagram directory is created
	// directly beneath it; SrcDir itself must already exist.
	SrcDir string
}

// Options configures directive behavior.
type Options struct {
	DirName  string // diagram directory name under SrcDir
	Format   string // generator output format: png, svg or dot
	MaxWidth int    // PNG images wider than this are rescaled down
	Command  string // generator command, part of the cache key
}

// Image is the reference returned to the host framework for embedding.
// Path is relative to the document source root, with forward slashes.
type Image struct {
	Path string
	Alt  string
}

// DOTRenderer converts a DOT artifact into a PNG file. Used when the
// generator is configured to emit dot output.
type DOTRenderer interface {
	PNGFile(ctx context.Context, dotPath, pngPath string) error
}

// Directive handles one uml directive occurrence.
type Directive struct {
	runner   generator.Runner
	rescaler imaging.Rescaler // nil when image processing is unavailable
	dot      DOTRenderer
	store    *cache.Store
	rec      metrics.Recorder
	opts     Options
}

// New constructs a directive handler around the given generator runner.
func New(runner generator.Runner, opts Options) *Directive {
	if opts.DirName == "" {
		opts.DirName = DefaultDirName
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if opts.MaxWidth == 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	return &Directive{
		runner: runner,
		rec:    metrics.NoopRecorder{},
		opts:   opts,
	}
}

// WithRescaler enables image width inspection and downscaling.
func (d *Directive) WithRescaler(r imaging.Rescaler) *Directive {
	d.rescaler = r
	return d
}

// WithDOTRenderer enables in-process DOT to PNG conversion.
func (d *Directive) WithDOTRenderer(r DOTRenderer) *Directive {
	d.dot = r
	return d
}

// WithCache enables the diagram cache.
func (d *Directive) WithCache(s *cache.Store) *Directive {
	d.store = s
	return d
}

// WithRecorder sets the metrics recorder.
func (d *Directive) WithRecorder(rec metrics.Recorder) *Directive {
	if rec != nil {
		d.rec = rec
	}
	return d
}

// Run executes the directive. args[0] is the module name; remaining args are
// flags selecting which diagrams to embed. With no flags the class diagram is
// embedded.
func (d *Directive) Run(ctx context.Context, env Environment, args []string) ([]Image, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		d.rec.IncDirectiveResult(metrics.ResultFailed)
		return nil, fmt.Errorf("uml directive requires a module name argument")
	}
	module := args[0]

	kinds, err := kindsForFlags(args[1:])
	if err != nil {
		d.rec.IncDirectiveResult(metrics.ResultFailed)
		return nil, err
	}

	umlDir := filepath.Join(env.SrcDir, d.opts.DirName)
	if err := ensureDir(umlDir); err != nil {
		d.rec.IncDirectiveResult(metrics.ResultFailed)
		return nil, err
	}

	project := Project(module)
	key := cache.Key(module, args[1:], d.opts.Command, d.opts.Format)

	if images, ok := d.cachedImages(ctx, env, key, module); ok {
		d.rec.IncDirectiveResult(metrics.ResultSkipped)
		return images, nil
	}

	genStart := time.Now()
	out, err := d.runner.Generate(ctx, umlDir, module, project, d.opts.Format)
	d.rec.ObserveGenerateDuration(module, time.Since(genStart), err == nil)
	if err != nil {
		// Surface the tool's captured output in the build log before
		// propagating the failure.
		slog.Error("Diagram generator failed",
			logfields.Module(module),
			logfields.Output(out),
			logfields.Error(err))
		d.rec.IncDirectiveResult(metrics.ResultFailed)
		return nil, fmt.Errorf("generate diagrams for %s: %w", module, err)
	}

	images := make([]Image, 0, len(kinds))
	rels := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		name, err := d.finishArtifact(ctx, umlDir, kind, project, module)
		if err != nil {
			d.rec.IncDirectiveResult(metrics.ResultFailed)
			return nil, err
		}
		images = append(images, Image{Path: path.Join(d.opts.DirName, name), Alt: module})
		rels = append(rels, path.Join(d.opts.DirName, name))
	}

	if d.store != nil {
		if err := d.store.Record(ctx, key, module, rels); err != nil {
			slog.Warn("Failed to record diagram cache entry",
				logfields.Module(module), logfields.Error(err))
		}
	}

	d.rec.IncDirectiveResult(metrics.ResultSuccess)
	return images, nil
}

// cachedImages returns cached image references when every cached artifact
// still exists on disk.
func (d *Directive) cachedImages(ctx context.Context, env Environment, key, module string) ([]Image, bool) {
	if d.store == nil {
		return nil, false
	}

	entry, ok, err := d.store.Lookup(ctx, key)
	if err != nil {
		slog.Warn("Diagram cache lookup failed", logfields.Module(module), logfields.Error(err))
		return nil, false
	}
	if ok {
		for _, rel := range entry.Artifacts {
			if _, statErr := os.Stat(filepath.Join(env.SrcDir, filepath.FromSlash(rel))); statErr != nil {
				ok = false
				break
			}
		}
	}
	d.rec.IncCacheLookup(ok)
	if !ok {
		return nil, false
	}

	slog.Debug("Reusing cached diagrams", logfields.Module(module))
	images := make([]Image, 0, len(entry.Artifacts))
	for _, rel := range entry.Artifacts {
		images = append(images, Image{Path: rel, Alt: module})
	}
	return images, true
}

// finishArtifact converts (for dot output) and rescales one generated
// artifact, returning its final file name inside the diagram directory.
func (d *Directive) finishArtifact(ctx context.Context, umlDir, kind, project, module string) (string, error) {
	ext := d.opts.Format
	if d.opts.Format == "dot" {
		if d.dot == nil {
			return "", fmt.Errorf("generator format is dot but no DOT renderer is configured")
		}
		dotName := ArtifactName(kind, project, "dot")
		pngName := ArtifactName(kind, project, "png")
		if err := d.dot.PNGFile(ctx, filepath.Join(umlDir, dotName), filepath.Join(umlDir, pngName)); err != nil {
			return "", fmt.Errorf("convert %s diagram for %s: %w", kind, module, err)
		}
		ext = "png"
	}

	name := ArtifactName(kind, project, ext)
	full := filepath.Join(umlDir, name)
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("generator produced no %s diagram for %s: %w", kind, module, err)
	}

	if ext == "png" {
		if err := d.maybeRescale(full); err != nil {
			return "", fmt.Errorf("rescale %s diagram for %s: %w", kind, module, err)
		}
	}
	return name, nil
}

// maybeRescale downscales the image when it exceeds the width limit. A nil
// rescaler means image processing is unavailable; the image is embedded as-is.
func (d *Directive) maybeRescale(path string) error {
	if d.rescaler == nil {
		slog.Debug("Image rescaling unavailable, embedding diagram at full size",
			slog.String("path", path))
		return nil
	}

	width, err := d.rescaler.Width(path)
	if err != nil {
		return err
	}
	if width <= d.opts.MaxWidth {
		return nil
	}

	slog.Debug("Rescaling wide diagram",
		slog.String("path", path),
		slog.Int("width", width),
		slog.Int("max_width", d.opts.MaxWidth))
	return d.rescaler.ScaleToWidth(path, d.opts.MaxWidth)
}

// kindsForFlags validates directive flags and maps them to diagram kinds,
// deduplicating while preserving order. No flags selects the class diagram.
func kindsForFlags(flags []string) ([]string, error) {
	if len(flags) == 0 {
		return []string{flagKinds[FlagClasses]}, nil
	}

	var invalid []string
	kinds := make([]string, 0, len(flags))
	seen := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		kind, ok := flagKinds[f]
		if !ok {
			invalid = append(invalid, f)
			continue
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid flags encountered %v, expected one of %v", invalid, ValidFlags)
	}
	return kinds, nil
}

// ensureDir creates the diagram directory. The create is deliberately
// non-recursive: the document source dir must already exist.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("diagram path %s exists and is not a directory", dir)
		}
		return nil
	case os.IsNotExist(err):
		if mkErr := os.Mkdir(dir, 0o755); mkErr != nil {
			return fmt.Errorf("create diagram directory: %w", mkErr)
		}
		return nil
	default:
		return fmt.Errorf("stat diagram directory: %w", err)
	}
}

// Project derives the generator project name from a module name. The result
// is used in artifact file names, so path separators and other unsafe runes
// are replaced.
func Project(module string) string {
	normalized := norm.NFC.String(module)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		switch r {
		case '.', '_', '-':
			return r
		}
		return '_'
	}, normalized)
}

// ArtifactName returns the file name the generator uses for a diagram kind.
func ArtifactName(kind, project, ext string) string {
	return kind + "_" + project + "." + ext
}
