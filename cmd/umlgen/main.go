package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/umlgen/internal/builder"
	"git.home.luguber.info/inful/umlgen/internal/cache"
	"git.home.luguber.info/inful/umlgen/internal/config"
	"git.home.luguber.info/inful/umlgen/internal/directive"
	"git.home.luguber.info/inful/umlgen/internal/generator"
	"git.home.luguber.info/inful/umlgen/internal/imaging"
	"git.home.luguber.info/inful/umlgen/internal/metrics"
	"git.home.luguber.info/inful/umlgen/internal/render"
	"git.home.luguber.info/inful/umlgen/internal/version"
	"git.home.luguber.info/inful/umlgen/internal/watch"
)

const defaultConfigPath = "umlgen.yaml"

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"umlgen.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Source string `short:"s" help:"Documentation source directory" default:"."`
		Output string `short:"o" help:"Output directory for rendered pages" default:"./site"`
	} `cmd:"" help:"Render documentation pages with embedded UML diagrams"`

	Generate struct {
		Module string   `arg:"" help:"Module to generate diagrams for"`
		Flags  []string `help:"Directive flags (:classes:, :packages:)"`
		Dir    string   `short:"d" help:"Directory treated as the document source root" default:"."`
	} `cmd:"" help:"Generate diagrams for a single module without rendering pages"`

	Watch struct {
		Source string `short:"s" help:"Documentation source directory" default:"."`
		Output string `short:"o" help:"Output directory for rendered pages" default:"./site"`
	} `cmd:"" help:"Build, then rebuild whenever the source tree changes"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "build":
		cfg, err := loadConfig(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runBuild(cfg, CLI.Build.Source, CLI.Build.Output); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "generate <module>":
		cfg, err := loadConfig(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runGenerate(cfg, CLI.Generate.Dir, CLI.Generate.Module, CLI.Generate.Flags); err != nil {
			slog.Error("Generate failed", "error", err)
			os.Exit(1)
		}
	case "watch":
		cfg, err := loadConfig(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runWatch(cfg, CLI.Watch.Source, CLI.Watch.Output); err != nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("umlgen %s (built %s, commit %s)\n", version.Version, version.BuildTime, version.GitCommit)
	}
}

// loadConfig loads the configured file, falling back to defaults when the
// default config file simply does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultConfigPath {
		slog.Debug("No configuration file found, using defaults")
		return config.Default(), nil
	}
	return config.Load(path)
}

// newDirective wires the directive handler from configuration. The returned
// closer releases the cache store (nil-safe to call).
func newDirective(cfg *config.Config, rec metrics.Recorder) (*directive.Directive, func() error, error) {
	timeout, err := cfg.GeneratorTimeout()
	if err != nil {
		return nil, nil, err
	}

	runner := generator.NewCommandRunner(cfg.Generator.Command, timeout)
	d := directive.New(runner, directive.Options{
		DirName:  cfg.Diagrams.Dir,
		Format:   cfg.Generator.Format,
		MaxWidth: cfg.Diagrams.MaxWidth,
		Command:  cfg.Generator.Command,
	}).WithRecorder(rec)

	if !cfg.Diagrams.NoResize {
		d.WithRescaler(imaging.NewFileRescaler())
	}
	if cfg.Generator.Format == "dot" {
		d.WithDOTRenderer(render.NewDOTRenderer())
	}

	closer := func() error { return nil }
	if cfg.Cache.Path != "" {
		if dir := filepath.Dir(cfg.Cache.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create cache directory: %w", err)
			}
		}
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open diagram cache: %w", err)
		}
		d.WithCache(store)
		closer = store.Close
	}
	return d, closer, nil
}

func runBuild(cfg *config.Config, srcDir, outDir string) error {
	d, closer, err := newDirective(cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer(); err != nil {
			slog.Warn("Failed to close diagram cache", "error", err)
		}
	}()

	_, err = builder.New(cfg, d, nil).Build(context.Background(), srcDir, outDir)
	return err
}

func runGenerate(cfg *config.Config, dir, module string, flags []string) error {
	d, closer, err := newDirective(cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer(); err != nil {
			slog.Warn("Failed to close diagram cache", "error", err)
		}
	}()

	args := append([]string{module}, flags...)
	images, err := d.Run(context.Background(), directive.Environment{SrcDir: dir}, args)
	if err != nil {
		return err
	}
	for _, img := range images {
		slog.Info("Diagram generated", "path", img.Path)
	}
	return nil
}

func runWatch(cfg *config.Config, srcDir, outDir string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		registry := prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(registry)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(registry))
		server := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			slog.Info("Serving metrics", "listen", cfg.Metrics.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	d, closer, err := newDirective(cfg, rec)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer(); err != nil {
			slog.Warn("Failed to close diagram cache", "error", err)
		}
	}()

	b := builder.New(cfg, d, rec)
	rebuild := func(ctx context.Context) error {
		_, err := b.Build(ctx, srcDir, outDir)
		return err
	}

	// Initial build before watching; a failing first build is fatal.
	if err := rebuild(ctx); err != nil {
		return err
	}

	debounce, err := cfg.WatchDebounce()
	if err != nil {
		return err
	}
	interval, err := cfg.RebuildInterval()
	if err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(srcDir, watch.Options{
		Debounce:        debounce,
		RebuildInterval: interval,
		SkipDirs:        []string{cfg.Diagrams.Dir, filepath.Base(outDir)},
	}, rebuild)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	slog.Info("Watching for changes, press Ctrl-C to stop")
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return watcher.Stop(stopCtx)
}
