// Package builder renders a documentation source tree to HTML, running the
// uml directive for every diagram fence it encounters.
package builder

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"

	"git.home.luguber.info/inful/umlgen/internal/config"
	"git.home.luguber.info/inful/umlgen/internal/directive"
	"git.home.luguber.info/inful/umlgen/internal/gitmeta"
	"git.home.luguber.info/inful/umlgen/internal/logfields"
	"git.home.luguber.info/inful/umlgen/internal/markdown"
	"git.home.luguber.info/inful/umlgen/internal/metrics"
)

// Builder renders markdown pages and copies generated diagrams alongside them.
type Builder struct {
	cfg       *config.Config
	directive *directive.Directive
	rec       metrics.Recorder
}

// Report summarizes one build.
type Report struct {
	BuildID  string
	Revision string
	Pages    int
	Duration time.Duration
}

// New constructs a Builder. A nil recorder disables metrics.
func New(cfg *config.Config, d *directive.Directive, rec metrics.Recorder) *Builder {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Builder{cfg: cfg, directive: d, rec: rec}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Build renders every markdown file under srcDir into outDir, then copies the
// diagram directory into the output tree. The first failing page aborts the
// build.
func (b *Builder) Build(ctx context.Context, srcDir, outDir string) (*Report, error) {
	start := time.Now()
	report := &Report{
		BuildID:  uuid.NewString(),
		Revision: gitmeta.ShortRevision(srcDir),
	}

	slog.Info("Starting documentation build",
		logfields.BuildID(report.BuildID),
		logfields.Revision(report.Revision),
		slog.String("source", srcDir),
		slog.String("output", outDir))

	env := directive.Environment{SrcDir: srcDir}
	md := goldmark.New(goldmark.WithExtensions(
		markdown.NewExtension(ctx, b.directive, env),
	))

	err := filepath.WalkDir(srcDir, func(pth string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if pth != srcDir && b.skipDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(pth), ".md") {
			return nil
		}

		rel, relErr := filepath.Rel(srcDir, pth)
		if relErr != nil {
			return relErr
		}
		if err := b.renderPage(md, pth, rel, outDir); err != nil {
			b.rec.IncPageResult(metrics.ResultFailed)
			slog.Error("Page build failed", logfields.Page(rel), logfields.Error(err))
			return fmt.Errorf("render %s: %w", rel, err)
		}
		b.rec.IncPageResult(metrics.ResultSuccess)
		report.Pages++
		return nil
	})

	report.Duration = time.Since(start)
	b.rec.ObserveBuildDuration(report.Duration)
	if err != nil {
		return report, err
	}

	if err := b.copyDiagrams(srcDir, outDir); err != nil {
		return report, err
	}

	slog.Info("Documentation build finished",
		logfields.BuildID(report.BuildID),
		slog.Int("pages", report.Pages),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

func (b *Builder) renderPage(md goldmark.Markdown, srcPath, rel, outDir string) error {
	source, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}

	pc := parser.NewContext()
	var body bytes.Buffer
	if err := md.Convert(source, &body, parser.WithContext(pc)); err != nil {
		return err
	}
	if derr := markdown.DirectiveError(pc); derr != nil {
		return derr
	}

	outPath := filepath.Join(outDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".html")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	var page bytes.Buffer
	err = pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{
		Title: b.cfg.Site.Title,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, page.Bytes(), 0o644)
}

// skipDir filters dot-directories and the diagram directory (its contents are
// copied explicitly after the page pass).
func (b *Builder) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return name == b.cfg.Diagrams.Dir
}

// copyDiagrams mirrors the generated diagram directory into the output tree
// so embedded image paths resolve from the rendered pages.
func (b *Builder) copyDiagrams(srcDir, outDir string) error {
	diagSrc := filepath.Join(srcDir, b.cfg.Diagrams.Dir)
	if _, err := os.Stat(diagSrc); os.IsNotExist(err) {
		return nil
	}

	diagOut := filepath.Join(outDir, b.cfg.Diagrams.Dir)
	if err := os.MkdirAll(diagOut, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(diagSrc)
	if err != nil {
		return fmt.Errorf("read diagram directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(diagSrc, entry.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(diagOut, entry.Name()), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
