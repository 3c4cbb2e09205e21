package builder_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/umlgen/internal/builder"
	"git.home.luguber.info/inful/umlgen/internal/config"
	"git.home.luguber.info/inful/umlgen/internal/directive"
	"git.home.luguber.info/inful/umlgen/internal/testutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildRendersTree(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "index.md"), "# Home\n\n```uml\nmypkg :classes:\n```\n")
	writeFile(t, filepath.Join(srcDir, "guide", "intro.md"), "# Intro\n\nplain page\n")
	writeFile(t, filepath.Join(srcDir, "notes.txt"), "not a page\n")

	cfg := config.Default()
	d := directive.New(&testutil.StubRunner{}, directive.Options{})
	report, err := builder.New(cfg, d, nil).Build(t.Context(), srcDir, outDir)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Pages)
	assert.NotEmpty(t, report.BuildID)

	index, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `<img src="uml/classes_mypkg.png"`)
	assert.Contains(t, string(index), "<title>Documentation</title>")

	assert.FileExists(t, filepath.Join(outDir, "guide", "intro.html"))
	// Generated diagrams are mirrored into the output tree.
	assert.FileExists(t, filepath.Join(outDir, "uml", "classes_mypkg.png"))
}

func TestBuildFailsOnDirectiveError(t *testing.T) {
	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, "bad.md"), "```uml\nmypkg :bad_arg:\n```\n")

	cfg := config.Default()
	d := directive.New(&testutil.StubRunner{}, directive.Options{})
	_, err := builder.New(cfg, d, nil).Build(t.Context(), srcDir, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.md")
	assert.Contains(t, err.Error(), "invalid flags encountered")
}

func TestBuildSkipsDotAndDiagramDirs(t *testing.T) {
	srcDir := t.TempDir()
	writeFile(t, filepath.Join(srcDir, ".hidden", "secret.md"), "# hidden\n")
	writeFile(t, filepath.Join(srcDir, "uml", "readme.md"), "# not a page\n")
	writeFile(t, filepath.Join(srcDir, "page.md"), "# visible\n")

	cfg := config.Default()
	d := directive.New(&testutil.StubRunner{}, directive.Options{})
	outDir := t.TempDir()
	report, err := builder.New(cfg, d, nil).Build(t.Context(), srcDir, outDir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Pages)
	assert.NoFileExists(t, filepath.Join(outDir, ".hidden", "secret.html"))
	assert.NoFileExists(t, filepath.Join(outDir, "uml", "readme.html"))
}

func TestBuildEmptyTree(t *testing.T) {
	cfg := config.Default()
	d := directive.New(&testutil.StubRunner{}, directive.Options{})
	report, err := builder.New(cfg, d, nil).Build(t.Context(), t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Pages)
}
