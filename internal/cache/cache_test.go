package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStableUnderFlagOrderAndDuplicates(t *testing.T) {
	a := Key("mymodule", []string{":classes:", ":packages:"}, "pyreverse", "png")
	b := Key("mymodule", []string{":packages:", ":classes:", ":classes:"}, "pyreverse", "png")
	assert.Equal(t, a, b)
}

func TestKeyDiscriminates(t *testing.T) {
	base := Key("mymodule", []string{":classes:"}, "pyreverse", "png")
	assert.NotEqual(t, base, Key("other", []string{":classes:"}, "pyreverse", "png"))
	assert.NotEqual(t, base, Key("mymodule", []string{":packages:"}, "pyreverse", "png"))
	assert.NotEqual(t, base, Key("mymodule", []string{":classes:"}, "plantuml", "png"))
	assert.NotEqual(t, base, Key("mymodule", []string{":classes:"}, "pyreverse", "svg"))
}

func TestLookupMiss(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, ok, err := store.Lookup(t.Context(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordAndLookup(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	key := Key("mymodule", []string{":classes:"}, "pyreverse", "png")
	artifacts := []string{"uml/classes_mymodule.png"}

	require.NoError(t, store.Record(ctx, key, "mymodule", artifacts))

	entry, ok, err := store.Lookup(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mymodule", entry.Module)
	assert.Equal(t, artifacts, entry.Artifacts)
	assert.False(t, entry.GeneratedAt.IsZero())
}

func TestRecordReplaces(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	require.NoError(t, store.Record(ctx, "k", "mymodule", []string{"uml/a.png"}))
	require.NoError(t, store.Record(ctx, "k", "mymodule", []string{"uml/b.png"}))

	entry, ok, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"uml/b.png"}, entry.Artifacts)
}

func TestOpenPersistentFile(t *testing.T) {
	path := t.TempDir() + "/cache.db"
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(t.Context(), "k", "m", []string{"uml/a.png"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	_, ok, err := reopened.Lookup(t.Context(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
