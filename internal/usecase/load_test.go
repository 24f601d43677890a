package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"guide/internal/adapter/fs"
	"guide/internal/adapter/memstore"
	"guide/internal/adapter/store"
	"guide/internal/domain"
)

func writeGuideline(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const (
	tsGuide = "---\napplyTo: \"**/*.ts\"\n---\n## Style\nUse semicolons.\n"
	goGuide = "---\napplyTo: \"**/*.go\"\n---\n## Errors\nWrap with %w.\n"
)

func newLoader(cache *memstore.MemoryStore) *LoadUseCase {
	return NewLoadUseCase(cache, fs.NewWalker([]string{"**/*.md"}, nil), nil)
}

func TestLoad_BuildsIndexFromCorpus(t *testing.T) {
	dir := t.TempDir()
	writeGuideline(t, dir, "lang/ts.md", tsGuide)
	writeGuideline(t, dir, "lang/go.md", goGuide)

	idx, result, err := newLoader(memstore.NewMemoryStore()).Load(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 2, result.FilesParsed)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, "lang/go", result.Documents[0].ID)
	assert.Equal(t, "lang/ts", result.Documents[1].ID)

	res := NewEngine(idx).Query("src/app.ts")
	assert.Equal(t, []string{"lang/ts"}, res.AppliedDocuments)
}

func TestLoad_ReusesCachedParses(t *testing.T) {
	dir := t.TempDir()
	writeGuideline(t, dir, "ts.md", tsGuide)
	goPath := writeGuideline(t, dir, "go.md", goGuide)

	cache := memstore.NewMemoryStore()
	loader := newLoader(cache)

	first, err := loader.Collect(context.Background(), []string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.FilesParsed)

	second, err := loader.Collect(context.Background(), []string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesParsed)
	assert.Equal(t, 2, second.FilesCached)
	assert.Equal(t, first.Documents, second.Documents)

	writeGuideline(t, dir, "go.md", goGuide+"\n## Naming\nShort names.\n")
	third, err := loader.Collect(context.Background(), []string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, third.FilesParsed)
	assert.Equal(t, 1, third.FilesCached)

	require.NoError(t, os.Remove(goPath))
	fourth, err := loader.Collect(context.Background(), []string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fourth.FilesDeleted)
	assert.Equal(t, 1, fourth.CacheEntries)
	keys, _ := cache.Keys()
	assert.Len(t, keys, 1)
}

func TestLoad_WithBoltCache(t *testing.T) {
	dir := t.TempDir()
	writeGuideline(t, dir, "ts.md", tsGuide)

	db, err := store.NewBoltStore(filepath.Join(t.TempDir(), "corpus.db"), time.Second)
	require.NoError(t, err)
	defer db.Close()

	loader := NewLoadUseCase(db, fs.NewWalker([]string{"**/*.md"}, nil), nil)
	_, err = loader.Collect(context.Background(), []string{dir}, nil)
	require.NoError(t, err)

	result, err := loader.Collect(context.Background(), []string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesCached)
	assert.Equal(t, 1, result.CacheEntries)
	assert.Equal(t, []string{"**/*.ts"}, result.Documents[0].ScopePatterns)
}

func TestLoad_InvalidPattern(t *testing.T) {
	dir := t.TempDir()
	writeGuideline(t, dir, "ts.md", tsGuide)
	writeGuideline(t, dir, "broken.md", "---\napplyTo: \"src/[unclosed\"\n---\nbody\n")

	_, _, err := newLoader(memstore.NewMemoryStore()).Load(context.Background(), []string{dir}, false, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidPattern))

	idx, result, err := newLoader(memstore.NewMemoryStore()).Load(context.Background(), []string{dir}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
	require.Len(t, result.Invalid, 1)
	assert.Equal(t, "broken", result.Invalid[0].DocumentID)
}

func TestLoad_ParseError(t *testing.T) {
	dir := t.TempDir()
	writeGuideline(t, dir, "ts.md", tsGuide)
	writeGuideline(t, dir, "open.md", "---\napplyTo: \"**/*.go\"\nno closing delimiter\n")

	_, result, err := newLoader(memstore.NewMemoryStore()).Load(context.Background(), []string{dir}, false, nil)
	assert.True(t, errors.Is(err, domain.ErrParse))
	require.NotNil(t, result)
	assert.Len(t, result.ParseErrors, 1)

	idx, _, err := newLoader(memstore.NewMemoryStore()).Load(context.Background(), []string{dir}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
}

func TestLoad_DuplicateIDAcrossDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeGuideline(t, a, "style.md", tsGuide)
	writeGuideline(t, b, "style.md", goGuide)

	_, _, err := newLoader(memstore.NewMemoryStore()).Load(context.Background(), []string{a, b}, true, nil)
	var dup *domain.DuplicateIdError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "style", dup.ID)
	assert.Len(t, dup.Sources, 2)
}

func TestLoad_ReportsProgress(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		writeGuideline(t, dir, name, tsGuide)
	}

	var calls, lastTotal, maxProcessed int
	progress := func(processed, total int, current string) {
		calls++
		lastTotal = total
		if processed > maxProcessed {
			maxProcessed = processed
		}
	}

	_, err := newLoader(memstore.NewMemoryStore()).Collect(context.Background(), []string{dir}, progress)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, lastTotal)
	assert.Equal(t, 3, maxProcessed)
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	idx, result, err := newLoader(memstore.NewMemoryStore()).Load(context.Background(), []string{filepath.Join(t.TempDir(), "none")}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, result.Documents)
}

func TestLoad_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeGuideline(t, dir, "ts.md", tsGuide)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newLoader(memstore.NewMemoryStore()).Collect(ctx, []string{dir}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
