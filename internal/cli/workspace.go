package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"guide/config"
	"guide/internal/adapter/cache"
	"guide/internal/adapter/fs"
	"guide/internal/adapter/memstore"
	"guide/internal/adapter/store"
	"guide/internal/port"
	"guide/internal/usecase"
)

// workspace bundles the loader and engine built from the active config.
type workspace struct {
	loader *usecase.LoadUseCase
	engine *usecase.Engine
	result *usecase.LoadResult
	dirs   []string
	close  func()
}

// openParseCache opens the on-disk parse cache. When it is disabled or held
// by another process (a running `guide serve`), an in-memory cache is used.
func openParseCache(cfg *config.Config, root string) port.ParseCache {
	if !cfg.Store.Enabled {
		return memstore.NewMemoryStore()
	}
	if err := config.EnsureGuideDir(root); err != nil {
		logger.Warn("parse cache unavailable", zap.Error(err))
		return memstore.NewMemoryStore()
	}

	st, err := store.NewBoltStore(config.StoreDBPath(root), cfg.Store.LockTimeout)
	if err != nil {
		logger.Warn("parse cache unavailable, parsing every file", zap.Error(err))
		return memstore.NewMemoryStore()
	}

	result, err := st.Prepare(cfg)
	if err != nil {
		st.Close()
		logger.Warn("parse cache migration failed", zap.Error(err))
		return memstore.NewMemoryStore()
	}
	if result.NeedsRebuild {
		logger.Info("parse cache cleared", zap.String("reason", result.Reason))
	}
	return st
}

// openWorkspace loads the corpus and builds an engine serving it.
func openWorkspace(ctx context.Context, skipInvalid bool, progress usecase.ProgressFunc) (*workspace, error) {
	cfg := GetConfig()
	root := GetRootDir()

	pc := openParseCache(cfg, root)
	walker := fs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes)
	loader := usecase.NewLoadUseCase(pc, walker, logger)
	dirs := cfg.CorpusDirs(root)

	idx, result, err := loader.Load(ctx, dirs, skipInvalid, progress)
	if err != nil {
		pc.Close()
		return &workspace{result: result}, fmt.Errorf("failed to load corpus: %w", err)
	}

	opts := []usecase.EngineOption{usecase.WithLogger(logger)}
	if cfg.Cache.Enabled {
		opts = append(opts, usecase.WithCache(cache.NewCompositionCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)))
	}

	return &workspace{
		loader: loader,
		engine: usecase.NewEngine(idx, opts...),
		result: result,
		dirs:   dirs,
		close:  func() { pc.Close() },
	}, nil
}

// Reload re-reads the corpus and publishes it. The current index keeps
// serving when the load fails.
func (w *workspace) Reload(ctx context.Context) error {
	idx, _, err := w.loader.Load(ctx, w.dirs, GetConfig().Corpus.SkipInvalid, nil)
	if err != nil {
		return err
	}
	w.engine.Publish(idx)
	return nil
}

func (w *workspace) Close() {
	if w.close != nil {
		w.close()
	}
}

// displayPath shows p relative to root when it lies inside it.
func displayPath(root, p string) string {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
