package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"guide/internal/adapter/docindex"
	"guide/internal/adapter/fs"
	"guide/internal/adapter/markdown"
	"guide/internal/domain"
	"guide/internal/port"
)

// ProgressFunc is called after each corpus file is handled.
type ProgressFunc func(processed, total int, current string)

// LoadUseCase reads guideline files from corpus directories and builds an
// index. Files whose modification time and size are unchanged since the last
// load are taken from the parse cache.
type LoadUseCase struct {
	cache   port.ParseCache
	walker  *fs.Walker
	logger  *zap.Logger
	workers int
}

// NewLoadUseCase creates a loader. A nil logger discards output.
func NewLoadUseCase(cache port.ParseCache, walker *fs.Walker, logger *zap.Logger) *LoadUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadUseCase{
		cache:   cache,
		walker:  walker,
		logger:  logger,
		workers: runtime.NumCPU(),
	}
}

// LoadResult describes one pass over the corpus.
type LoadResult struct {
	Documents    []domain.GuidelineDocument
	FilesParsed  int
	FilesCached  int
	FilesDeleted int
	CacheEntries int
	ParseErrors  []*domain.ParseError
	Invalid      []*domain.InvalidPatternError
}

// Collect parses every corpus file under dirs. Files that fail to parse are
// reported in ParseErrors and left out of Documents. Documents come back in
// source path order.
func (u *LoadUseCase) Collect(ctx context.Context, dirs []string, progress ProgressFunc) (*LoadResult, error) {
	var files []fs.FileInfo
	for _, dir := range dirs {
		found, err := u.walker.Walk(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
		files = append(files, found...)
	}

	result := &LoadResult{}
	docs := make([]*domain.GuidelineDocument, len(files))
	parseErrs := make([]*domain.ParseError, len(files))
	fresh := make([]*domain.CachedDocument, len(files))
	cached := make([]bool, len(files))

	var (
		mu        sync.Mutex
		processed int
	)
	report := func(current string) {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		processed++
		progress(processed, len(files), current)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer report(file.RelPath)

			if hit, ok, err := u.cache.Get(file.Path); err == nil && ok && hit.Fresh(file.ModTime, file.Size) {
				doc := hit.Document
				docs[i] = &doc
				cached[i] = true
				return nil
			} else if err != nil {
				u.logger.Warn("parse cache read failed", zap.String("path", file.Path), zap.Error(err))
			}

			doc, err := parseFile(file)
			if err != nil {
				parseErrs[i] = &domain.ParseError{Source: file.Path, Err: err}
				return nil
			}
			docs[i] = &doc
			fresh[i] = &domain.CachedDocument{ModTime: file.ModTime, Size: file.Size, Document: doc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(files))
	updates := make(map[string]domain.CachedDocument)
	for i, file := range files {
		seen[file.Path] = true
		switch {
		case parseErrs[i] != nil:
			result.ParseErrors = append(result.ParseErrors, parseErrs[i])
		case cached[i]:
			result.FilesCached++
			result.Documents = append(result.Documents, *docs[i])
		default:
			result.FilesParsed++
			result.Documents = append(result.Documents, *docs[i])
			updates[file.Path] = *fresh[i]
		}
	}

	if err := u.cache.PutBatch(updates); err != nil {
		u.logger.Warn("parse cache write failed", zap.Error(err))
	}
	result.FilesDeleted = u.prune(seen)
	if n, err := u.cache.Count(); err == nil {
		result.CacheEntries = n
	} else {
		u.logger.Warn("parse cache count failed", zap.Error(err))
	}

	sort.SliceStable(result.Documents, func(i, j int) bool {
		return result.Documents[i].Source < result.Documents[j].Source
	})
	return result, nil
}

// Load collects the corpus and builds an index from it. With skipInvalid
// set, unparsable files and documents with bad patterns are reported in the
// result and excluded; otherwise any such problem fails the load.
func (u *LoadUseCase) Load(ctx context.Context, dirs []string, skipInvalid bool, progress ProgressFunc) (*docindex.Index, *LoadResult, error) {
	result, err := u.Collect(ctx, dirs, progress)
	if err != nil {
		return nil, nil, err
	}

	opts := []docindex.Option{docindex.WithLogger(u.logger)}

	if !skipInvalid {
		if len(result.ParseErrors) > 0 {
			errs := make([]error, len(result.ParseErrors))
			for i, e := range result.ParseErrors {
				errs[i] = e
			}
			return nil, result, errors.Join(errs...)
		}
		idx, err := docindex.Load(result.Documents, opts...)
		if err != nil {
			return nil, result, err
		}
		return idx, result, nil
	}

	for _, e := range result.ParseErrors {
		u.logger.Warn("skipping unparsable guideline", zap.String("source", e.Source), zap.Error(e.Err))
	}
	idx, invalid, err := docindex.LoadPartial(result.Documents, opts...)
	if err != nil {
		return nil, result, err
	}
	for _, e := range invalid {
		u.logger.Warn("skipping guideline with invalid pattern",
			zap.String("document", e.DocumentID),
			zap.String("pattern", e.Pattern),
			zap.Error(e.Err))
	}
	result.Invalid = invalid
	return idx, result, nil
}

func (u *LoadUseCase) prune(seen map[string]bool) int {
	keys, err := u.cache.Keys()
	if err != nil {
		u.logger.Warn("parse cache list failed", zap.Error(err))
		return 0
	}
	var stale []string
	for _, key := range keys {
		if !seen[key] {
			stale = append(stale, key)
		}
	}
	if err := u.cache.DeleteBatch(stale); err != nil {
		u.logger.Warn("parse cache prune failed", zap.Error(err))
		return 0
	}
	return len(stale)
}

func parseFile(file fs.FileInfo) (domain.GuidelineDocument, error) {
	content, err := fs.ReadFile(file.Path)
	if err != nil {
		return domain.GuidelineDocument{}, fmt.Errorf("failed to read file: %w", err)
	}
	doc, err := markdown.Parse(file.RelPath, content)
	if err != nil {
		return domain.GuidelineDocument{}, err
	}
	doc.Source = file.Path
	return doc, nil
}
