package usecase

import (
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"guide/internal/adapter/cache"
	"guide/internal/adapter/docindex"
	"guide/internal/domain"
)

// Engine is the query boundary a host tool calls. Queries read an immutable
// index snapshot; reloads build a new index and publish it atomically, so
// in-flight queries finish against the snapshot they started with.
type Engine struct {
	current  atomic.Pointer[snapshot]
	composer *Composer
	cache    *cache.CompositionCache
	logger   *zap.Logger
}

type snapshot struct {
	index      *docindex.Index
	generation uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCache memoizes results per index generation.
func WithCache(c *cache.CompositionCache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine serving idx. A nil idx serves an empty index.
func NewEngine(idx *docindex.Index, opts ...EngineOption) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.composer = NewComposer(e.logger)
	if idx == nil {
		idx = docindex.Empty()
	}
	e.current.Store(&snapshot{index: idx, generation: 1})
	return e
}

// Query composes the guidance applying to filePath. It never fails: match
// problems are contained per document.
func (e *Engine) Query(filePath string) domain.CompositionResult {
	snap := e.current.Load()

	if e.cache != nil {
		if res, ok := e.cache.Get(snap.generation, filePath); ok {
			return res
		}
	}

	res := e.composer.ComposeEntries(filePath, snap.index.MatchingEntries(filePath))

	if e.cache != nil {
		e.cache.Put(snap.generation, filePath, res)
	}
	return res
}

// Reload strictly loads docs into a new index and publishes it. On error the
// current index stays in place.
func (e *Engine) Reload(docs []domain.GuidelineDocument) error {
	idx, err := docindex.Load(docs, docindex.WithLogger(e.logger))
	if err != nil {
		return err
	}
	e.Publish(idx)
	return nil
}

// Publish swaps in idx and returns its generation.
func (e *Engine) Publish(idx *docindex.Index) uint64 {
	for {
		old := e.current.Load()
		next := &snapshot{index: idx, generation: old.generation + 1}
		if e.current.CompareAndSwap(old, next) {
			if e.cache != nil {
				e.cache.Invalidate()
			}
			e.logger.Info("published guideline index",
				zap.Int("documents", idx.Len()),
				zap.Uint64("generation", next.generation))
			return next.generation
		}
	}
}

// Snapshot returns the index currently serving queries.
func (e *Engine) Snapshot() *docindex.Index {
	return e.current.Load().index
}

// Generation returns the number of the current snapshot.
func (e *Engine) Generation() uint64 {
	return e.current.Load().generation
}

// DocumentSummary describes one loaded document for listings.
type DocumentSummary struct {
	ID         string   `json:"id"`
	Patterns   []string `json:"patterns"`
	Precedence int      `json:"precedence"`
	Sections   []string `json:"sections"`
	Source     string   `json:"source,omitempty"`
}

// Catalog lists the documents of the current snapshot ordered by id.
func (e *Engine) Catalog() []DocumentSummary {
	entries := e.Snapshot().Entries()
	out := make([]DocumentSummary, 0, len(entries))
	for _, entry := range entries {
		doc := entry.Document
		titles := make([]string, 0, len(doc.Sections))
		for _, s := range doc.Sections {
			titles = append(titles, s.Title)
		}
		out = append(out, DocumentSummary{
			ID:         doc.ID,
			Patterns:   append([]string{}, doc.ScopePatterns...),
			Precedence: entry.EffectivePrecedence(),
			Sections:   titles,
			Source:     doc.Source,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
