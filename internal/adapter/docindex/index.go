// Package docindex holds an immutable, validated set of guideline documents
// and answers which of them apply to a file path.
package docindex

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"guide/internal/adapter/scope"
	"guide/internal/domain"
)

// Entry is a loaded document with its compiled scope patterns.
type Entry struct {
	Document *domain.GuidelineDocument
	Patterns []scope.Pattern

	precedence int
}

// NewEntry wraps doc with its patterns scored but not validated. Matching an
// invalid pattern fails at query time.
func NewEntry(doc *domain.GuidelineDocument) *Entry {
	e := &Entry{Document: doc, Patterns: make([]scope.Pattern, len(doc.ScopePatterns))}
	for i, raw := range doc.ScopePatterns {
		e.Patterns[i] = scope.Pattern{Raw: raw, Specificity: scope.Specificity(raw)}
	}
	e.precedence = EffectivePrecedence(doc)
	return e
}

func (e *Entry) EffectivePrecedence() int {
	return e.precedence
}

// EffectivePrecedence returns the explicit precedence override when set and
// the highest pattern specificity otherwise.
func EffectivePrecedence(doc *domain.GuidelineDocument) int {
	if doc.Precedence != nil {
		return *doc.Precedence
	}
	best := 0
	for _, raw := range doc.ScopePatterns {
		if s := scope.Specificity(raw); s > best {
			best = s
		}
	}
	return best
}

// Index is read-only after construction and safe for concurrent use.
type Index struct {
	entries []*Entry
	byID    map[string]*Entry
	logger  *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for match failures.
func WithLogger(logger *zap.Logger) Option {
	return func(idx *Index) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// Empty returns an index without documents.
func Empty(opts ...Option) *Index {
	idx, _ := Load(nil, opts...)
	return idx
}

// Load builds an index from docs. It fails with *domain.DuplicateIdError if
// two documents share an id and with *domain.InvalidPatternError (joined when
// there are several) if any pattern does not compile. No index is returned on
// failure.
func Load(docs []domain.GuidelineDocument, opts ...Option) (*Index, error) {
	idx, invalid, err := build(docs, opts)
	if err != nil {
		return nil, err
	}
	if len(invalid) > 0 {
		errs := make([]error, len(invalid))
		for i, e := range invalid {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}
	return idx, nil
}

// LoadPartial builds an index that excludes documents with invalid patterns
// and reports them. Duplicate ids still fail the whole load.
func LoadPartial(docs []domain.GuidelineDocument, opts ...Option) (*Index, []*domain.InvalidPatternError, error) {
	idx, invalid, err := build(docs, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(invalid) > 0 {
		excluded := make(map[string]bool, len(invalid))
		for _, e := range invalid {
			excluded[e.DocumentID] = true
		}
		kept := idx.entries[:0]
		for _, e := range idx.entries {
			if excluded[e.Document.ID] {
				delete(idx.byID, e.Document.ID)
				continue
			}
			kept = append(kept, e)
		}
		idx.entries = kept
	}
	return idx, invalid, nil
}

func build(docs []domain.GuidelineDocument, opts []Option) (*Index, []*domain.InvalidPatternError, error) {
	idx := &Index{
		entries: make([]*Entry, 0, len(docs)),
		byID:    make(map[string]*Entry, len(docs)),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}

	sources := make(map[string][]string, len(docs))
	var dupIDs []string
	for _, d := range docs {
		if d.ID == "" {
			return nil, nil, fmt.Errorf("%w (source %q)", domain.ErrEmptyID, d.Source)
		}
		if _, seen := sources[d.ID]; seen && len(sources[d.ID]) == 1 {
			dupIDs = append(dupIDs, d.ID)
		}
		sources[d.ID] = append(sources[d.ID], d.Source)
	}
	if len(dupIDs) > 0 {
		sort.Strings(dupIDs)
		return nil, nil, &domain.DuplicateIdError{ID: dupIDs[0], Sources: nonEmpty(sources[dupIDs[0]])}
	}

	var invalid []*domain.InvalidPatternError
	for _, d := range docs {
		doc := d.Clone()
		entry := &Entry{
			Document:   &doc,
			Patterns:   make([]scope.Pattern, 0, len(doc.ScopePatterns)),
			precedence: EffectivePrecedence(&doc),
		}
		bad := false
		for _, raw := range doc.ScopePatterns {
			p, err := scope.Compile(raw)
			if err != nil {
				invalid = append(invalid, &domain.InvalidPatternError{DocumentID: doc.ID, Pattern: raw, Err: err})
				bad = true
				continue
			}
			entry.Patterns = append(entry.Patterns, p)
		}
		if bad {
			// LoadPartial drops it; Load fails before the index escapes.
			entry.Patterns = nil
		}
		idx.entries = append(idx.entries, entry)
		idx.byID[doc.ID] = entry
	}
	return idx, invalid, nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CandidatesFor returns every document with at least one pattern matching
// filePath, in load order. A document whose matching fails is skipped.
func (idx *Index) CandidatesFor(filePath string) []*domain.GuidelineDocument {
	entries := idx.MatchingEntries(filePath)
	out := make([]*domain.GuidelineDocument, len(entries))
	for i, e := range entries {
		out[i] = e.Document
	}
	return out
}

// MatchingEntries is CandidatesFor returning the loaded entries, so callers
// can reuse the compiled patterns.
func (idx *Index) MatchingEntries(filePath string) []*Entry {
	var out []*Entry
	for _, e := range idx.entries {
		ok, err := e.matches(filePath)
		if err != nil {
			idx.logger.Warn("scope match failed",
				zap.String("document", e.Document.ID),
				zap.String("path", filePath),
				zap.Error(err))
			continue
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}

func (e *Entry) matches(filePath string) (ok bool, err error) {
	var current string
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = &domain.MatchError{DocumentID: e.Document.ID, Pattern: current, Path: filePath, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	for _, p := range e.Patterns {
		current = p.Raw
		matched, err := p.Match(filePath)
		if err != nil {
			return false, &domain.MatchError{DocumentID: e.Document.ID, Pattern: p.Raw, Path: filePath, Err: err}
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// Entry returns the loaded entry for a document id.
func (idx *Index) Entry(id string) (*Entry, bool) {
	e, ok := idx.byID[id]
	return e, ok
}

// Get returns the document with the given id.
func (idx *Index) Get(id string) (*domain.GuidelineDocument, bool) {
	e, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	return e.Document, true
}

// Entries returns the loaded entries in load order.
func (idx *Index) Entries() []*Entry {
	return append([]*Entry(nil), idx.entries...)
}

func (idx *Index) Len() int {
	return len(idx.entries)
}
