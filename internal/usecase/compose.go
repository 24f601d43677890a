package usecase

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"guide/internal/adapter/docindex"
	"guide/internal/adapter/scope"
	"guide/internal/domain"
)

// Composer orders the documents selected for a path and merges their
// sections into one instruction set.
type Composer struct {
	logger *zap.Logger
}

// NewComposer creates a composer. A nil logger disables logging.
func NewComposer(logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{logger: logger}
}

type rankedMatch struct {
	match      domain.ScopeMatch
	precedence int
}

type sectionKey struct {
	title string
	body  string
}

// Compose selects the best matching pattern for each candidate, orders the
// candidates most specific first and merges their sections. Byte-identical
// sections are kept once; sections sharing a title with another document's
// section but differing in body are kept and all of them are flagged.
func (c *Composer) Compose(filePath string, candidates []*domain.GuidelineDocument) domain.CompositionResult {
	entries := make([]*docindex.Entry, 0, len(candidates))
	for _, doc := range candidates {
		if doc != nil {
			entries = append(entries, docindex.NewEntry(doc))
		}
	}
	return c.ComposeEntries(filePath, entries)
}

// ComposeEntries is Compose over index entries, reusing their compiled
// patterns and precedence.
func (c *Composer) ComposeEntries(filePath string, candidates []*docindex.Entry) domain.CompositionResult {
	result := domain.NewCompositionResult(filePath)
	if len(candidates) == 0 {
		return result
	}

	ranked := make([]rankedMatch, 0, len(candidates))
	seenDocs := make(map[string]bool, len(candidates))
	for _, entry := range candidates {
		if entry == nil || entry.Document == nil || seenDocs[entry.Document.ID] {
			continue
		}
		match, ok, err := bestMatch(entry, filePath)
		if err != nil {
			c.logger.Warn("skipping candidate", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		seenDocs[entry.Document.ID] = true
		ranked = append(ranked, rankedMatch{match: match, precedence: entry.EffectivePrecedence()})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.match.Specificity != b.match.Specificity {
			return a.match.Specificity > b.match.Specificity
		}
		if a.precedence != b.precedence {
			return a.precedence > b.precedence
		}
		return a.match.Document.ID < b.match.Document.ID
	})

	seen := make(map[sectionKey]struct{})
	titles := make(map[string]titleOwner)
	for _, r := range ranked {
		doc := r.match.Document
		result.AppliedDocuments = append(result.AppliedDocuments, doc.ID)
		for _, s := range doc.Sections {
			key := sectionKey{title: s.Title, body: s.Body}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			merged := domain.MergedSection{
				SourceDocumentID: doc.ID,
				Title:            s.Title,
				Body:             s.Body,
			}
			if s.Title != "" {
				owner, taken := titles[s.Title]
				switch {
				case !taken:
					titles[s.Title] = titleOwner{docID: doc.ID, index: len(result.MergedSections)}
				case owner.docID != doc.ID:
					merged.Conflict = true
					merged.ConflictsWith = owner.docID
					result.MergedSections[owner.index].Conflict = true
				}
			}
			result.MergedSections = append(result.MergedSections, merged)
		}
	}

	c.logger.Debug("composed guidance",
		zap.String("path", filePath),
		zap.Strings("documents", result.AppliedDocuments),
		zap.Int("sections", len(result.MergedSections)),
		zap.Int("conflicts", len(result.Conflicts())))

	return result
}

// titleOwner is the first merged section carrying a title.
type titleOwner struct {
	docID string
	index int
}

// bestMatch finds the highest-specificity pattern of entry matching filePath.
// A panic in the matcher is reported as a MatchError.
func bestMatch(entry *docindex.Entry, filePath string) (m domain.ScopeMatch, ok bool, err error) {
	doc := entry.Document
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = &domain.MatchError{DocumentID: doc.ID, Path: filePath, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	best, found, err := scope.Best(entry.Patterns, filePath)
	if err != nil {
		return domain.ScopeMatch{}, false, &domain.MatchError{DocumentID: doc.ID, Path: filePath, Err: err}
	}
	if !found {
		return domain.ScopeMatch{}, false, nil
	}
	return domain.ScopeMatch{Document: doc, MatchedPattern: best.Raw, Specificity: best.Specificity}, true, nil
}
