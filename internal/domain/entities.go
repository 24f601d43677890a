package domain

// Section is one titled block of guidance inside a document.
type Section struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Body  string `json:"body" yaml:"body"`
}

// GuidelineDocument is a unit of convention guidance scoped to a set of files.
type GuidelineDocument struct {
	ID            string    `json:"id"`
	ScopePatterns []string  `json:"scope_patterns"`
	Sections      []Section `json:"sections"`
	// Precedence overrides the derived precedence when set.
	Precedence *int   `json:"precedence,omitempty"`
	Source     string `json:"source,omitempty"`
}

// Clone returns a deep copy of the document.
func (d GuidelineDocument) Clone() GuidelineDocument {
	c := d
	c.ScopePatterns = append([]string(nil), d.ScopePatterns...)
	c.Sections = append([]Section(nil), d.Sections...)
	if d.Precedence != nil {
		p := *d.Precedence
		c.Precedence = &p
	}
	return c
}

// CachedDocument is a parsed document together with the file state it was
// parsed from.
type CachedDocument struct {
	ModTime  int64             `json:"mod_time"`
	Size     int64             `json:"size"`
	Document GuidelineDocument `json:"document"`
}

// Fresh reports whether the cached parse is still valid for a file with the
// given modification time and size.
func (c CachedDocument) Fresh(modTime, size int64) bool {
	return c.ModTime == modTime && c.Size == size
}

// ScopeMatch records which pattern selected a document for a path.
type ScopeMatch struct {
	Document       *GuidelineDocument
	MatchedPattern string
	Specificity    int
}

type MergedSection struct {
	SourceDocumentID string `json:"source_document_id"`
	Title            string `json:"title,omitempty"`
	Body             string `json:"body"`
	// Conflict is set on every section whose title is shared with a
	// section of another applied document that has a different body.
	Conflict bool `json:"conflict,omitempty"`
	// ConflictsWith holds the id of the earlier document that carries a
	// section with the same title but a different body. It is empty on the
	// first occurrence of a contested title.
	ConflictsWith string `json:"conflicts_with,omitempty"`
}

type CompositionResult struct {
	FilePath         string          `json:"file_path"`
	AppliedDocuments []string        `json:"applied_documents"`
	MergedSections   []MergedSection `json:"merged_sections"`
}

// NewCompositionResult returns an empty result for path with non-nil slices.
func NewCompositionResult(path string) CompositionResult {
	return CompositionResult{
		FilePath:         path,
		AppliedDocuments: []string{},
		MergedSections:   []MergedSection{},
	}
}

// Clone returns a deep copy of the result.
func (r CompositionResult) Clone() CompositionResult {
	c := NewCompositionResult(r.FilePath)
	c.AppliedDocuments = append(c.AppliedDocuments, r.AppliedDocuments...)
	c.MergedSections = append(c.MergedSections, r.MergedSections...)
	return c
}

// Conflicts returns the merged sections flagged as conflicting.
func (r CompositionResult) Conflicts() []MergedSection {
	var out []MergedSection
	for _, s := range r.MergedSections {
		if s.Conflict {
			out = append(out, s)
		}
	}
	return out
}
