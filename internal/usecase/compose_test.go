package usecase

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"guide/internal/adapter/docindex"
	"guide/internal/adapter/scope"
	"guide/internal/domain"
)

func newDoc(id string, patterns []string, sections ...domain.Section) domain.GuidelineDocument {
	return domain.GuidelineDocument{ID: id, ScopePatterns: patterns, Sections: sections}
}

func sec(title, body string) domain.Section {
	return domain.Section{Title: title, Body: body}
}

func compose(t *testing.T, path string, docs ...domain.GuidelineDocument) domain.CompositionResult {
	t.Helper()
	idx, err := docindex.Load(docs)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return NewComposer(nil).Compose(path, idx.CandidatesFor(path))
}

func TestCompose_SpecificityOrdering(t *testing.T) {
	got := compose(t, "src/app/foo.ts",
		newDoc("ts", []string{"**/*.ts"}, sec("Typing", "use strict types")),
		newDoc("app", []string{"src/app/*.ts"}, sec("Structure", "one component per file")),
	)

	want := domain.CompositionResult{
		FilePath:         "src/app/foo.ts",
		AppliedDocuments: []string{"app", "ts"},
		MergedSections: []domain.MergedSection{
			{SourceDocumentID: "app", Title: "Structure", Body: "one component per file"},
			{SourceDocumentID: "ts", Title: "Typing", Body: "use strict types"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compose() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_AccessibilityConflictScenario(t *testing.T) {
	got := compose(t, "app/user.component.html",
		newDoc("B", []string{"**/*.html"}, sec("Accessibility", "...different text...")),
		newDoc("A", []string{"**/*.component.html"}, sec("Accessibility", "...")),
	)

	want := domain.CompositionResult{
		FilePath:         "app/user.component.html",
		AppliedDocuments: []string{"A", "B"},
		MergedSections: []domain.MergedSection{
			{SourceDocumentID: "A", Title: "Accessibility", Body: "...", Conflict: true},
			{SourceDocumentID: "B", Title: "Accessibility", Body: "...different text...", Conflict: true, ConflictsWith: "A"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compose() mismatch (-want +got):\n%s", diff)
	}
	if len(got.Conflicts()) != 2 {
		t.Errorf("expected both Accessibility entries flagged, got %d", len(got.Conflicts()))
	}
}

func TestCompose_Deduplication(t *testing.T) {
	got := compose(t, "main.go",
		newDoc("go", []string{"**/*.go"}, sec("Errors", "wrap with %w"), sec("Naming", "short names")),
		newDoc("general", []string{"**/*"}, sec("Errors", "wrap with %w"), sec("Tests", "table driven")),
	)

	count := 0
	for _, s := range got.MergedSections {
		if s.Title == "Errors" {
			count++
			if s.Conflict || s.ConflictsWith != "" {
				t.Errorf("identical sections must not be flagged as conflicts")
			}
		}
	}
	if count != 1 {
		t.Errorf("expected one Errors section, got %d", count)
	}
	if len(got.MergedSections) != 3 {
		t.Errorf("expected 3 merged sections, got %d", len(got.MergedSections))
	}
	if diff := cmp.Diff([]string{"go", "general"}, got.AppliedDocuments); diff != "" {
		t.Errorf("applied documents mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_NonMatchingDocumentAbsent(t *testing.T) {
	got := compose(t, "styles/site.css",
		newDoc("go", []string{"**/*.go"}, sec("Errors", "wrap")),
		newDoc("css", []string{"**/*.css"}, sec("Layout", "use grid")),
	)
	for _, id := range got.AppliedDocuments {
		if id == "go" {
			t.Errorf("go guideline must not apply to a css file")
		}
	}
	for _, s := range got.MergedSections {
		if s.SourceDocumentID == "go" {
			t.Errorf("section from non-matching document leaked: %+v", s)
		}
	}
}

func TestCompose_EmptyCandidates(t *testing.T) {
	got := NewComposer(nil).Compose("any/file.txt", nil)
	want := domain.CompositionResult{
		FilePath:         "any/file.txt",
		AppliedDocuments: []string{},
		MergedSections:   []domain.MergedSection{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_PrecedenceBreaksSpecificityTie(t *testing.T) {
	high := 50
	low := newDoc("alpha", []string{"**/*.ts"}, sec("A", "alpha"))
	boosted := newDoc("zeta", []string{"**/*.ts"}, sec("Z", "zeta"))
	boosted.Precedence = &high

	got := compose(t, "x.ts", low, boosted)
	if diff := cmp.Diff([]string{"zeta", "alpha"}, got.AppliedDocuments); diff != "" {
		t.Errorf("precedence ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_IDBreaksFullTie(t *testing.T) {
	got := compose(t, "x.ts",
		newDoc("b", []string{"**/*.ts"}, sec("B", "b")),
		newDoc("a", []string{"**/*.ts"}, sec("A", "a")),
	)
	if diff := cmp.Diff([]string{"a", "b"}, got.AppliedDocuments); diff != "" {
		t.Errorf("tie-break mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_BestPatternPerDocument(t *testing.T) {
	got := compose(t, "src/app/foo.ts",
		newDoc("multi", []string{"**/*.ts", "src/app/*.ts"}, sec("M", "multi")),
		newDoc("mid", []string{"src/**/*.ts"}, sec("Mid", "mid")),
	)
	// multi matches through src/app/*.ts (21) which beats src/**/*.ts (11)
	if diff := cmp.Diff([]string{"multi", "mid"}, got.AppliedDocuments); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_DocumentGranular(t *testing.T) {
	got := compose(t, "main.go",
		newDoc("go", []string{"**/*.go"}, sec("One", "1"), sec("Two", "2"), sec("Three", "3")),
	)
	var titles []string
	for _, s := range got.MergedSections {
		titles = append(titles, s.Title)
	}
	if diff := cmp.Diff([]string{"One", "Two", "Three"}, titles); diff != "" {
		t.Errorf("sections must keep document order (-want +got):\n%s", diff)
	}
}

func TestCompose_UntitledAndSameDocumentNeverConflict(t *testing.T) {
	got := compose(t, "main.go",
		newDoc("go", []string{"src/*.go", "*.go"}, sec("", "intro one"), sec("Examples", "a"), sec("Examples", "b")),
		newDoc("all", []string{"**"}, sec("", "intro two")),
	)
	if n := len(got.Conflicts()); n != 0 {
		t.Errorf("expected no conflicts, got %d: %+v", n, got.Conflicts())
	}
	if len(got.MergedSections) != 4 {
		t.Errorf("expected 4 sections, got %d", len(got.MergedSections))
	}
}

func TestCompose_ConflictReferencesFirstOwner(t *testing.T) {
	got := compose(t, "src/app/x.ts",
		newDoc("a", []string{"src/app/*.ts"}, sec("Style", "a")),
		newDoc("b", []string{"src/**/*.ts"}, sec("Style", "b")),
		newDoc("c", []string{"**/*.ts"}, sec("Style", "c")),
	)
	conflicts := got.Conflicts()
	if len(conflicts) != 3 {
		t.Fatalf("expected 3 flagged sections, got %d", len(conflicts))
	}
	if conflicts[0].SourceDocumentID != "a" || conflicts[0].ConflictsWith != "" {
		t.Errorf("first owner should be flagged without a reference, got %+v", conflicts[0])
	}
	for _, s := range conflicts[1:] {
		if s.ConflictsWith != "a" {
			t.Errorf("expected conflict to reference a, got %s", s.ConflictsWith)
		}
	}
}

func TestCompose_ConflictAfterSameDocumentRepeat(t *testing.T) {
	got := compose(t, "src/app/x.ts",
		newDoc("a", []string{"src/app/*.ts"}, sec("Style", "one"), sec("Style", "two")),
		newDoc("b", []string{"**/*.ts"}, sec("Style", "three")),
	)
	want := []domain.MergedSection{
		{SourceDocumentID: "a", Title: "Style", Body: "one", Conflict: true},
		{SourceDocumentID: "a", Title: "Style", Body: "two"},
		{SourceDocumentID: "b", Title: "Style", Body: "three", Conflict: true, ConflictsWith: "a"},
	}
	if diff := cmp.Diff(want, got.MergedSections); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeEntries_UsesCompiledPatterns(t *testing.T) {
	idx, err := docindex.Load([]domain.GuidelineDocument{
		newDoc("broad", []string{"**/*.go"}, sec("B", "b")),
		newDoc("narrow", []string{"cmd/*.go"}, sec("N", "n")),
	})
	if err != nil {
		t.Fatal(err)
	}
	entries := idx.MatchingEntries("cmd/main.go")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if loaded, _ := idx.Entry(e.Document.ID); loaded != e {
			t.Errorf("MatchingEntries must return the loaded entry for %s", e.Document.ID)
		}
	}

	// scores come from the entry, not from the raw pattern text
	boosted := *entries[0]
	boosted.Patterns = []scope.Pattern{{Raw: "**/*.go", Specificity: 99}}
	got := NewComposer(nil).ComposeEntries("cmd/main.go", []*docindex.Entry{entries[1], &boosted})
	if diff := cmp.Diff([]string{"broad", "narrow"}, got.AppliedDocuments); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_SkipsCandidateThatFailsToMatch(t *testing.T) {
	good := newDoc("good", []string{"**/*.go"}, sec("G", "g"))
	// bypasses load-time validation to simulate a matcher failure
	bad := newDoc("bad", []string{"[unclosed"}, sec("B", "b"))

	got := NewComposer(nil).Compose("main.go", []*domain.GuidelineDocument{&bad, &good})
	if diff := cmp.Diff([]string{"good"}, got.AppliedDocuments); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_Deterministic(t *testing.T) {
	docs := []domain.GuidelineDocument{
		newDoc("ts", []string{"**/*.ts"}, sec("Typing", "strict"), sec("Style", "x")),
		newDoc("angular", []string{"**/*.component.ts"}, sec("Style", "y")),
		newDoc("all", []string{"**"}, sec("Typing", "strict")),
	}
	idx, err := docindex.Load(docs)
	if err != nil {
		t.Fatal(err)
	}
	c := NewComposer(nil)
	path := "src/app/user.component.ts"

	first, _ := json.Marshal(c.Compose(path, idx.CandidatesFor(path)))
	for i := 0; i < 20; i++ {
		again, _ := json.Marshal(c.Compose(path, idx.CandidatesFor(path)))
		if string(first) != string(again) {
			t.Fatalf("non-deterministic output:\n%s\n%s", first, again)
		}
	}
}
