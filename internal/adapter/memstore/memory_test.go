package memstore

import (
	"testing"

	"guide/internal/domain"
	"guide/internal/port"
)

var _ port.ParseCache = (*MemoryStore)(nil)

func TestMemoryStore_CopiesDocuments(t *testing.T) {
	s := NewMemoryStore()
	doc := domain.GuidelineDocument{ID: "go", ScopePatterns: []string{"**/*.go"}}
	if err := s.PutBatch(map[string]domain.CachedDocument{"/c/go.md": {ModTime: 1, Size: 2, Document: doc}}); err != nil {
		t.Fatal(err)
	}
	doc.ScopePatterns[0] = "mutated"

	got, ok, err := s.Get("/c/go.md")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Document.ScopePatterns[0] != "**/*.go" {
		t.Errorf("stored document aliased caller memory: %v", got.Document.ScopePatterns)
	}
	got.Document.ScopePatterns[0] = "changed"
	again, _, _ := s.Get("/c/go.md")
	if again.Document.ScopePatterns[0] != "**/*.go" {
		t.Errorf("returned document aliased stored memory: %v", again.Document.ScopePatterns)
	}
}

func TestMemoryStore_KeysAndDelete(t *testing.T) {
	s := NewMemoryStore()
	s.PutBatch(map[string]domain.CachedDocument{"b": {}, "a": {}, "c": {}})
	s.DeleteBatch([]string{"b"})

	keys, _ := s.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("unexpected keys: %v", keys)
	}
	if _, ok, _ := s.Get("b"); ok {
		t.Error("expected b to be deleted")
	}
	if n, _ := s.Count(); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
}
