//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"guide/internal/adapter/markdown"
	"guide/internal/adapter/memstore"
	"guide/internal/domain"
	"guide/internal/usecase"
)

var (
	files  *memstore.MemoryStore
	engine *usecase.Engine
)

func init() {
	files = memstore.NewMemoryStore()
	engine = usecase.NewEngine(nil)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("guideAdd", js.FuncOf(addDocument))
	js.Global().Set("guideQuery", js.FuncOf(queryPath))
	js.Global().Set("guideClear", js.FuncOf(clearDocuments))
	js.Global().Set("guideList", js.FuncOf(listDocuments))

	<-c
}

// addDocument parses a guideline file and republishes the index. The file is
// rejected when the resulting corpus does not load.
func addDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: guideAdd(filename, content)")
	}

	filename := args[0].String()
	content := args[1].String()

	doc, err := markdown.Parse(filename, content)
	if err != nil {
		return makeError("parse failed: " + err.Error())
	}

	previous, hadPrevious, _ := files.Get(filename)
	files.PutBatch(map[string]domain.CachedDocument{filename: {Document: doc}})

	if err := engine.Reload(corpus()); err != nil {
		if hadPrevious {
			files.PutBatch(map[string]domain.CachedDocument{filename: previous})
		} else {
			files.DeleteBatch([]string{filename})
		}
		return makeError("load failed: " + err.Error())
	}

	return makeResult(map[string]interface{}{
		"success":  true,
		"id":       doc.ID,
		"patterns": doc.ScopePatterns,
		"sections": len(doc.Sections),
	})
}

func queryPath(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: guideQuery(path)")
	}
	result, _ := json.Marshal(engine.Query(args[0].String()))
	return string(result)
}

func clearDocuments(this js.Value, args []js.Value) interface{} {
	files = memstore.NewMemoryStore()
	engine.Reload(nil)
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func listDocuments(this js.Value, args []js.Value) interface{} {
	return makeResult(map[string]interface{}{
		"documents": engine.Catalog(),
	})
}

func corpus() []domain.GuidelineDocument {
	keys, _ := files.Keys()
	docs := make([]domain.GuidelineDocument, 0, len(keys))
	for _, key := range keys {
		if cached, ok, _ := files.Get(key); ok {
			docs = append(docs, cached.Document)
		}
	}
	return docs
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
