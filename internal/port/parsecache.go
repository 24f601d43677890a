package port

import "guide/internal/domain"

// ParseCache remembers parsed documents by source path so reloads only parse
// files whose modification time or size changed.
type ParseCache interface {
	Get(key string) (domain.CachedDocument, bool, error)

	PutBatch(entries map[string]domain.CachedDocument) error

	DeleteBatch(keys []string) error

	Keys() ([]string, error)

	Count() (int, error)

	Close() error
}
