package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"guide/internal/domain"
)

var (
	bucketDocs = []byte("docs")
	bucketMeta = []byte("meta")
)

// BoltStore caches parsed guideline documents keyed by source path so that
// unchanged files are not parsed again on reload.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens the cache at path. timeout bounds the wait for the file
// lock held by another process; zero waits indefinitely.
func NewBoltStore(path string, timeout time.Duration) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key string) (domain.CachedDocument, bool, error) {
	var (
		cached domain.CachedDocument
		found  bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &cached)
	})
	return cached, found, err
}

// PutBatch stores several entries in one transaction.
func (s *BoltStore) PutBatch(entries map[string]domain.CachedDocument) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		for key, cached := range entries {
			data, err := json.Marshal(cached)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteBatch removes the given keys in one transaction.
func (s *BoltStore) DeleteBatch(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys returns every cached source path in key order.
func (s *BoltStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Count returns the number of cached documents.
func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketDocs).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
