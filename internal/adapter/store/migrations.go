package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"guide/config"
)

// CurrentSchemaVersion is the layout version of cached documents.
// Increment it whenever the parser output changes shape.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo stores schema version and configuration hash.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				return fmt.Errorf("corrupt schema version: %w", err)
			}
		}
		if data := b.Get(keyConfigHash); data != nil {
			info.ConfigHash = string(data)
		}
		return nil
	})
	return &info, err
}

func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash hashes the corpus settings that decide which files are
// parsed and which ids they get. A change invalidates every cached document.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		Dirs     []string `json:"dirs"`
		Includes []string `json:"includes"`
		Excludes []string `json:"excludes"`
	}{
		Dirs:     cfg.Corpus.Dirs,
		Includes: cfg.Corpus.Includes,
		Excludes: cfg.Corpus.Excludes,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

func (s *BoltStore) CheckMigration(cfg *config.Config) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("cache created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.ConfigHash != "" && info.ConfigHash != ComputeConfigHash(cfg) {
		result.NeedsRebuild = true
		result.Reason = "corpus configuration changed"
	}

	return result, nil
}

// Prepare brings the cache in line with cfg, dropping every cached document
// when the schema or corpus settings no longer match.
func (s *BoltStore) Prepare(cfg *config.Config) (*MigrationResult, error) {
	result, err := s.CheckMigration(cfg)
	if err != nil {
		return nil, err
	}
	if result.NeedsRebuild {
		if err := s.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	if result.NeedsRebuild || result.NeedsMigration {
		if err := s.Migrate(cfg); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Migrate records the current schema version and config hash.
func (s *BoltStore) Migrate(cfg *config.Config) error {
	return s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}

// Clear removes every cached document. Schema info is kept.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketDocs); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketDocs)
		return err
	})
}
