package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the guideline engine.
type Config struct {
	Corpus  CorpusConfig  `yaml:"corpus"`
	Cache   CacheConfig   `yaml:"cache"`
	Store   StoreConfig   `yaml:"store"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// CorpusConfig describes where guideline documents live.
type CorpusConfig struct {
	Dirs        []string `yaml:"dirs"`     // Relative to the root directory unless absolute
	Includes    []string `yaml:"includes"` // Matched against paths relative to each dir
	Excludes    []string `yaml:"excludes"`
	SkipInvalid bool     `yaml:"skip_invalid"` // Exclude documents with bad patterns instead of failing the load
}

// CacheConfig holds composition cache configuration.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// StoreConfig holds parse cache configuration.
type StoreConfig struct {
	Enabled     bool          `yaml:"enabled"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// WatchConfig holds corpus watcher configuration.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Dirs:     []string{".github/instructions", ".guide/guidelines"},
			Includes: []string{"**/*.md", "**/*.mdc"},
			Excludes: []string{"**/node_modules/**", "**/.git/**", "**/README.md"},
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 1024,
			TTL:        10 * time.Minute,
		},
		Store: StoreConfig{
			Enabled:     true,
			LockTimeout: time.Second,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 300 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for guide.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "guide.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".guide", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CorpusDirs resolves the configured corpus directories against root.
func (c *Config) CorpusDirs(root string) []string {
	dirs := make([]string, 0, len(c.Corpus.Dirs))
	for _, d := range c.Corpus.Dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(root, d)
		}
		dirs = append(dirs, d)
	}
	return dirs
}

// StoreDBPath returns the path to the parse cache database.
func StoreDBPath(dir string) string {
	return filepath.Join(dir, ".guide", "corpus.db")
}

// EnsureGuideDir ensures the .guide directory exists.
func EnsureGuideDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".guide"), 0755)
}
