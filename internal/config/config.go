// Package config loads the textindex configuration from a YAML file with
// TEXTINDEX_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nonibytes/textindex/internal/logging"
	"github.com/nonibytes/textindex/textindex"
	"github.com/nonibytes/textindex/textindex/document"
	"github.com/nonibytes/textindex/textindex/field"
	"github.com/nonibytes/textindex/textindex/ops"
	"github.com/nonibytes/textindex/textindex/query"
	"github.com/nonibytes/textindex/textindex/storage"
)

// Config is the top-level configuration.
type Config struct {
	Store   StoreConfig              `yaml:"store"`
	Index   IndexConfig              `yaml:"index"`
	Search  SearchConfig             `yaml:"search"`
	Cache   CacheConfig              `yaml:"cache"`
	Logging logging.Config           `yaml:"logging"`
	Metrics MetricsConfig            `yaml:"metrics"`
	Kinds   map[string][]FieldConfig `yaml:"kinds"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	// Backend is bolt, sqlite or postgres.
	Backend string `yaml:"backend"`
	// Path is the database file for bolt and sqlite.
	Path string `yaml:"path"`
	// Driver picks the SQLite driver: "sqlite" (modernc) or "sqlite3" (mattn).
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

type IndexConfig struct {
	Name           string `yaml:"name"`
	FanOut         int    `yaml:"fan_out"`
	ParseCacheSize int    `yaml:"parse_cache_size"`
}

// SearchConfig holds the defaults applied to every search.
type SearchConfig struct {
	Limit          int  `yaml:"limit"`
	MatchAll       bool `yaml:"match_all"`
	MatchStopwords bool `yaml:"match_stopwords"`
	Startswith     bool `yaml:"startswith"`
}

// CacheConfig configures the ranked-result cache.
type CacheConfig struct {
	// Type is none, lru or redis.
	Type  string      `yaml:"type"`
	Size  int         `yaml:"size"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	TTL      time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// FieldConfig declares one field of a document kind.
type FieldConfig struct {
	Name       string     `yaml:"name"`
	Type       field.Type `yaml:"type"`
	Default    any        `yaml:"default,omitempty"`
	NotNull    bool       `yaml:"not_null,omitempty"`
	NotIndexed bool       `yaml:"not_indexed,omitempty"`
	// MinLength and Stemmer apply to fuzzy_text only. Stemmer is "none"
	// (the default hook) or "porter".
	MinLength int    `yaml:"min_length,omitempty"`
	Stemmer   string `yaml:"stemmer,omitempty"`
}

// DefaultKind is the document kind used when the file declares none.
const DefaultKind = "doc"

// Default returns a configuration that runs a bolt store in ./data.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: string(storage.BackendBolt),
			Path:    "data/textindex.db",
			Schema:  "textindex",
		},
		Index: IndexConfig{
			Name:           textindex.DefaultName,
			FanOut:         ops.DefaultFanOut,
			ParseCacheSize: query.DefaultCacheSize,
		},
		Search: SearchConfig{
			Limit:          textindex.DefaultLimit,
			MatchAll:       true,
			MatchStopwords: true,
		},
		Cache: CacheConfig{
			Type: "none",
			Size: 1024,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				TTL:      5 * time.Minute,
			},
		},
		Logging: logging.DefaultConfig(),
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides reads TEXTINDEX_* variables.
func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		"TEXTINDEX_STORE_BACKEND":   &c.Store.Backend,
		"TEXTINDEX_STORE_PATH":      &c.Store.Path,
		"TEXTINDEX_STORE_DRIVER":    &c.Store.Driver,
		"TEXTINDEX_POSTGRES_DSN":    &c.Store.DSN,
		"TEXTINDEX_POSTGRES_SCHEMA": &c.Store.Schema,
		"TEXTINDEX_INDEX_NAME":      &c.Index.Name,
		"TEXTINDEX_CACHE_TYPE":      &c.Cache.Type,
		"TEXTINDEX_REDIS_ADDR":      &c.Cache.Redis.Addr,
		"TEXTINDEX_REDIS_PASSWORD":  &c.Cache.Redis.Password,
		"TEXTINDEX_LOG_LEVEL":       &c.Logging.Level,
		"TEXTINDEX_LOG_FORMAT":      &c.Logging.Format,
		"TEXTINDEX_METRICS_ADDR":    &c.Metrics.Addr,
	}
	for env, dst := range str {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TEXTINDEX_FAN_OUT":      &c.Index.FanOut,
		"TEXTINDEX_SEARCH_LIMIT": &c.Search.Limit,
		"TEXTINDEX_CACHE_SIZE":   &c.Cache.Size,
		"TEXTINDEX_REDIS_DB":     &c.Cache.Redis.DB,
	}
	for env, dst := range ints {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		*dst = n
	}

	if v := os.Getenv("TEXTINDEX_METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TEXTINDEX_METRICS_ENABLED: %w", err)
		}
		c.Metrics.Enabled = b
	}
	if v := os.Getenv("TEXTINDEX_REDIS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TEXTINDEX_REDIS_TTL: %w", err)
		}
		c.Cache.Redis.TTL = d
	}
	return nil
}

// Validate reports every problem it finds, joined.
func (c *Config) Validate() error {
	var errs []error

	switch storage.Backend(c.Store.Backend) {
	case storage.BackendBolt, storage.BackendSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for backend %s", c.Store.Backend))
		}
	case storage.BackendPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for backend postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be bolt, sqlite or postgres, got %q", c.Store.Backend))
	}
	switch c.Store.Driver {
	case "", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be sqlite or sqlite3, got %q", c.Store.Driver))
	}

	if err := storage.ValidName("index.name", c.Index.Name); err != nil {
		errs = append(errs, err)
	}
	if c.Index.FanOut < 0 {
		errs = append(errs, errors.New("index.fan_out must not be negative"))
	}
	if c.Search.Limit < 0 {
		errs = append(errs, errors.New("search.limit must not be negative"))
	}

	switch c.Cache.Type {
	case "", "none":
	case "lru":
		if c.Cache.Size <= 0 {
			errs = append(errs, errors.New("cache.size must be positive for the lru cache"))
		}
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.type must be none, lru or redis, got %q", c.Cache.Type))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
	}

	if _, err := c.Registry(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SearchOptions returns the configured search defaults.
func (c *Config) SearchOptions() textindex.SearchOptions {
	so := textindex.DefaultSearchOptions()
	if c.Search.Limit > 0 {
		so.Limit = c.Search.Limit
	}
	so.MatchAll = c.Search.MatchAll
	so.MatchStopwords = c.Search.MatchStopwords
	so.UseStartswith = c.Search.Startswith
	return so
}

// DefaultKinds is used when the configuration declares no kinds.
func DefaultKinds() map[string][]FieldConfig {
	return map[string][]FieldConfig{
		DefaultKind: {
			{Name: "title", Type: field.TypeText},
			{Name: "body", Type: field.TypeFuzzyText},
			{Name: "tags", Type: field.TypeAtom},
		},
	}
}

// Registry builds the document schemas declared under kinds.
func (c *Config) Registry() (*document.Registry, error) {
	kinds := c.Kinds
	if len(kinds) == 0 {
		kinds = DefaultKinds()
	}
	reg := document.NewRegistry()
	for kind, fields := range kinds {
		b := document.NewSchema(kind)
		for _, fc := range fields {
			f, err := fc.Build()
			if err != nil {
				return nil, fmt.Errorf("kind %s: %w", kind, err)
			}
			b.Field(fc.Name, f)
		}
		s, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("kind %s: %w", kind, err)
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Build turns the declaration into a field.
func (fc FieldConfig) Build() (field.Field, error) {
	var opts []field.Option
	if fc.Default != nil {
		opts = append(opts, field.WithDefault(fc.Default))
	}
	if fc.NotNull {
		opts = append(opts, field.NotNull())
	}
	if fc.NotIndexed {
		opts = append(opts, field.NotIndexed())
	}
	if fc.Type == field.TypeFuzzyText {
		if fc.MinLength > 0 {
			opts = append(opts, field.WithMinLength(fc.MinLength))
		}
		switch fc.Stemmer {
		case "", "none":
		case "porter":
			opts = append(opts, field.WithIndexers(field.PorterStemmer))
		default:
			return nil, fmt.Errorf("field %s: unknown stemmer %q", fc.Name, fc.Stemmer)
		}
	}
	f, err := field.New(fc.Type, opts...)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", fc.Name, err)
	}
	return f, nil
}
