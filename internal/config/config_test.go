package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/textindex/textindex/field"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, "default", cfg.Index.Name)
	assert.Equal(t, 5000, cfg.Index.FanOut)
	assert.Equal(t, 1000, cfg.Search.Limit)
	assert.True(t, cfg.Search.MatchAll)
	assert.Equal(t, "none", cfg.Cache.Type)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultKind}, reg.Kinds())
}

func TestLoad_File(t *testing.T) {
	// Given a file that switches to sqlite and declares a kind
	path := writeConfig(t, `
store:
  backend: sqlite
  path: /tmp/notes.db
  driver: sqlite3
index:
  name: notes
search:
  limit: 25
  match_all: false
cache:
  type: redis
  redis:
    addr: cache:6379
    ttl: 30s
kinds:
  note:
    - name: title
      type: text
      not_null: true
    - name: body
      type: fuzzy_text
      stemmer: porter
      min_length: 4
    - name: stars
      type: number
      default: 0
`)

	// When it is loaded
	cfg, err := Load(path)
	require.NoError(t, err)

	// Then file values win over defaults
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.Equal(t, "notes", cfg.Index.Name)
	assert.Equal(t, 30*time.Second, cfg.Cache.Redis.TTL)
	assert.Equal(t, 10, cfg.Cache.Redis.PoolSize, "unset keys keep their default")

	so := cfg.SearchOptions()
	assert.Equal(t, 25, so.Limit)
	assert.False(t, so.MatchAll)

	// And the kind is built in declaration order
	reg, err := cfg.Registry()
	require.NoError(t, err)
	s, ok := reg.Lookup("note")
	require.True(t, ok)
	assert.Equal(t, []string{"title", "body", "stars"}, s.Names())

	title, _ := s.Get("title")
	assert.False(t, title.Options().Null)
	body, _ := s.Get("body")
	assert.Equal(t, field.TypeFuzzyText, body.Type())
	assert.Equal(t, 4, body.Options().MinLength)
	assert.Contains(t, body.Tokenize("gardening"), "garden")
	stars, _ := s.Get("stars")
	assert.Equal(t, 0, stars.Options().Default)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TEXTINDEX_STORE_BACKEND", "postgres")
	t.Setenv("TEXTINDEX_POSTGRES_DSN", "postgres://localhost/textindex")
	t.Setenv("TEXTINDEX_FAN_OUT", "42")
	t.Setenv("TEXTINDEX_METRICS_ENABLED", "true")
	t.Setenv("TEXTINDEX_REDIS_TTL", "2m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://localhost/textindex", cfg.Store.DSN)
	assert.Equal(t, 42, cfg.Index.FanOut)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Cache.Redis.TTL)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("TEXTINDEX_FAN_OUT", "lots")
	_, err := Load("")
	assert.ErrorContains(t, err, "TEXTINDEX_FAN_OUT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }, "store.backend"},
		{"bolt without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres" }, "store.dsn"},
		{"bad driver", func(c *Config) { c.Store.Driver = "pgx" }, "store.driver"},
		{"bad index name", func(c *Config) { c.Index.Name = "a|b" }, "index.name"},
		{"negative fan out", func(c *Config) { c.Index.FanOut = -1 }, "index.fan_out"},
		{"lru without size", func(c *Config) { c.Cache.Type = "lru"; c.Cache.Size = 0 }, "cache.size"},
		{"unknown cache", func(c *Config) { c.Cache.Type = "memcached" }, "cache.type"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"unknown field type", func(c *Config) {
			c.Kinds = map[string][]FieldConfig{"note": {{Name: "title", Type: "blob"}}}
		}, "unknown field type"},
		{"unknown stemmer", func(c *Config) {
			c.Kinds = map[string][]FieldConfig{"note": {{Name: "body", Type: field.TypeFuzzyText, Stemmer: "snowball"}}}
		}, "unknown stemmer"},
		{"reserved field", func(c *Config) {
			c.Kinds = map[string][]FieldConfig{"note": {{Name: "id", Type: field.TypeAtom}}}
		}, "reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	require.NoError(t, Default().Validate())
}
