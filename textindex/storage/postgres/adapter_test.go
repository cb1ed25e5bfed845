package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/textindex/textindex/storage"
	"github.com/nonibytes/textindex/textindex/storage/storetest"
)

func TestAdapter_RejectsBadSchema(t *testing.T) {
	for _, name := range []string{"", "1abc", `x"y`, "a-b"} {
		_, err := New("postgres://localhost/db", name).Connect(context.Background())
		assert.Error(t, err, name)
	}
}

func TestAdapter_Dialect(t *testing.T) {
	d := New("", "s").Dialect()
	assert.Equal(t, storage.BackendPostgres, d.Backend)
	assert.True(t, d.ReadOnlyTx)
	assert.Equal(t, "SELECT value FROM kv WHERE bucket = $1 AND key = $2", d.SQL.Get)
	assert.Equal(t, "SELECT key, value FROM kv WHERE bucket = $1 AND key >= $2 AND key < $3", d.SQL.ScanPrefix)
	assert.Contains(t, d.SQL.NextSequence, "VALUES($1, 1)")
}

// TestStore needs a reachable server in TEXTINDEX_TEST_POSTGRES_DSN.
func TestStore(t *testing.T) {
	dsn := os.Getenv("TEXTINDEX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEXTINDEX_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) storage.Store {
		schema := fmt.Sprintf("textindex_test_%d", time.Now().UnixNano())
		s, err := New(dsn, schema).Open(context.Background())
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = s.DB().Exec("DROP SCHEMA " + quoteIdent(schema) + " CASCADE")
			_ = s.Close()
		})
		return s
	})
}
