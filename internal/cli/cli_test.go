package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/textindex/internal/config"
)

const notesJSONL = `{"id":"a","title":"Tomato care","body":"Water tomatoes daily","tags":"garden"}

{"id":"b","title":"Cucumber","body":"Cucumbers like sun","tags":"garden"}
`

// writeTestConfig points a config file at a bolt store in a temp dir.
func writeTestConfig(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	body := "store:\n  backend: " + backend + "\n  path: " + filepath.Join(dir, "index.db") + "\nlogging:\n  level: error\n"
	path := filepath.Join(dir, "textindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, cfgPath string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_AddSearchRemoveCount(t *testing.T) {
	for _, backend := range []string{"bolt", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := writeTestConfig(t, backend)

			// Given two documents imported from JSON lines
			out, err := run(t, cfg, notesJSONL, "add", "--json")
			require.NoError(t, err)
			assert.Equal(t, "a\nb\n", out)

			// When searching a title word
			out, err = run(t, cfg, "", "search", "tomato")
			require.NoError(t, err)

			// Then only the tomato note is found
			assert.Contains(t, out, "Found 1 documents")
			assert.Contains(t, out, "- a (")
			assert.Contains(t, out, "title=Tomato care")

			out, err = run(t, cfg, "", "count")
			require.NoError(t, err)
			assert.Equal(t, "2\n", out)

			// And removing it leaves one document
			out, err = run(t, cfg, "", "remove", "a", "missing")
			require.NoError(t, err)
			assert.Equal(t, "removed 1\n", out)

			out, err = run(t, cfg, "", "count", "--format", "json")
			require.NoError(t, err)
			var cr countResponse
			require.NoError(t, json.Unmarshal([]byte(out), &cr))
			assert.Equal(t, countResponse{Index: "default", Documents: 1}, cr)
		})
	}
}

func TestCLI_AddWithSet(t *testing.T) {
	cfg := writeTestConfig(t, "bolt")

	out, err := run(t, cfg, "", "add", "--id", "n1", "--set", "title=Pruning roses", "--set", "tags=garden")
	require.NoError(t, err)
	assert.Equal(t, "n1\n", out)

	// An id-less document gets one assigned
	out, err = run(t, cfg, "", "add", "--set", "title=Seed trays")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	out, err = run(t, cfg, "", "search", "--format", "json", "tags:garden")
	require.NoError(t, err)
	var resp searchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "n1", resp.Hits[0].ID)
	assert.Equal(t, "Pruning roses", resp.Hits[0].Fields["title"])
}

func TestCLI_SearchFlags(t *testing.T) {
	cfg := writeTestConfig(t, "bolt")
	_, err := run(t, cfg, notesJSONL, "add", "--json")
	require.NoError(t, err)

	// Prefix matching
	out, err := run(t, cfg, "", "search", "--startswith", "--format", "json", "cucu")
	require.NoError(t, err)
	var resp searchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "b", resp.Hits[0].ID)

	// Ordering by field with a limit
	out, err = run(t, cfg, "", "search", "--order-by", "title", "--limit", "1", "--format", "json", "tags:garden")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "b", resp.Hits[0].ID, "Cucumber sorts before Tomato care")
}

func TestCLI_Errors(t *testing.T) {
	cfg := writeTestConfig(t, "bolt")

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"add without values", []string{"add"}, 2, "--set"},
		{"bad set", []string{"add", "--set", "title"}, 2, "field=value"},
		{"json with set", []string{"add", "--json", "--set", "title=x"}, 2, "cannot be combined"},
		{"unknown kind", []string{"search", "--kind", "nope", "x"}, 2, "unknown kind"},
		{"bad format", []string{"count", "--format", "xml"}, 2, "--format"},
		{"unterminated quote", []string{"search", `"red apple`}, 2, "query_parse"},
		{"unknown order field", []string{"search", "--order-by", "color", "x"}, 2, "unknown_field"},
		{"optimize on bolt", []string{"optimize"}, 2, "not supported"},
		{"remove needs ids", []string{"remove"}, 1, "arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, cfg, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, tt.code, exitCode(err))
		})
	}
}

func TestCLI_OptimizeSQLite(t *testing.T) {
	cfg := writeTestConfig(t, "sqlite")
	out, err := run(t, cfg, "", "optimize")
	require.NoError(t, err)
	assert.Equal(t, "optimized\n", out)
}

func TestCLI_BadConfig(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "missing.yaml"), "", "count")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("disk on fire")))
	assert.Equal(t, 2, exitCode(usageErrorf("bad flag")))
}

func newTestSession(t *testing.T) *session {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "index.db")
	cfg.Cache.Type = "lru"
	require.NoError(t, cfg.Validate())

	s, err := openSession(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHandler(t *testing.T) {
	h := newHandler(newTestSession(t))

	do := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	// Given documents posted as JSON lines
	rec := do(http.MethodPost, "/documents", notesJSONL)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ids":["a","b"],"created":2}`, rec.Body.String())

	// When searching over HTTP
	rec = do(http.MethodGet, "/search?q=cucumber", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// Then the match comes back with its fields
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "b", resp.Hits[0].ID)
	assert.Equal(t, "doc", resp.Kind)

	rec = do(http.MethodGet, "/search?q=tom&startswith=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "a", resp.Hits[0].ID)

	rec = do(http.MethodGet, "/count", "")
	assert.JSONEq(t, `{"index":"default","documents":2}`, rec.Body.String())

	rec = do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `textindex_operations_total{op="search",status="ok"} 2`)
}

func TestHandler_Errors(t *testing.T) {
	h := newHandler(newTestSession(t))

	tests := []struct {
		target string
		code   int
	}{
		{"/search", http.StatusBadRequest},
		{"/search?q=x&limit=0", http.StatusBadRequest},
		{"/search?q=x&any=maybe", http.StatusBadRequest},
		{"/search?q=x&kind=nope", http.StatusBadRequest},
		{"/search?q=%22open", http.StatusBadRequest},
		{"/search?q=%22red+apple%22", http.StatusNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}
