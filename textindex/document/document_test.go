package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/textindex/textindex/field"
)

func noteSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema("note").
		Field("title", field.NewText()).
		Field("body", field.NewFuzzyText()).
		Field("views", field.NewNumber(field.WithDefault(int64(0)))).
		Field("created", field.NewDate()).
		Field("tag", field.NewAtom(field.NotNull())).
		Build()
	require.NoError(t, err)
	return s
}

func TestSchemaBuilder(t *testing.T) {
	s := noteSchema(t)

	assert.Equal(t, "note", s.Kind())
	assert.Equal(t, []string{"title", "body", "views", "created", "tag"}, s.Names())
	assert.Equal(t, 5, s.Len())
	f, ok := s.Get("views")
	require.True(t, ok)
	assert.Equal(t, field.TypeNumber, f.Type())
}

func TestSchemaBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    *SchemaBuilder
	}{
		{"bad kind", NewSchema("a|b").Field("x", field.NewText())},
		{"bad field", NewSchema("k").Field("a|b", field.NewText())},
		{"upper case field", NewSchema("k").Field("Title", field.NewText())},
		{"reserved id", NewSchema("k").Field("id", field.NewText())},
		{"duplicate", NewSchema("k").Field("x", field.NewText()).Field("x", field.NewAtom())},
		{"nil field", NewSchema("k").Field("x", nil)},
		{"empty", NewSchema("k")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestSchemaNew_DefaultsAndID(t *testing.T) {
	s := noteSchema(t)

	d, err := s.New(map[string]any{"id": 7, "title": "Hello"})
	require.NoError(t, err)

	assert.Equal(t, "7", d.ID)
	assert.Equal(t, "Hello", d.Get("title"))
	assert.Equal(t, int64(0), d.Get("views"))
	assert.Nil(t, d.Get("body"))
	_, hasID := d.Values()["id"]
	assert.False(t, hasID, "id is not a field value")
}

func TestSchemaNew_UnknownKey(t *testing.T) {
	_, err := noteSchema(t).New(map[string]any{"nope": 1})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSchemaNew_Options(t *testing.T) {
	s := noteSchema(t)
	override := field.NewAtom()

	d, err := s.New(nil, WithID("x"), WithField("title", override))
	require.NoError(t, err)
	assert.Equal(t, "x", d.ID)
	f, _ := d.Field("title")
	assert.Same(t, override, f)

	_, err = s.New(nil, WithField("missing", override))
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestDocument_SetAndEqual(t *testing.T) {
	s := noteSchema(t)
	a, _ := s.New(nil)
	b, _ := s.New(nil)

	require.NoError(t, a.Set("title", "x"))
	assert.ErrorIs(t, a.Set("nope", "x"), ErrUnknownField)

	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b), "no ids")

	a.ID, b.ID = "1", "1"
	assert.True(t, a.Equal(b))
	b.ID = "2"
	assert.False(t, a.Equal(b))
}

func TestFromRecord(t *testing.T) {
	s := noteSchema(t)
	created := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	r := &Record{IndexID: "default", DocumentID: "42", Kind: "note"}
	require.NoError(t, r.SetValues(map[string]any{
		"title":   "Hello",
		"views":   12,
		"created": created,
		"tag":     "go",
		"stale":   "ignored",
	}))
	b, err := r.Marshal()
	require.NoError(t, err)

	r2, err := UnmarshalRecord(b)
	require.NoError(t, err)
	d, err := s.FromRecord(r2)
	require.NoError(t, err)

	assert.Equal(t, "42", d.ID)
	assert.Same(t, r2, d.Record())
	assert.Equal(t, "Hello", d.Get("title"))
	assert.Equal(t, int64(12), d.Get("views"))
	assert.True(t, created.Equal(d.Get("created").(time.Time)))
	assert.Nil(t, d.Get("body"))
}

func TestRecord_RawValuesKeepsNumbers(t *testing.T) {
	r := &Record{Values: json.RawMessage(`{"n": 9007199254740993}`)}
	raw, err := r.RawValues()
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), raw["n"])
}

func TestRecord_SetEntriesSorted(t *testing.T) {
	r := &Record{}
	r.SetEntries([]string{"b", "a"})
	assert.Equal(t, []string{"a", "b"}, r.Entries)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	s := noteSchema(t)

	require.NoError(t, r.Register(s))
	assert.Error(t, r.Register(s))

	got, ok := r.Lookup("note")
	assert.True(t, ok)
	assert.Same(t, s, got)
	_, ok = r.Lookup("other")
	assert.False(t, ok)
	assert.Equal(t, []string{"note"}, r.Kinds())
}
