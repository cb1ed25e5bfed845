// Package document holds the transient document model: schemas that name
// the typed fields of a document kind, documents built from them, and the
// persisted record a document is rebuilt from.
package document

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/nonibytes/textindex/textindex/field"
)

// IDField is the reserved value key carrying a document's id.
const IDField = "id"

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidSchema = errors.New("invalid schema")
)

var (
	kindNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	// Queries are lower-cased before parsing, so field names must already be.
	fieldNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// Schema is the ordered set of fields of one document kind.
type Schema struct {
	kind   string
	names  []string
	fields map[string]field.Field
}

// SchemaBuilder collects fields; the first error sticks and is returned by
// Build.
type SchemaBuilder struct {
	s   *Schema
	err error
}

func NewSchema(kind string) *SchemaBuilder {
	b := &SchemaBuilder{s: &Schema{kind: kind, fields: make(map[string]field.Field)}}
	if !kindNameRe.MatchString(kind) {
		b.err = fmt.Errorf("%w: kind %q must match %s", ErrInvalidSchema, kind, kindNameRe)
	}
	return b
}

// Field appends a field. Order of calls is the schema order.
func (b *SchemaBuilder) Field(name string, f field.Field) *SchemaBuilder {
	if b.err != nil {
		return b
	}
	switch {
	case !fieldNameRe.MatchString(name):
		b.err = fmt.Errorf("%w: field %q must match %s", ErrInvalidSchema, name, fieldNameRe)
	case name == IDField:
		b.err = fmt.Errorf("%w: field name %q is reserved", ErrInvalidSchema, name)
	case f == nil:
		b.err = fmt.Errorf("%w: field %q is nil", ErrInvalidSchema, name)
	default:
		if _, dup := b.s.fields[name]; dup {
			b.err = fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, name)
			return b
		}
		b.s.names = append(b.s.names, name)
		b.s.fields[name] = f
	}
	return b
}

func (b *SchemaBuilder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.s.names) == 0 {
		return nil, fmt.Errorf("%w: kind %q has no fields", ErrInvalidSchema, b.s.kind)
	}
	return b.s, nil
}

// MustBuild is Build for package-level schemas.
func (b *SchemaBuilder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Kind() string { return s.kind }

// Names returns field names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Schema) Get(name string) (field.Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

func (s *Schema) Len() int { return len(s.names) }

// Registry maps kind names to schemas.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

func (r *Registry) Register(s *Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[s.kind]; ok {
		return fmt.Errorf("kind %q already registered", s.kind)
	}
	r.schemas[s.kind] = s
	return nil
}

func (r *Registry) Lookup(kind string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[kind]
	return s, ok
}

// Kinds returns registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
