package document

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nonibytes/textindex/textindex/field"
)

// Document is a transient set of field values for one schema. Its ID is
// empty until the document is first written or loaded.
type Document struct {
	ID string

	schema    *Schema
	overrides map[string]field.Field
	values    map[string]any
	record    *Record
}

type Option func(*Document)

// WithID fixes the document id instead of letting the index assign one.
func WithID(id string) Option {
	return func(d *Document) { d.ID = id }
}

// WithField overrides the schema's field for this instance only. name must
// already exist in the schema.
func WithField(name string, f field.Field) Option {
	return func(d *Document) {
		if d.overrides == nil {
			d.overrides = make(map[string]field.Field)
		}
		d.overrides[name] = f
	}
}

// New builds a document. Fields missing from values take their default;
// an "id" key sets the document id; any other unknown key is an error.
func (s *Schema) New(values map[string]any, opts ...Option) (*Document, error) {
	d := &Document{schema: s, values: make(map[string]any, len(s.names))}
	for _, opt := range opts {
		opt(d)
	}
	for name := range d.overrides {
		if _, ok := s.fields[name]; !ok {
			return nil, fmt.Errorf("%w: %q in kind %q", ErrUnknownField, name, s.kind)
		}
	}

	for k, v := range values {
		if k == IDField {
			id, err := idString(v)
			if err != nil {
				return nil, err
			}
			d.ID = id
			continue
		}
		if _, ok := s.fields[k]; !ok {
			return nil, fmt.Errorf("%w: %q in kind %q", ErrUnknownField, k, s.kind)
		}
		d.values[k] = v
	}
	for _, name := range s.names {
		if _, ok := d.values[name]; !ok {
			f, _ := d.Field(name)
			d.values[name] = f.Options().Default
		}
	}
	return d, nil
}

func idString(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case uint64:
		return strconv.FormatUint(id, 10), nil
	case json.Number:
		return id.String(), nil
	default:
		return "", fmt.Errorf("%w: id must be a string or integer, got %T", field.ErrType, v)
	}
}

func (d *Document) Schema() *Schema { return d.schema }

func (d *Document) Kind() string { return d.schema.kind }

// Field returns the effective field for name, honouring overrides.
func (d *Document) Field(name string) (field.Field, bool) {
	if f, ok := d.overrides[name]; ok {
		return f, true
	}
	return d.schema.Get(name)
}

// Names returns field names in schema order.
func (d *Document) Names() []string { return d.schema.Names() }

func (d *Document) Get(name string) any { return d.values[name] }

func (d *Document) Set(name string, v any) error {
	if _, ok := d.schema.fields[name]; !ok {
		return fmt.Errorf("%w: %q in kind %q", ErrUnknownField, name, d.schema.kind)
	}
	d.values[name] = v
	return nil
}

// Values returns a copy of the field values.
func (d *Document) Values() map[string]any {
	out := make(map[string]any, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Equal compares documents by id. Documents without an id are only equal
// to themselves.
func (d *Document) Equal(o *Document) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil || d.ID == "" || o.ID == "" {
		return false
	}
	return d.ID == o.ID
}

// Record returns the persisted record this document was written to or
// loaded from, if any.
func (d *Document) Record() *Record { return d.record }

// Attach links d to its persisted record and adopts the record's id.
func (d *Document) Attach(r *Record) {
	d.record = r
	if r != nil {
		d.ID = r.DocumentID
	}
}

// FromRecord rebuilds a document from r, converting each stored value
// through its field. Stored keys no longer in the schema are ignored.
func (s *Schema) FromRecord(r *Record) (*Document, error) {
	raw, err := r.RawValues()
	if err != nil {
		return nil, err
	}
	d := &Document{schema: s, values: make(map[string]any, len(s.names))}
	for _, name := range s.names {
		f := s.fields[name]
		v, ok := raw[name]
		if !ok {
			d.values[name] = f.Options().Default
			continue
		}
		d.values[name] = f.ConvertFromIndex(v)
	}
	d.Attach(r)
	return d, nil
}
