package entity

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// SemanticType is the storage-independent type of an entity field.
type SemanticType string

const (
	TypeString  SemanticType = "string"
	TypeNumber  SemanticType = "number"
	TypeBoolean SemanticType = "boolean"
	TypeDate    SemanticType = "date"
	TypeEnum    SemanticType = "enum"
)

// SemanticTypes lists every valid semantic type.
var SemanticTypes = []SemanticType{TypeString, TypeNumber, TypeBoolean, TypeDate, TypeEnum}

// ParseSemanticType validates a type name as found in schema files.
func ParseSemanticType(s string) (SemanticType, error) {
	t := SemanticType(s)
	if !slices.Contains(SemanticTypes, t) {
		return "", fmt.Errorf("unknown semantic type %q: must be one of %v", s, SemanticTypes)
	}
	return t, nil
}

// Ordered reports whether values of the type support LessThan/GreaterThan.
func (t SemanticType) Ordered() bool {
	return t == TypeString || t == TypeNumber || t == TypeDate
}

// Textual reports whether values of the type are strings.
func (t SemanticType) Textual() bool {
	return t == TypeString || t == TypeEnum
}

// Field describes a single entity attribute.
type Field struct {
	Name     string
	Type     SemanticType
	Nullable bool
	Enum     []string // allowed values, TypeEnum only
	Column   string   // storage column; defaults to the underscored name
}

// Token is the capitalized form of the field name as it appears inside a
// derived method name: "email" -> "Email", "createdAt" -> "CreatedAt".
func (f Field) Token() string {
	return inflect.Capitalize(f.Name)
}

// Descriptor is the immutable metadata of one entity type.
type Descriptor struct {
	name   string
	table  string
	id     string
	fields map[string]Field
	order  []string // declaration order, id first
}

// DescriptorOption customizes NewDescriptor.
type DescriptorOption func(*Descriptor)

// WithTable overrides the default table name.
func WithTable(table string) DescriptorOption {
	return func(d *Descriptor) {
		d.table = table
	}
}

// NewDescriptor validates and builds the descriptor of an entity type.
//
// idField must name one of fields. The identifier must be a non-nullable
// string or number. Field names must be identifiers starting with a lowercase
// letter so that they can be recognized inside camel-cased method names.
func NewDescriptor(name, idField string, fields []Field, opts ...DescriptorOption) (*Descriptor, error) {
	if name == "" {
		return nil, fmt.Errorf("entity name is required")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("entity %s: at least one field is required", name)
	}

	d := &Descriptor{
		name:   name,
		id:     idField,
		fields: make(map[string]Field, len(fields)),
	}

	for _, f := range fields {
		if err := validateField(f); err != nil {
			return nil, fmt.Errorf("entity %s: %w", name, err)
		}
		if _, dup := d.fields[f.Name]; dup {
			return nil, fmt.Errorf("entity %s: duplicate field %q", name, f.Name)
		}
		if f.Column == "" {
			f.Column = inflect.Underscore(f.Name)
		}
		f.Enum = slices.Clone(f.Enum)
		d.fields[f.Name] = f
		if f.Name == idField {
			d.order = slices.Insert(d.order, 0, f.Name)
		} else {
			d.order = append(d.order, f.Name)
		}
	}

	id, ok := d.fields[idField]
	if !ok {
		return nil, fmt.Errorf("entity %s: id field %q is not declared", name, idField)
	}
	if id.Nullable {
		return nil, fmt.Errorf("entity %s: id field %q cannot be nullable", name, idField)
	}
	if id.Type != TypeString && id.Type != TypeNumber {
		return nil, fmt.Errorf("entity %s: id field %q must be string or number, got %s", name, idField, id.Type)
	}

	d.table = inflect.Pluralize(inflect.Underscore(name))
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

func validateField(f Field) error {
	if f.Name == "" {
		return fmt.Errorf("field name is required")
	}
	for i, r := range f.Name {
		if i == 0 && !unicode.IsLower(r) {
			return fmt.Errorf("field %q must start with a lowercase letter", f.Name)
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("field %q must contain only letters and digits", f.Name)
		}
	}
	if _, err := ParseSemanticType(string(f.Type)); err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	if f.Type == TypeEnum && len(f.Enum) == 0 {
		return fmt.Errorf("field %q: enum requires at least one value", f.Name)
	}
	if f.Type != TypeEnum && len(f.Enum) > 0 {
		return fmt.Errorf("field %q: values are only allowed on enum fields", f.Name)
	}
	return nil
}

// MustDescriptor is NewDescriptor for package-level declarations. It panics
// on an invalid declaration.
func MustDescriptor(name, idField string, fields []Field, opts ...DescriptorOption) *Descriptor {
	d, err := NewDescriptor(name, idField, fields, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the entity name, e.g. "User".
func (d *Descriptor) Name() string { return d.name }

// Table returns the storage table or collection name, e.g. "users".
func (d *Descriptor) Table() string { return d.table }

// ID returns the identifier field.
func (d *Descriptor) ID() Field { return d.fields[d.id] }

// Field looks up a field by name.
func (d *Descriptor) Field(name string) (Field, bool) {
	f, ok := d.fields[name]
	return f, ok
}

// Fields returns all fields in declaration order, identifier first.
func (d *Descriptor) Fields() []Field {
	out := make([]Field, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.fields[name])
	}
	return out
}

// FieldNames returns all field names in declaration order, identifier first.
func (d *Descriptor) FieldNames() []string {
	return slices.Clone(d.order)
}

// Equal reports whether two descriptors declare the same entity.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	if d.name != o.name || d.table != o.table || d.id != o.id || !slices.Equal(d.order, o.order) {
		return false
	}
	for name, f := range d.fields {
		g := o.fields[name]
		if f.Name != g.Name || f.Type != g.Type || f.Nullable != g.Nullable ||
			f.Column != g.Column || !slices.Equal(f.Enum, g.Enum) {
			return false
		}
	}
	return true
}

// String renders the descriptor in a compact single-line form.
func (d *Descriptor) String() string {
	parts := make([]string, 0, len(d.order))
	for _, f := range d.Fields() {
		s := f.Name + ":" + string(f.Type)
		if f.Nullable {
			s += "?"
		}
		parts = append(parts, s)
	}
	return fmt.Sprintf("%s{%s}", d.name, strings.Join(parts, ", "))
}
