package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/methodname"
)

// Entity is an entity declaration compiled from CUE.
type Entity struct {
	Descriptor *entity.Descriptor
	Methods    []Method // declaration order
	Pos        token.Pos
}

// Method is a declared derived method, parsed and checked against its
// argument types.
type Method struct {
	Name   string
	Args   []compiler.ArgType
	Parsed *methodname.Method
	Pos    token.Pos
}

// CompileEntity compiles the CUE value of one entity declaration. The
// entity name is the last selector of v's path, so v should be looked up
// as e.g. "entity.User".
//
// A malformed entity yields no Entity. Method problems are collected: the
// returned Entity holds the methods that compiled.
func CompileEntity(v cue.Value) (*Entity, []error) {
	name := ""
	if sels := v.Path().Selectors(); len(sels) > 0 {
		name = sels[len(sels)-1].String()
	}
	if err := v.Err(); err != nil {
		return nil, []error{fromCUE(ErrCodeBuildFailed, name, err)}
	}

	d, err := compileDescriptor(name, v)
	if err != nil {
		return nil, []error{err}
	}

	ent := &Entity{Descriptor: d, Pos: v.Pos()}
	methods, errs := compileMethods(d, v)
	ent.Methods = methods
	return ent, errs
}

func compileDescriptor(name string, v cue.Value) (*entity.Descriptor, error) {
	invalid := func(pos token.Pos, format string, args ...any) error {
		return &Error{Code: ErrCodeInvalidEntity, Entity: name, Message: fmt.Sprintf(format, args...), Pos: pos}
	}

	// id is optional, default "id"
	idName := "id"
	if idVal := v.LookupPath(cue.ParsePath("id")); idVal.Exists() {
		s, err := idVal.String()
		if err != nil {
			return nil, fromCUE(ErrCodeInvalidEntity, name, err)
		}
		idName = s
	}

	var opts []entity.DescriptorOption
	if tableVal := v.LookupPath(cue.ParsePath("table")); tableVal.Exists() {
		table, err := tableVal.String()
		if err != nil {
			return nil, fromCUE(ErrCodeInvalidEntity, name, err)
		}
		opts = append(opts, entity.WithTable(table))
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, invalid(v.Pos(), "fields are required")
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, fromCUE(ErrCodeInvalidEntity, name, err)
	}

	var fields []entity.Field
	for iter.Next() {
		f, err := compileField(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	d, err := entity.NewDescriptor(name, idName, fields, opts...)
	if err != nil {
		return nil, invalid(fieldsVal.Pos(), "%v", err)
	}
	return d, nil
}

// compileField parses {type, nullable?, values?, column?}.
func compileField(entityName, name string, v cue.Value) (entity.Field, error) {
	f := entity.Field{Name: name}
	invalid := func(format string, args ...any) error {
		return &Error{
			Code:    ErrCodeInvalidField,
			Entity:  entityName,
			Message: fmt.Sprintf("field %s: ", name) + fmt.Sprintf(format, args...),
			Pos:     v.Pos(),
		}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return f, invalid("type is required")
	}
	typeName, err := typeVal.String()
	if err != nil {
		return f, fromCUE(ErrCodeInvalidField, entityName, err)
	}
	if f.Type, err = entity.ParseSemanticType(typeName); err != nil {
		return f, invalid("%v", err)
	}

	if nullVal := v.LookupPath(cue.ParsePath("nullable")); nullVal.Exists() {
		if f.Nullable, err = nullVal.Bool(); err != nil {
			return f, fromCUE(ErrCodeInvalidField, entityName, err)
		}
	}

	if colVal := v.LookupPath(cue.ParsePath("column")); colVal.Exists() {
		if f.Column, err = colVal.String(); err != nil {
			return f, fromCUE(ErrCodeInvalidField, entityName, err)
		}
	}

	if valuesVal := v.LookupPath(cue.ParsePath("values")); valuesVal.Exists() {
		list, err := valuesVal.List()
		if err != nil {
			return f, fromCUE(ErrCodeInvalidField, entityName, err)
		}
		for list.Next() {
			member, err := list.Value().String()
			if err != nil {
				return f, fromCUE(ErrCodeInvalidField, entityName, err)
			}
			f.Enum = append(f.Enum, member)
		}
	}

	return f, nil
}

// compileMethods parses methods: {name: [argType, ...]}.
func compileMethods(d *entity.Descriptor, v cue.Value) ([]Method, []error) {
	methodsVal := v.LookupPath(cue.ParsePath("methods"))
	if !methodsVal.Exists() {
		return nil, nil // methods are optional
	}
	iter, err := methodsVal.Fields()
	if err != nil {
		return nil, []error{fromCUE(ErrCodeInvalidMethod, d.Name(), err)}
	}

	var (
		methods []Method
		errs    []error
	)
	for iter.Next() {
		m, err := compileMethod(d, iter.Label(), iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		methods = append(methods, m)
	}
	return methods, errs
}

func compileMethod(d *entity.Descriptor, name string, v cue.Value) (Method, error) {
	m := Method{Name: name, Pos: v.Pos()}

	list, err := v.List()
	if err != nil {
		return m, fromCUE(ErrCodeInvalidSignature, d.Name(), err)
	}
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return m, fromCUE(ErrCodeInvalidSignature, d.Name(), err)
		}
		at, err := compiler.ParseArgType(s)
		if err != nil {
			return m, &Error{
				Code:    ErrCodeInvalidSignature,
				Entity:  d.Name(),
				Message: fmt.Sprintf("%s: %v", name, err),
				Pos:     list.Value().Pos(),
				Err:     err,
			}
		}
		m.Args = append(m.Args, at)
	}

	if m.Parsed, err = methodname.Parse(name, d); err != nil {
		return m, methodError(d.Name(), m.Pos, err)
	}
	if err := compiler.CheckSignature(m.Parsed, d, m.Args); err != nil {
		return m, methodError(d.Name(), m.Pos, err)
	}
	return m, nil
}
