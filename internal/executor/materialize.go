package executor

import (
	"errors"

	"github.com/roach88/derive/internal/entity"
)

var errMissing = errors.New("required field is missing")

// Materialize checks backend rows against d and returns them in canonical
// form: every declared field present (nil for absent nullable fields), every
// value coerced to its semantic type, undeclared keys dropped.
//
// The first non-conforming row aborts the whole call with a
// *MaterializationError.
func Materialize(rows []entity.Row, d *entity.Descriptor) ([]entity.Row, error) {
	fields := d.Fields()
	out := make([]entity.Row, 0, len(rows))
	for i, row := range rows {
		canonical := make(entity.Row, len(fields))
		for _, f := range fields {
			v, ok := row[f.Name]
			if !ok && !f.Nullable {
				return nil, &MaterializationError{Entity: d.Name(), Row: i, Field: f.Name, Err: errMissing}
			}
			cv, err := entity.Coerce(f, v)
			if err != nil {
				return nil, &MaterializationError{Entity: d.Name(), Row: i, Field: f.Name, Err: err}
			}
			canonical[f.Name] = cv
		}
		out = append(out, canonical)
	}
	return out, nil
}

// MaterializeAs materializes rows and maps each to T.
func MaterializeAs[T any](rows []entity.Row, d *entity.Descriptor, mapper entity.Mapper[T]) ([]T, error) {
	canonical, err := Materialize(rows, d)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(canonical))
	for i, row := range canonical {
		v, err := mapper.FromRow(row)
		if err != nil {
			return nil, &MaterializationError{Entity: d.Name(), Row: i, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}
