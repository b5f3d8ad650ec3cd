package entity

// Mapper converts between a typed entity and its Row form. Mappers are
// written by hand next to the entity type or generated by the codegen
// package; the core never inspects T itself.
type Mapper[T any] interface {
	ToRow(v T) Row
	FromRow(r Row) (T, error)
}

// MapperFuncs adapts a pair of functions to the Mapper interface.
type MapperFuncs[T any] struct {
	To   func(T) Row
	From func(Row) (T, error)
}

func (m MapperFuncs[T]) ToRow(v T) Row { return m.To(v) }

func (m MapperFuncs[T]) FromRow(r Row) (T, error) { return m.From(r) }
