// Package entity holds the static metadata the repository core needs about an
// entity type: its identifier, its queryable fields and their semantic types.
//
// A Descriptor is built once per entity type with NewDescriptor and is
// immutable afterwards. Descriptors are passed explicitly to every component
// that needs them; the optional Registry exists for bootstrap code that loads
// many entity types (for example from CUE schema files) and wants a single
// place to look them up by name.
//
// # Values
//
// Rows travel between the core and storage backends as Row values, a plain
// map from field name to a primitive. Each semantic type has exactly one
// canonical Go representation:
//
//	string   string, bytes kept as given
//	number   int64 for whole numbers, float64 otherwise
//	boolean  bool
//	date     time.Time in UTC, truncated to DatePrecision
//	enum     string, member of Field.Enum
//
// Coerce converts driver-level values ([]byte, int32, RFC 3339 text, ...) into
// that representation, or reports why it cannot.
package entity
