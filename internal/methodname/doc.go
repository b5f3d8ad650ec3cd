// Package methodname turns derived method names such as findByEmail or
// findTop3ByStatusOrderByCreatedAtDesc into a queryir.Predicate plus the
// subject and ordering modifiers the name carries.
//
// Names are tokenized at uppercase boundaries and matched against the
// fields of an entity.Descriptor. Field matching prefers the longest
// field and falls back to shorter ones when the remainder does not parse,
// so an entity with both code and codeLess fields parses
// findByCodeLessThan as code LessThan.
//
// Parsing is pure. Cache memoizes results per name for the lifetime of
// a repository.
package methodname
