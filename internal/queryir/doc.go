// Package queryir provides the intermediate representation of derived
// queries.
//
// Two trees live here, one on each side of argument binding:
//
//	[method name] → Predicate (Comparison / Logical, positional ArgIndex)
//	                   │  + args
//	                   ▼
//	              Query (Predicate + coerced Args + OrderBy + Limit)
//	                   │  Bind
//	                   ▼
//	              Filter (Condition / Junction, concrete values) → backend
//
// Predicate is what the method-name parser produces and what the parse cache
// stores; it carries no values and is shared between calls. Filter is what a
// storage backend receives; it is built per call and discarded afterwards.
//
// SEALED INTERFACES:
//
// Predicate and Filter are sealed with marker methods. Only types in this
// package implement them, so backends can switch over them exhaustively:
//
//	switch f := filter.(type) {
//	case queryir.Condition:
//	    // field <op> value
//	case queryir.Junction:
//	    // left AND/OR right
//	}
//
// ORDER OF EVALUATION:
//
// Trees are built strictly left-to-right in the order clauses appear in the
// method name. There is no precedence between And and Or:
//
//	findByAOrBAndC  →  Logical{And, Logical{Or, A, B}, C}
//
// Nothing in this package reorders a tree. Backends must preserve the
// grouping (SQL backends parenthesize every Junction).
package queryir
