// Package memstore is an in-memory executor.Backend.
//
// It evaluates bound filters directly against stored rows and is the
// reference semantics the SQL backends are tested against: Equals with a
// nil value matches null, comparisons never match null, Like is
// case-sensitive with % and _ wildcards, and NULLs sort first.
package memstore
