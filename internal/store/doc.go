// Package store provides a SQLite-backed executor.Backend.
//
// Each entity gets one table, created from its descriptor on first use
// (see querysql.SQLCompiler.CreateTable). Rows are read and written with
// SQL generated by querysql; values are never interpolated.
//
// # Critical Patterns
//
// Deterministic results:
//   - every SELECT ends with ORDER BY on the identifier
//   - dates are stored as fixed-width UTC text so text order is date order
//
// Identifiers:
//   - number identifiers use INTEGER PRIMARY KEY AUTOINCREMENT
//   - string identifiers are generated as UUIDv7 before insert
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Like is compiled to GLOB, which is case-sensitive on every connection.
package store
