// Package executor runs compiled derived queries against a storage
// backend and turns the rows it returns into checked, canonical rows or
// typed entities.
//
// The core never talks to a database directly. Everything it needs from
// storage is the Backend capability: filtered scans plus get, upsert and
// delete by identifier. Backends may additionally implement Counter and
// BulkDeleter; when they do not, the executor falls back to Scan.
package executor
