// Package gormstore is an executor.Backend on top of gorm.
//
// Reads are built from gorm clause expressions so the dialector handles
// quoting and placeholders; writes and DDL reuse the statements compiled by
// querysql. SQLite and PostgreSQL are supported.
package gormstore
