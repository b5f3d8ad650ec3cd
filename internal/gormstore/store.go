package gormstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/executor"
	"github.com/roach88/derive/internal/querysql"
)

var (
	_ executor.Backend     = (*Store)(nil)
	_ executor.Counter     = (*Store)(nil)
	_ executor.BulkDeleter = (*Store)(nil)
)

// Config selects the database a Store connects to.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string

	// DSN is passed to the driver unchanged: a file path or ":memory:" for
	// SQLite, a connection string for PostgreSQL.
	DSN string

	// Logger receives gorm's statement traces at debug level. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// Store is a gorm-backed entity store.
type Store struct {
	db       *gorm.DB
	compiler *querysql.SQLCompiler
	tables   sync.Map // table name -> struct{}
}

// Open connects to the database described by cfg.
func Open(cfg Config) (*Store, error) {
	dialect, err := querysql.DialectByName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch dialect.Name {
	case querysql.SQLite.Name:
		dialector = sqlite.Open(cfg.DSN)
	case querysql.Postgres.Name:
		dialector = postgres.Open(cfg.DSN)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if dialect.Name == querysql.SQLite.Name {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// one connection, so ":memory:" databases are shared and writes
		// never hit SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db, dialect), nil
}

// New wraps an open gorm handle. dialect must match its dialector.
func New(db *gorm.DB, dialect querysql.Dialect) *Store {
	return &Store{db: db, compiler: querysql.NewSQLCompiler(dialect)}
}

// DB returns the gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Dialect returns the SQL dialect the store compiles for.
func (s *Store) Dialect() querysql.Dialect {
	return s.compiler.Dialect
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// EnsureTable creates the table for d if it does not exist yet.
func (s *Store) EnsureTable(ctx context.Context, d *entity.Descriptor) error {
	if _, ok := s.tables.Load(d.Table()); ok {
		return nil
	}
	if err := s.db.WithContext(ctx).Exec(s.compiler.CreateTable(d)).Error; err != nil {
		return fmt.Errorf("create table %s: %w", d.Table(), err)
	}
	s.tables.Store(d.Table(), struct{}{})
	return nil
}
