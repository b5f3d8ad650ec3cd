package cli

import (
	"fmt"
	"log/slog"

	"github.com/roach88/derive/internal/config"
	"github.com/roach88/derive/internal/executor"
	"github.com/roach88/derive/internal/gormstore"
	"github.com/roach88/derive/internal/memstore"
	"github.com/roach88/derive/internal/schema"
	"github.com/roach88/derive/internal/store"
)

// openBackend opens the storage named by cfg. The returned func releases it.
//
// sqlite goes through the database/sql store; postgres goes through gorm.
func openBackend(cfg config.Config, logger *slog.Logger) (executor.Backend, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memstore.New(), func() error { return nil }, nil
	case config.BackendSQLite:
		s, err := store.Open(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendPostgres:
		s, err := gormstore.Open(gormstore.Config{Driver: "postgres", DSN: cfg.DSN, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// loadEntity loads the schema and looks up one entity in it.
func loadEntity(f *OutputFormatter, dir, name string) (*schema.Entity, error) {
	s, errs := schema.Load(dir, schema.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, f.Fail(ExitCommandError, schema.ErrCodeLoadFailed, errs[0])
	}
	f.VerboseLog("Loaded %d entities from %d CUE file(s) in %s", len(s.Entities), s.FileCount, dir)

	e, ok := s.Entity(name)
	if !ok {
		return nil, f.Fail(ExitCommandError, ErrCodeUnknownEntity,
			fmt.Errorf("entity %q is not declared in %s", name, dir))
	}
	return e, nil
}
