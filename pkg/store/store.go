// Package store selects and opens the inventory backend. The SQLite
// backend is preferred; when it cannot be initialized the JSON file backend
// takes over for the rest of the process.
//
// Example:
//
//	sel, err := store.Open(cfg, log)
//	if err != nil {
//	    return err
//	}
//	defer sel.Repository.Close()
//	if sel.Fallback {
//	    log.Warn("running on the fallback file", zap.Error(sel.Cause))
//	}
package store

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cs121/verwaltung-db/internal/jsonfile"
	"github.com/cs121/verwaltung-db/internal/sqlite"
	"github.com/cs121/verwaltung-db/pkg/types"
)

// Opener creates and initializes a repository.
type Opener func() (types.Repository, error)

// Selection is the outcome of backend selection.
type Selection struct {
	Repository types.Repository

	// Fallback is true when the primary backend failed and Repository is
	// the fallback.
	Fallback bool

	// Cause is the primary backend's error when Fallback is true.
	Cause error
}

// SQLite returns an Opener for the relational backend.
func SQLite(cfg types.Config, log *zap.Logger) Opener {
	return initialized(sqlite.NewBackend(cfg, log))
}

// JSONFile returns an Opener for the flat-file backend.
func JSONFile(cfg types.Config, log *zap.Logger) Opener {
	return initialized(jsonfile.NewBackend(cfg, log))
}

func initialized(repo types.Repository) Opener {
	return func() (types.Repository, error) {
		if err := repo.Initialize(); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	}
}

// WithFallback opens primary, and fallback if primary fails. The decision
// is made once; nothing retries the primary later. When both fail the
// returned error carries both causes.
func WithFallback(primary, fallback Opener, log *zap.Logger) (Selection, error) {
	if log == nil {
		log = zap.NewNop()
	}
	repo, err := primary()
	if err == nil {
		return Selection{Repository: repo}, nil
	}
	log.Warn("primary storage unavailable, using fallback", zap.Error(err))

	repo, ferr := fallback()
	if ferr != nil {
		return Selection{}, fmt.Errorf("fallback storage: %w", errors.Join(err, ferr))
	}
	return Selection{Repository: repo, Fallback: true, Cause: err}, nil
}

// Open opens the backend named by cfg.Backend. The auto backend is SQLite
// with the JSON file as fallback.
func Open(cfg types.Config, log *zap.Logger) (Selection, error) {
	if err := cfg.Validate(); err != nil {
		return Selection{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store")

	var (
		repo types.Repository
		err  error
	)
	switch cfg.Backend {
	case types.BackendSQLite:
		repo, err = SQLite(cfg, log)()
	case types.BackendJSON:
		repo, err = JSONFile(cfg, log)()
	default:
		sel, err := WithFallback(SQLite(cfg, log), JSONFile(cfg, log), log)
		if err == nil {
			log.Info("storage opened", zap.Bool("fallback", sel.Fallback))
		}
		return sel, err
	}
	if err != nil {
		return Selection{}, err
	}
	log.Info("storage opened", zap.String("backend", cfg.Backend))
	return Selection{Repository: repo}, nil
}
