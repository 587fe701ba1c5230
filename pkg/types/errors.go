package types

import (
	"errors"
	"fmt"
)

// Repository errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrNotInitialized  = errors.New("repository is not initialized")
	ErrStorage         = errors.New("storage unavailable")
	ErrInvalidFilter   = errors.New("invalid filter field")
	ErrInvalidCategory = errors.New("invalid custom value category")
)

// StorageError reports that a backend could not be opened or initialized.
// It is the only error the backend factory turns into a fallback.
type StorageError struct {
	Backend string // "sqlite" or "json"
	Path    string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s storage %s: %v", e.Backend, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) hold for every StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
