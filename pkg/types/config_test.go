package types

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:   "valid sqlite config",
			config: Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
		},
		{
			name:   "valid json config",
			config: Config{Backend: BackendJSON},
		},
		{
			name:   "default config is valid",
			config: DefaultConfig(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := DefaultConfig("/data")
	assert.Equal(t, filepath.Join("/data", DefaultDBFile), cfg.DBPath())
	assert.Equal(t, filepath.Join("/data", DefaultJSONFile), cfg.JSONPath())

	cfg.DBFile = "/elsewhere/items.db"
	assert.Equal(t, "/elsewhere/items.db", cfg.DBPath())

	empty := Config{}
	assert.Equal(t, DefaultDBFile, empty.DBPath())
	assert.Equal(t, DefaultJSONFile, empty.JSONPath())
}

func TestStorageErrorIs(t *testing.T) {
	cause := errors.New("permission denied")
	err := error(&StorageError{Backend: BackendSQLite, Path: "x.db", Err: cause})
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "x.db")
}
