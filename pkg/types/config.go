package types

import (
	"errors"
	"path/filepath"
)

// Config selects the backend and its storage locations.
type Config struct {
	Backend  string `json:"backend" yaml:"backend"`
	DataDir  string `json:"data_dir" yaml:"data_dir"`
	DBFile   string `json:"db_file" yaml:"db_file"`
	JSONFile string `json:"json_file" yaml:"json_file"`

	// DefaultHolder is what ClearOwner writes. Empty clears to absent.
	DefaultHolder string `json:"default_holder" yaml:"default_holder"`

	// ObjectTypes seeds the object type registry.
	ObjectTypes []string `json:"object_types" yaml:"object_types"`
}

// Backend names.
const (
	BackendAuto   = "auto" // sqlite, falling back to json
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Default file names inside DataDir.
const (
	DefaultDBFile   = "inventar.db"
	DefaultJSONFile = "inventar_fallback.json"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

var knownBackends = map[string]bool{
	BackendAuto:   true,
	BackendSQLite: true,
	BackendJSON:   true,
}

// DefaultConfig returns the configuration used when nothing is configured:
// automatic backend selection in dataDir with the standard file names.
func DefaultConfig(dataDir string) Config {
	return Config{
		Backend:       BackendAuto,
		DataDir:       dataDir,
		DBFile:        DefaultDBFile,
		JSONFile:      DefaultJSONFile,
		DefaultHolder: DefaultHolder,
		ObjectTypes:   append([]string(nil), DefaultObjectTypes...),
	}
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// DBPath returns the SQLite database path. Absolute DBFile values are used
// as is.
func (c Config) DBPath() string {
	return c.resolve(c.DBFile, DefaultDBFile)
}

// JSONPath returns the fallback document path.
func (c Config) JSONPath() string {
	return c.resolve(c.JSONFile, DefaultJSONFile)
}

func (c Config) resolve(name, def string) string {
	if name == "" {
		name = def
	}
	if filepath.IsAbs(name) {
		return name
	}
	dir := c.DataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}
