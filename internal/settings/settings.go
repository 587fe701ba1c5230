// Package settings keeps user preferences in a YAML file next to the
// configuration: the object types offered for new records and free
// key/value pairs.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cs121/verwaltung-db/internal/fileutil"
	"github.com/cs121/verwaltung-db/internal/query"
	"github.com/cs121/verwaltung-db/pkg/types"
)

// FileName is the settings file inside the configuration directory.
const FileName = "settings.yaml"

// Store implements types.SettingsStore on a YAML file.
type Store struct {
	path string
}

var _ types.SettingsStore = (*Store)(nil)

// NewStore returns a store for the settings file in dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Defaults returns the settings used before anything was saved.
func Defaults() types.Settings {
	return types.Settings{
		ObjectTypes: append([]string(nil), types.DefaultObjectTypes...),
		Values:      map[string]string{},
	}
}

// Load reads the settings file. A missing file yields Defaults.
func (s *Store) Load() (types.Settings, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return types.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var out types.Settings
	if err := yaml.Unmarshal(data, &out); err != nil {
		return types.Settings{}, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	if out.ObjectTypes == nil {
		out.ObjectTypes = Defaults().ObjectTypes
	}
	out.ObjectTypes = clean(out.ObjectTypes)
	if out.Values == nil {
		out.Values = map[string]string{}
	}
	return out, nil
}

// Save writes the settings atomically, creating the directory if needed.
func (s *Store) Save(in types.Settings) error {
	in.ObjectTypes = clean(in.ObjectTypes)
	data, err := yaml.Marshal(&in)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	return fileutil.WriteAtomic(s.path, data)
}

// clean trims names and drops blanks and case-insensitive duplicates,
// keeping the first spelling.
func clean(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || query.ContainsFolded(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Apply returns cfg with its object type seed taken from s when s names
// any types.
func Apply(cfg types.Config, s types.Settings) types.Config {
	if len(s.ObjectTypes) > 0 {
		cfg.ObjectTypes = append([]string(nil), s.ObjectTypes...)
	}
	return cfg
}
