package types

// Settings holds user preferences kept outside the record store.
type Settings struct {
	ObjectTypes []string          `yaml:"object_types"`
	Values      map[string]string `yaml:"values,omitempty"`
}

// SettingsStore loads and saves Settings. Implementations own the storage
// location; callers hold no global state.
type SettingsStore interface {
	Load() (Settings, error)
	Save(Settings) error
}
