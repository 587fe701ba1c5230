package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/cs121/verwaltung-db/internal/logging"
	"github.com/cs121/verwaltung-db/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "INVENTAR"

	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyDBFile         = "db_file"
	cfgKeyJSONFile       = "json_file"
	cfgKeyDefaultHolder  = "default_holder"
	cfgKeyLogLevel       = "log_level"
	cfgKeyLogEncoding    = "log_encoding"
	cfgKeyLogDevelopment = "log_development"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# inventar configuration
# Every key can also be set through the environment, e.g. INVENTAR_BACKEND.

# Storage backend: auto (sqlite, falling back to json), sqlite or json
backend: auto

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# File names inside the data directory
db_file: inventar.db
json_file: inventar_fallback.json

# Holder written when an owner is cleared
default_holder: LAGER

# Logging: debug, info, warn or error; console or json
log_level: warn
log_encoding: console
`

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run. Environment variables
// with the INVENTAR_ prefix override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	defaults := types.DefaultConfig("")
	v.SetDefault(cfgKeyBackend, defaults.Backend)
	v.SetDefault(cfgKeyDBFile, defaults.DBFile)
	v.SetDefault(cfgKeyJSONFile, defaults.JSONFile)
	v.SetDefault(cfgKeyDefaultHolder, defaults.DefaultHolder)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogEncoding, logging.EncodingConsole)
	v.SetDefault(cfgKeyLogDevelopment, false)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in configDir.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// storeConfig builds the backend configuration from v.
func storeConfig(v *viper.Viper, dataDir string) types.Config {
	cfg := types.DefaultConfig(dataDir)
	cfg.Backend = strings.ToLower(strings.TrimSpace(v.GetString(cfgKeyBackend)))
	cfg.DBFile = v.GetString(cfgKeyDBFile)
	cfg.JSONFile = v.GetString(cfgKeyJSONFile)
	cfg.DefaultHolder = strings.TrimSpace(v.GetString(cfgKeyDefaultHolder))
	return cfg
}

func loggingConfig(v *viper.Viper) logging.Config {
	return logging.Config{
		Development: v.GetBool(cfgKeyLogDevelopment),
		Encoding:    v.GetString(cfgKeyLogEncoding),
		Level:       v.GetString(cfgKeyLogLevel),
	}
}
