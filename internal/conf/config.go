// Package conf handles loading and validation of client settings.
package conf

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/notifyhub/notifyhub-go/internal/errors"
)

// Store backend identifiers accepted in configuration.
const (
	StoreBackendMemory = "memory"
	StoreBackendSQLite = "sqlite"
)

// HubSettings identifies the hub resource and the credentials used to reach it.
type HubSettings struct {
	Path             string `yaml:"path"`             // Notification hub path
	ConnectionString string `yaml:"connectionstring"` // Endpoint=...;SharedAccessKeyName=...;SharedAccessKey=...
}

// StoreSettings selects and configures the local registration cache backend.
type StoreSettings struct {
	Backend string `yaml:"backend"` // "memory" or "sqlite"
	Path    string `yaml:"path"`    // SQLite database path, used when backend is "sqlite"
}

// TransportSettings carries the HTTP timeouts applied to every hub request.
type TransportSettings struct {
	ConnectTimeout time.Duration `yaml:"connecttimeout"`
	ReadTimeout    time.Duration `yaml:"readtimeout"`
	WriteTimeout   time.Duration `yaml:"writetimeout"`
}

// LogSettings configures file logging.
type LogSettings struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Path  string `yaml:"path"`  // Directory for service log files
}

// Settings is the root configuration structure.
type Settings struct {
	Debug     bool              `yaml:"debug"`
	Hub       HubSettings       `yaml:"hub"`
	Store     StoreSettings     `yaml:"store"`
	Transport TransportSettings `yaml:"transport"`
	Log       LogSettings       `yaml:"log"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("notifyhub")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/notifyhub")

	viper.SetEnvPrefix("notifyhub")
	// Nested keys map to underscored env names, e.g. NOTIFYHUB_STORE_BACKEND
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, flags and env carry the rest
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// setDefaultConfig sets default values for each configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	// Blank defaults keep these keys visible to env binding during Unmarshal
	viper.SetDefault("hub.path", "")
	viper.SetDefault("hub.connectionstring", "")
	viper.SetDefault("store.backend", StoreBackendMemory)
	viper.SetDefault("store.path", "notifyhub.db")
	viper.SetDefault("transport.connecttimeout", 30*time.Second)
	viper.SetDefault("transport.readtimeout", 60*time.Second)
	viper.SetDefault("transport.writetimeout", 30*time.Second)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.path", "logs")
}

// ValidateSettings checks the loaded settings for invalid combinations.
func ValidateSettings(settings *Settings) error {
	switch settings.Store.Backend {
	case StoreBackendMemory, StoreBackendSQLite:
	default:
		return errors.Newf("unsupported store backend: %s", settings.Store.Backend).
			Category(errors.CategoryConfiguration).
			Context("backend", settings.Store.Backend).
			Component("conf").
			Build()
	}

	if settings.Store.Backend == StoreBackendSQLite && settings.Store.Path == "" {
		return errors.Newf("store path must be set when the sqlite backend is selected").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}

	if settings.Transport.ConnectTimeout < 0 || settings.Transport.ReadTimeout < 0 || settings.Transport.WriteTimeout < 0 {
		return errors.Newf("transport timeouts must not be negative").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}

	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
