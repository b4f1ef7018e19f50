package conf

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test,
// equivalent to t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func validSettings() *Settings {
	return &Settings{
		Hub: HubSettings{
			Path:             "myhub",
			ConnectionString: "Endpoint=sb://ns.example.net/;SharedAccessKeyName=listen;SharedAccessKey=secret",
		},
		Store: StoreSettings{
			Backend: StoreBackendMemory,
		},
		Transport: TransportSettings{
			ConnectTimeout: 30 * time.Second,
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
		Log: LogSettings{
			Level: "info",
			Path:  "logs",
		},
	}
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())

	settings, err := Load()
	require.NoError(t, err, "loading without a config file should succeed")

	assert.Equal(t, StoreBackendMemory, settings.Store.Backend, "memory backend is the default")
	assert.Equal(t, 60*time.Second, settings.Transport.ReadTimeout)
	assert.Equal(t, "info", settings.Log.Level)
}

func TestLoadEnvironmentBinding(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())

	t.Setenv("NOTIFYHUB_STORE_BACKEND", StoreBackendSQLite)
	t.Setenv("NOTIFYHUB_STORE_PATH", "env.db")
	t.Setenv("NOTIFYHUB_HUB_PATH", "envhub")
	t.Setenv("NOTIFYHUB_LOG_LEVEL", "debug")

	settings, err := Load()
	require.NoError(t, err, "environment-only configuration should load")

	assert.Equal(t, StoreBackendSQLite, settings.Store.Backend, "nested keys should bind to underscored env names")
	assert.Equal(t, "env.db", settings.Store.Path)
	assert.Equal(t, "envhub", settings.Hub.Path)
	assert.Equal(t, "debug", settings.Log.Level)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	t.Run("valid settings pass", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, ValidateSettings(validSettings()))
	})

	t.Run("sqlite backend with a path passes", func(t *testing.T) {
		t.Parallel()

		settings := validSettings()
		settings.Store.Backend = StoreBackendSQLite
		settings.Store.Path = "notifyhub.db"
		assert.NoError(t, ValidateSettings(settings))
	})

	t.Run("unknown store backend fails", func(t *testing.T) {
		t.Parallel()

		settings := validSettings()
		settings.Store.Backend = "redis"
		err := ValidateSettings(settings)
		require.Error(t, err, "unsupported backends should be rejected")
		assert.Contains(t, err.Error(), "redis")
	})

	t.Run("sqlite backend without a path fails", func(t *testing.T) {
		t.Parallel()

		settings := validSettings()
		settings.Store.Backend = StoreBackendSQLite
		settings.Store.Path = ""
		assert.Error(t, ValidateSettings(settings))
	})

	t.Run("negative timeouts fail", func(t *testing.T) {
		t.Parallel()

		settings := validSettings()
		settings.Transport.ReadTimeout = -time.Second
		assert.Error(t, ValidateSettings(settings))
	})
}
