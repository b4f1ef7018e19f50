package hub

import (
	"github.com/notifyhub/notifyhub-go/internal/conf"
	"github.com/notifyhub/notifyhub-go/internal/errors"
	"github.com/notifyhub/notifyhub-go/internal/store"
	"github.com/notifyhub/notifyhub-go/internal/transport"
)

// NewFromSettings creates a hub client from loaded settings, opening the
// configured local store backend. The store is owned by the client and
// closed by Close.
func NewFromSettings(settings *conf.Settings) (*Client, error) {
	kv, err := openStore(settings)
	if err != nil {
		return nil, err
	}

	client, err := New(Config{
		HubPath:          settings.Hub.Path,
		ConnectionString: settings.Hub.ConnectionString,
		Transport:        transportConfig(settings),
	}, kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return client, nil
}

func openStore(settings *conf.Settings) (store.KeyValueStore, error) {
	switch settings.Store.Backend {
	case conf.StoreBackendSQLite:
		return store.OpenSQLiteStore(settings.Store.Path)
	case conf.StoreBackendMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, errors.Newf("unsupported store backend: %s", settings.Store.Backend).
			Category(errors.CategoryConfiguration).
			Context("backend", settings.Store.Backend).
			Component("hub").
			Build()
	}
}

func transportConfig(settings *conf.Settings) *transport.Config {
	return &transport.Config{
		ConnectTimeout: settings.Transport.ConnectTimeout,
		ReadTimeout:    settings.Transport.ReadTimeout,
		WriteTimeout:   settings.Transport.WriteTimeout,
	}
}
