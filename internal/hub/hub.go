// Package hub implements the device-side registration client for a
// notification hub: register, unregister and cache reconciliation against
// the hub's REST surface.
package hub

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/notifyhub/notifyhub-go/internal/credential"
	"github.com/notifyhub/notifyhub-go/internal/errors"
	"github.com/notifyhub/notifyhub-go/internal/logging"
	"github.com/notifyhub/notifyhub-go/internal/registration"
	"github.com/notifyhub/notifyhub-go/internal/store"
	"github.com/notifyhub/notifyhub-go/internal/transport"
)

// Package-level logger specific to the hub service
var (
	logger          *slog.Logger
	closeLogger     func() error
	closeLoggerOnce sync.Once
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "hub.log")

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "hub", slog.LevelDebug)
	if err != nil {
		// Fallback: log error to standard log and disable service logging
		log.Printf("Failed to initialize hub file logger at %s: %v. Service logging disabled.", logFilePath, err)
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil)).With("service", "hub")
		closeLogger = func() error { return nil }
	}
}

const (
	// xmlContentType is the content type of every registration request.
	xmlContentType = "application/atom+xml"

	// locationHeader carries the URI of a freshly created registration id.
	locationHeader = "Location"
)

// ErrInvalidArgument indicates a blank required input; it is raised before
// any network call is attempted.
var ErrInvalidArgument = errors.NewStd("invalid argument")

// Executor abstracts the signed transport so the orchestration logic can be
// exercised against a stub.
type Executor interface {
	Execute(ctx context.Context, req *transport.Request) (string, error)
}

// Config holds the construction parameters of a hub client.
type Config struct {
	// HubPath is the hub resource name.
	HubPath string

	// ConnectionString identifies the endpoint and shared access key pair.
	ConnectionString string

	// Transport optionally tunes HTTP timeouts.
	Transport *transport.Config
}

// Metrics counts client activity since construction.
type Metrics struct {
	Registrations   int64 `json:"registrations"`
	Unregistrations int64 `json:"unregistrations"`
	Refreshes       int64 `json:"refreshes"`
	GoneRetries     int64 `json:"gone_retries"`
	Errors          int64 `json:"errors"`
}

// Client is the registration orchestrator. Public operations are serialized
// internally; a single instance is safe for concurrent use, but each call
// blocks for the duration of its network round-trips.
type Client struct {
	hubPath  string
	executor Executor
	kv       store.KeyValueStore
	cache    *store.RegistrationCache

	mu            sync.Mutex
	refreshNeeded bool

	metricsMu sync.RWMutex
	metrics   Metrics
}

// New creates a hub client backed by the given local store. The stored
// cache version is verified immediately: on skew the cache is purged and
// the first registration operation re-synchronizes from the server.
func New(cfg Config, kv store.KeyValueStore) (*Client, error) {
	if strings.TrimSpace(cfg.HubPath) == "" {
		return nil, invalidArg("hubPath")
	}
	if kv == nil {
		return nil, errors.Newf("a local store is required").
			Category(errors.CategoryConfiguration).
			Component("hub").
			Build()
	}

	cred, err := credential.Parse(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}

	cache := store.NewRegistrationCache(kv)
	refreshNeeded, err := cache.VerifyVersion()
	if err != nil {
		return nil, err
	}

	logger.Info("Hub client initialized",
		"hub_path", cfg.HubPath,
		"refresh_needed", refreshNeeded)

	return &Client{
		hubPath:       cfg.HubPath,
		executor:      transport.New(cred, cfg.Transport),
		kv:            kv,
		cache:         cache,
		refreshNeeded: refreshNeeded,
	}, nil
}

// Register creates or updates the native registration for the push handle.
func (c *Client) Register(ctx context.Context, pnsHandle string, tags ...string) (*registration.Registration, error) {
	if strings.TrimSpace(pnsHandle) == "" {
		return nil, invalidArg("pnsHandle")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	reg := registration.NewNative(c.hubPath, pnsHandle, tags)
	return c.registerInternal(ctx, reg)
}

// RegisterTemplate creates or updates a template registration under the
// given template name.
func (c *Client) RegisterTemplate(ctx context.Context, pnsHandle, templateName, template string, tags ...string) (*registration.Registration, error) {
	if strings.TrimSpace(pnsHandle) == "" {
		return nil, invalidArg("pnsHandle")
	}
	if strings.TrimSpace(templateName) == "" {
		return nil, invalidArg("templateName")
	}
	if strings.TrimSpace(template) == "" {
		return nil, invalidArg("template")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	reg := registration.NewTemplate(c.hubPath, pnsHandle, templateName, template, tags)
	return c.registerInternal(ctx, reg)
}

// Unregister deletes the native registration, if one is cached.
func (c *Client) Unregister(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.unregisterInternal(ctx, registration.DefaultName)
}

// UnregisterTemplate deletes the template registration with the given name,
// if one is cached.
func (c *Client) UnregisterTemplate(ctx context.Context, templateName string) error {
	if strings.TrimSpace(templateName) == "" {
		return invalidArg("templateName")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.unregisterInternal(ctx, templateName)
}

// UnregisterAll re-synchronizes the local cache from the server for the
// given push handle, then deletes every registration it knows about. Local
// cache entries are removed even when their server-side delete fails; the
// failures are joined into the returned error.
func (c *Client) UnregisterAll(ctx context.Context, pnsHandle string) error {
	if strings.TrimSpace(pnsHandle) == "" {
		return invalidArg("pnsHandle")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.refreshRegistrations(ctx, pnsHandle); err != nil {
		return err
	}

	names, err := c.cache.Names()
	if err != nil {
		return err
	}

	var deleteErrs []error
	for _, name := range names {
		id, found, err := c.cache.GetID(name)
		if err != nil {
			deleteErrs = append(deleteErrs, err)
			continue
		}
		if !found {
			continue
		}
		if err := c.deleteRegistration(ctx, name, id); err != nil {
			logger.Warn("Failed to delete registration during unregister-all",
				"name", name, "registration_id", id, "error", err)
			deleteErrs = append(deleteErrs, err)
		}
	}

	return errors.Join(deleteErrs...)
}

// Registrations returns the local cache as a name→registration id map.
func (c *Client) Registrations() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names, err := c.cache.Names()
	if err != nil {
		return nil, err
	}

	cached := make(map[string]string, len(names))
	for _, name := range names {
		id, found, err := c.cache.GetID(name)
		if err != nil {
			return nil, err
		}
		if found {
			cached[name] = id
		}
	}
	return cached, nil
}

// GetMetrics returns a snapshot of the client metrics.
func (c *Client) GetMetrics() Metrics {
	c.metricsMu.RLock()
	defer c.metricsMu.RUnlock()
	return c.metrics
}

// Close releases the transport, the local store and, once per process, the
// shared service log file. Safe to call multiple times.
func (c *Client) Close() {
	if t, ok := c.executor.(*transport.Client); ok {
		t.Close()
	}
	if c.kv != nil {
		if err := c.kv.Close(); err != nil {
			logger.Warn("Failed to close local store", "error", err)
		}
	}
	closeLoggerOnce.Do(func() {
		if closeLogger == nil {
			return
		}
		if err := closeLogger(); err != nil {
			log.Printf("Error closing hub log file: %v", err)
		}
	})
}

// registerInternal performs the create-or-update protocol: refresh the
// cache if pending, reuse or create a registration id, upsert, and on a
// gone id reissue and retry exactly once. Callers hold c.mu.
func (c *Client) registerInternal(ctx context.Context, reg *registration.Registration) (*registration.Registration, error) {
	if c.refreshNeeded {
		handle, err := c.cache.Handle()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(handle) == "" {
			handle = reg.PushHandle
		}
		if err := c.refreshRegistrations(ctx, handle); err != nil {
			return nil, err
		}
	}

	id, found, err := c.cache.GetID(reg.Name)
	if err != nil {
		return nil, err
	}
	if !found {
		id, err = c.createRegistrationID(ctx)
		if err != nil {
			return nil, err
		}
	}
	reg.RegistrationID = id

	result, err := c.upsert(ctx, reg)
	if err == nil {
		c.countRegistration()
		return result, nil
	}
	if !errors.Is(err, transport.ErrRegistrationGone) {
		c.countError()
		return nil, err
	}

	// The hub no longer recognizes the id (e.g. the hub was recreated):
	// reissue a fresh id and retry the upsert exactly once. A second
	// failure of any kind propagates.
	logger.Info("Registration id gone, reissuing and retrying upsert",
		"name", reg.Name, "stale_id", id)
	c.countGoneRetry()

	id, err = c.createRegistrationID(ctx)
	if err != nil {
		c.countError()
		return nil, err
	}
	reg.RegistrationID = id

	result, err = c.upsert(ctx, reg)
	if err != nil {
		c.countError()
		return nil, err
	}
	c.countRegistration()
	return result, nil
}

// upsert PUTs the serialized registration to its own URI, parses the
// server's authoritative response and persists the name→id association.
func (c *Client) upsert(ctx context.Context, reg *registration.Registration) (*registration.Registration, error) {
	content, err := reg.ToXML()
	if err != nil {
		return nil, err
	}

	response, err := c.executor.Execute(ctx, &transport.Request{
		Resource:    reg.URI(),
		Body:        content,
		ContentType: xmlContentType,
		Method:      http.MethodPut,
	})
	if err != nil {
		return nil, err
	}

	result, err := registration.FromXML(response, c.hubPath)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(result.Name, result.RegistrationID, reg.PushHandle); err != nil {
		return nil, err
	}

	logger.Info("Registration upserted",
		"name", result.Name,
		"registration_id", result.RegistrationID,
		"kind", result.Kind)

	return result, nil
}

// createRegistrationID asks the server for a fresh registration id, parsing
// it out of the Location-style response header.
func (c *Client) createRegistrationID(ctx context.Context) (string, error) {
	response, err := c.executor.Execute(ctx, &transport.Request{
		Resource:     c.hubPath + "/registrationids/",
		ContentType:  xmlContentType,
		Method:       http.MethodPost,
		TargetHeader: locationHeader,
	})
	if err != nil {
		return "", err
	}

	idURI, err := url.Parse(response)
	if err != nil {
		return "", errors.Newf("failed to parse registration id location %q: %w", response, err).
			Category(errors.CategoryWireFormat).
			Component("hub").
			Build()
	}

	fragments := strings.Split(idURI.Path, "/")
	id := fragments[len(fragments)-1]

	logger.Debug("Created registration id", "registration_id", id)
	return id, nil
}

// unregisterInternal deletes the registration cached under name, if any.
// Callers hold c.mu.
func (c *Client) unregisterInternal(ctx context.Context, name string) error {
	id, found, err := c.cache.GetID(name)
	if err != nil {
		return err
	}
	if !found {
		logger.Debug("No cached registration to unregister", "name", name)
		return nil
	}

	return c.deleteRegistration(ctx, name, id)
}

// deleteRegistration issues the unconditional server-side delete. The local
// cache entry is removed regardless of the delete outcome so no dangling
// entry can point at an id the server already discarded.
func (c *Client) deleteRegistration(ctx context.Context, name, id string) (err error) {
	defer func() {
		if rmErr := c.cache.Remove(name); rmErr != nil && err == nil {
			err = rmErr
		}
		if err == nil {
			c.countUnregistration()
		}
	}()

	_, err = c.executor.Execute(ctx, &transport.Request{
		Resource:     c.hubPath + "/Registrations/" + id,
		ContentType:  xmlContentType,
		Method:       http.MethodDelete,
		ExtraHeaders: map[string]string{"If-Match": "*"},
	})
	if err != nil {
		return err
	}

	logger.Info("Registration deleted", "name", name, "registration_id", id)
	return nil
}

// refreshRegistrations rebuilds the local cache from the server's
// authoritative list of registrations for the push handle. Callers hold
// c.mu.
func (c *Client) refreshRegistrations(ctx context.Context, pnsHandle string) error {
	if strings.TrimSpace(pnsHandle) == "" {
		return invalidArg("pnsHandle")
	}

	if err := c.cache.ClearRegistrations(); err != nil {
		return err
	}

	filter := registration.HandleNode + " eq '" + pnsHandle + "'"
	resource := c.hubPath + "/Registrations/?$filter=" + url.QueryEscape(filter)

	response, err := c.executor.Execute(ctx, &transport.Request{
		Resource:    resource,
		ContentType: xmlContentType,
		Method:      http.MethodGet,
	})
	if err != nil {
		return err
	}

	registrations, err := registration.FromFeedXML(response, c.hubPath)
	if err != nil {
		return err
	}

	for _, reg := range registrations {
		if err := c.cache.Put(reg.Name, reg.RegistrationID, reg.PushHandle); err != nil {
			return err
		}
	}

	c.refreshNeeded = false
	c.countRefresh()

	logger.Info("Registration cache refreshed from server",
		"count", len(registrations))
	return nil
}

func invalidArg(name string) error {
	return errors.Newf("%s must not be blank: %w", name, ErrInvalidArgument).
		Category(errors.CategoryValidation).
		Context("argument", name).
		Component("hub").
		Build()
}

func (c *Client) countRegistration() {
	c.metricsMu.Lock()
	c.metrics.Registrations++
	c.metricsMu.Unlock()
}

func (c *Client) countUnregistration() {
	c.metricsMu.Lock()
	c.metrics.Unregistrations++
	c.metricsMu.Unlock()
}

func (c *Client) countRefresh() {
	c.metricsMu.Lock()
	c.metrics.Refreshes++
	c.metricsMu.Unlock()
}

func (c *Client) countGoneRetry() {
	c.metricsMu.Lock()
	c.metrics.GoneRetries++
	c.metricsMu.Unlock()
}

func (c *Client) countError() {
	c.metricsMu.Lock()
	c.metrics.Errors++
	c.metricsMu.Unlock()
}
