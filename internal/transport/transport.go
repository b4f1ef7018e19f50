// Package transport builds and executes signed HTTP requests against the
// notification hub's REST surface, translating status codes into the typed
// error taxonomy the registration protocol reacts to.
package transport

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notifyhub/notifyhub-go/internal/credential"
	"github.com/notifyhub/notifyhub-go/internal/errors"
	"github.com/notifyhub/notifyhub-go/internal/logging"
)

// Package-level logger specific to the transport service
var (
	logger          *slog.Logger
	closeLogger     func() error
	closeLoggerOnce sync.Once
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "transport.log")

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "transport", slog.LevelDebug)
	if err != nil {
		// Fallback: log error to standard log and disable service logging
		log.Printf("Failed to initialize transport file logger at %s: %v. Service logging disabled.", logFilePath, err)
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil)).With("service", "transport")
		closeLogger = func() error { return nil }
	}
}

const (
	// APIVersion is appended to every request as the api-version query
	// parameter.
	APIVersion = "2014-09"

	apiVersionKey = "api-version"

	// requestIDHeader carries a per-request correlation id.
	requestIDHeader = "x-nh-request-id"

	// Default timeouts applied to every hub request.
	DefaultConnectTimeout = 30 * time.Second
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 30 * time.Second

	// Connection pool settings
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
)

// Config holds configuration for creating a transport client.
type Config struct {
	// ConnectTimeout bounds connection establishment (default: 30s)
	ConnectTimeout time.Duration

	// ReadTimeout bounds the wait for response headers and is the base of
	// the per-request deadline when the context carries none (default: 60s)
	ReadTimeout time.Duration

	// WriteTimeout is added to the per-request deadline for requests that
	// upload a body (default: 30s)
	WriteTimeout time.Duration

	// UserAgent overrides the default client identifier header
	UserAgent string
}

// DefaultConfig returns a Config with the default hub timeouts.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		UserAgent:      defaultUserAgent(),
	}
}

func defaultUserAgent() string {
	return "NOTIFICATIONHUBS/" + APIVersion + " (api-origin=GcmNative; os=" + runtime.GOOS + ";)"
}

// Request describes one call against the hub's REST surface.
type Request struct {
	// Resource is the path relative to the endpoint, e.g.
	// "myhub/Registrations/abc".
	Resource string

	// Body is the request body; for methods that require a body an empty
	// string still sends an empty body rather than omitting it.
	Body string

	// ContentType of the body.
	ContentType string

	// Method is the HTTP method.
	Method string

	// ExtraHeaders are added verbatim to the request.
	ExtraHeaders map[string]string

	// TargetHeader, when set, makes Execute return the first value of this
	// response header instead of the body. A 2xx response without it fails
	// with MissingHeaderError.
	TargetHeader string
}

// Client executes signed requests against the hub. It is stateless per call
// apart from the parsed credential and the pooled HTTP transport.
type Client struct {
	cred         *credential.Credential
	httpClient   *http.Client
	userAgent    string
	readTimeout  time.Duration
	writeTimeout time.Duration

	// now is the clock used for signature expiry; injectable for tests.
	now func() time.Time
}

// New creates a transport client for the given credential. A nil cfg uses
// DefaultConfig; zero values fall back to the defaults.
func New(cred *credential.Credential, cfg *Config) *Client {
	var c Config
	if cfg == nil {
		c = DefaultConfig()
	} else {
		c = *cfg
		if c.ConnectTimeout == 0 {
			c.ConnectTimeout = DefaultConnectTimeout
		}
		if c.ReadTimeout == 0 {
			c.ReadTimeout = DefaultReadTimeout
		}
		if c.WriteTimeout == 0 {
			c.WriteTimeout = DefaultWriteTimeout
		}
		if c.UserAgent == "" {
			c.UserAgent = defaultUserAgent()
		}
	}

	httpTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   c.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: c.ReadTimeout,
	}

	return &Client{
		cred: cred,
		httpClient: &http.Client{
			Transport: httpTransport,
			// No client-wide timeout; deadlines are handled per-request
		},
		userAgent:    c.UserAgent,
		readTimeout:  c.ReadTimeout,
		writeTimeout: c.WriteTimeout,
		now:          time.Now,
	}
}

// methodRequiresBody reports whether the hub expects a body element for the
// method even when the caller supplied none.
func methodRequiresBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// buildURL forms the absolute request URL: the credential endpoint with the
// scheme forced to https, the resource path appended and the api-version
// query parameter merged in.
func (c *Client) buildURL(resource string) string {
	endpoint := c.cred.Endpoint()
	endpoint.Scheme = "https"

	base := endpoint.String()
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	full := base + resource
	if strings.Contains(full, "?") {
		full += "&"
	} else {
		full += "?"
	}
	return full + apiVersionKey + "=" + APIVersion
}

// Execute sends one signed request and returns the response body, or the
// first value of req.TargetHeader when one was named. Non-2xx statuses map
// to the typed error taxonomy.
func (c *Client) Execute(ctx context.Context, req *Request) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Apply the default deadline if the context has none: the read budget,
	// plus the write budget when the request uploads a body.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.readTimeout > 0 {
		timeout := c.readTimeout
		if c.writeTimeout > 0 && (req.Body != "" || methodRequiresBody(req.Method)) {
			timeout += c.writeTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	requestURL := c.buildURL(req.Resource)

	var body io.Reader = http.NoBody
	if req.Body != "" || methodRequiresBody(req.Method) {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, requestURL, body)
	if err != nil {
		return "", errors.Newf("failed to create %s request: %w", req.Method, err).
			Category(errors.CategoryHTTP).
			Context("method", req.Method).
			Context("url", requestURL).
			Component("transport").
			Build()
	}

	for name, value := range req.ExtraHeaders {
		httpReq.Header.Set(name, value)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(requestIDHeader, uuid.NewString())
	httpReq.Header.Set("Authorization", GenerateAuthToken(requestURL, c.cred.KeyName(), c.cred.Key(), c.now()))

	logger.Debug("Executing hub request",
		"method", req.Method,
		"url", requestURL,
		"content_type", req.ContentType,
		"target_header", req.TargetHeader)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Error("Hub request failed", "method", req.Method, "url", requestURL, "error", err)
		return "", handleNetworkError(err, requestURL)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("Failed to read hub response body", "url", requestURL, "status_code", resp.StatusCode, "error", err)
		return "", errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Context("status_code", resp.StatusCode).
			Component("transport").
			Build()
	}

	logger.Debug("Received hub response", "url", requestURL, "status_code", resp.StatusCode, "body_size", len(responseBody))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if req.TargetHeader == "" {
			return string(responseBody), nil
		}
		headerValue := resp.Header.Get(req.TargetHeader)
		if headerValue == "" {
			return "", errors.New(&MissingHeaderError{Header: req.TargetHeader}).
				Category(errors.CategoryHTTP).
				Context("status_code", resp.StatusCode).
				Context("url", requestURL).
				Component("transport").
				Build()
		}
		return headerValue, nil
	}

	return "", statusError(resp.StatusCode, string(responseBody), requestURL)
}

// handleNetworkError classifies connection-level failures for clearer
// messages before the typed taxonomy applies.
func handleNetworkError(err error, requestURL string) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logger.Warn("Hub request timed out", "url", requestURL, "error", err)
		return errors.Newf("request timed out: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", requestURL).
			Component("transport").
			Build()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var dnsErr *net.DNSError
		if errors.As(urlErr.Err, &dnsErr) {
			return errors.Newf("DNS resolution failed: %w", err).
				Category(errors.CategoryNetwork).
				Context("url", requestURL).
				Component("transport").
				Build()
		}
	}
	return errors.Newf("network error: %w", err).
		Category(errors.CategoryNetwork).
		Context("url", requestURL).
		Component("transport").
		Build()
}

// WithClock replaces the signing clock. Intended for tests.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Close closes idle connections and, once per process, the shared service
// log file. Safe to call multiple times and from multiple clients.
func (c *Client) Close() {
	if t, ok := c.httpClient.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	closeLoggerOnce.Do(func() {
		if closeLogger == nil {
			return
		}
		if err := closeLogger(); err != nil {
			log.Printf("Error closing transport log file: %v", err)
		}
	})
}
