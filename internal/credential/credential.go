// Package credential parses notification hub connection strings into the
// endpoint and shared access key pair used to sign requests.
package credential

import (
	"net/url"
	"strings"

	"github.com/notifyhub/notifyhub-go/internal/errors"
)

// ErrMalformedCredential indicates a connection string that is missing a
// required component or carries a blank value.
var ErrMalformedCredential = errors.NewStd("malformed connection string")

// Connection string component keys.
const (
	endpointKey            = "Endpoint"
	sharedAccessKeyNameKey = "SharedAccessKeyName"
	sharedAccessKeyKey     = "SharedAccessKey"
)

// Credential is the parsed, immutable form of a connection string.
type Credential struct {
	endpoint *url.URL
	keyName  string
	key      string
}

// Parse splits a semicolon-delimited connection string of the form
// Endpoint=<uri>;SharedAccessKeyName=<name>;SharedAccessKey=<secret>
// into a Credential. Component order is not significant and values may
// contain '=' characters.
func Parse(connectionString string) (*Credential, error) {
	if strings.TrimSpace(connectionString) == "" {
		return nil, malformed("connection string must not be blank")
	}

	parts := map[string]string{}
	for _, segment := range strings.Split(connectionString, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, "=")
		if !found {
			return nil, malformed("connection string segment %q has no '='", segment)
		}
		parts[key] = value
	}

	endpoint := parts[endpointKey]
	keyName := parts[sharedAccessKeyNameKey]
	key := parts[sharedAccessKeyKey]

	if strings.TrimSpace(endpoint) == "" {
		return nil, malformed("connection string is missing the Endpoint component")
	}
	if strings.TrimSpace(keyName) == "" {
		return nil, malformed("connection string is missing the SharedAccessKeyName component")
	}
	if strings.TrimSpace(key) == "" {
		return nil, malformed("connection string is missing the SharedAccessKey component")
	}

	endpointURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, malformed("connection string endpoint is not a valid URI: %v", err)
	}
	if endpointURL.Scheme == "" || endpointURL.Host == "" {
		return nil, malformed("connection string endpoint %q has no scheme or host", endpoint)
	}

	return &Credential{
		endpoint: endpointURL,
		keyName:  keyName,
		key:      key,
	}, nil
}

func malformed(format string, args ...any) error {
	return errors.Newf(format+": %w", append(args, ErrMalformedCredential)...).
		Category(errors.CategoryCredential).
		Component("credential").
		Build()
}

// Endpoint returns a copy of the endpoint URI.
func (c *Credential) Endpoint() *url.URL {
	endpoint := *c.endpoint
	return &endpoint
}

// KeyName returns the shared access key name.
func (c *Credential) KeyName() string {
	return c.keyName
}

// Key returns the shared access key secret.
func (c *Credential) Key() string {
	return c.key
}
