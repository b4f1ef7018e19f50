package transport

import (
	"fmt"

	"github.com/notifyhub/notifyhub-go/internal/errors"
)

// Sentinel errors for the status codes the registration protocol reacts to.
var (
	// ErrNotFound maps HTTP 404.
	ErrNotFound = errors.NewStd("hub resource not found")

	// ErrUnauthorized maps HTTP 401.
	ErrUnauthorized = errors.NewStd("hub request unauthorized")

	// ErrRegistrationGone maps HTTP 410: the registration id is no longer
	// recognized by the server and must be reissued.
	ErrRegistrationGone = errors.NewStd("registration no longer present on hub")
)

// ServiceError is the catch-all for non-2xx responses without a dedicated
// sentinel.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("hub request failed with status %d: %s", e.StatusCode, e.Body)
}

// ErrorCategory lets the errors package classify ServiceError without
// string matching.
func (e *ServiceError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryHTTP
}

// MissingHeaderError reports a 2xx response that lacks a header the caller
// asked to extract.
type MissingHeaderError struct {
	Header string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("the %q header is not present in the response", e.Header)
}

// ErrorCategory lets the errors package classify MissingHeaderError.
func (e *MissingHeaderError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryHTTP
}

// statusError wraps the typed error for a non-2xx status into an enhanced
// error carrying the request context.
func statusError(statusCode int, body, requestURL string) error {
	var builder *errors.ErrorBuilder
	var category errors.ErrorCategory

	switch statusCode {
	case 404:
		builder = errors.Newf("%w", ErrNotFound)
		category = errors.CategoryNotFound
	case 401:
		builder = errors.Newf("%w", ErrUnauthorized)
		category = errors.CategoryUnauthorized
	case 410:
		builder = errors.Newf("%w", ErrRegistrationGone)
		category = errors.CategoryGone
	default:
		builder = errors.New(&ServiceError{StatusCode: statusCode, Body: body})
		category = errors.CategoryHTTP
	}

	return builder.
		Category(category).
		Context("status_code", statusCode).
		Context("url", requestURL).
		Component("transport").
		Build()
}
