// Package registration holds the registration data model and its Atom XML
// wire representation.
package registration

import (
	"strings"
	"time"

	"github.com/notifyhub/notifyhub-go/internal/errors"
)

// DefaultName is the reserved name of the single native registration.
const DefaultName = "$Default"

// Wire element names of the native payload. HandleNode is also used by the
// hub client to build the $filter expression for handle queries.
const (
	nativePayloadNode   = "GcmRegistrationDescription"
	templatePayloadNode = "GcmTemplateRegistrationDescription"
	HandleNode          = "GcmRegistrationId"
)

// Kind discriminates the two registration variants.
type Kind string

const (
	KindNative   Kind = "native"
	KindTemplate Kind = "template"
)

// Registration binds a push handle (and optional template and tags) to a
// named slot on the hub. Server-assigned fields (RegistrationID, ETag,
// ExpirationTime, Updated) are only populated by the XML load step.
type Registration struct {
	Kind           Kind
	RegistrationID string
	HubPath        string
	PushHandle     string
	Name           string
	Tags           []string
	ETag           string
	ExpirationTime string // raw server timestamp string
	Updated        string // raw server timestamp string
	BodyTemplate   string // template variant only
}

// NewNative creates a client-side native registration with no server id yet.
func NewNative(hubPath, pushHandle string, tags []string) *Registration {
	return &Registration{
		Kind:       KindNative,
		HubPath:    hubPath,
		PushHandle: pushHandle,
		Name:       DefaultName,
		Tags:       cleanTags(tags),
	}
}

// NewTemplate creates a client-side template registration with no server id yet.
func NewTemplate(hubPath, pushHandle, templateName, bodyTemplate string, tags []string) *Registration {
	return &Registration{
		Kind:         KindTemplate,
		HubPath:      hubPath,
		PushHandle:   pushHandle,
		Name:         templateName,
		BodyTemplate: bodyTemplate,
		Tags:         cleanTags(tags),
	}
}

// cleanTags drops blank tags, preserving order of the rest.
func cleanTags(tags []string) []string {
	var cleaned []string
	for _, tag := range tags {
		if strings.TrimSpace(tag) != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return cleaned
}

// URI returns the registration resource path on the hub.
func (r *Registration) URI() string {
	return r.HubPath + "/Registrations/" + r.RegistrationID
}

// payloadNode returns the wire element name wrapping this variant's fields.
func (r *Registration) payloadNode() string {
	if r.Kind == KindTemplate {
		return templatePayloadNode
	}
	return nativePayloadNode
}

// UpdatedTime parses the raw updated timestamp.
func (r *Registration) UpdatedTime() (time.Time, error) {
	return ParseHubTime(r.Updated)
}

// ExpirationTimeValue parses the raw expiration timestamp.
func (r *Registration) ExpirationTimeValue() (time.Time, error) {
	return ParseHubTime(r.ExpirationTime)
}

// ErrMalformedTimestamp indicates a server timestamp that does not match the
// hub's fixed-width format.
var ErrMalformedTimestamp = errors.NewStd("malformed hub timestamp")

// hubTimeLayout matches the normalized form produced by ParseHubTime: three
// fractional digits and a colon-free timezone offset.
const hubTimeLayout = "2006-01-02T15:04:05.000-0700"

// ParseHubTime converts a hub timestamp string into a time value. The hub
// emits either a trailing Z or an explicit offset after a fixed-width
// fractional-seconds prefix; the colon inside the offset (position 26 after
// Z normalization) is stripped before parsing. Strings shorter than the
// fixed prefix fail with ErrMalformedTimestamp.
func ParseHubTime(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, malformedTimestamp(value)
	}

	// Normalize Z to an explicit offset so both forms share one code path.
	s = strings.Replace(s, "Z", "+00:00", 1)

	if len(s) < 27 {
		return time.Time{}, malformedTimestamp(value)
	}
	s = s[:26] + s[27:]

	t, err := time.Parse(hubTimeLayout, s)
	if err != nil {
		return time.Time{}, malformedTimestamp(value)
	}
	return t, nil
}

func malformedTimestamp(value string) error {
	return errors.Newf("timestamp %q does not match the hub format: %w", value, ErrMalformedTimestamp).
		Category(errors.CategoryWireFormat).
		Component("registration").
		Build()
}
