package registration

import (
	"encoding/xml"
	"strings"

	"github.com/notifyhub/notifyhub-go/internal/errors"
)

// XML namespaces used by the hub's Atom entries.
const (
	atomNamespace    = "http://www.w3.org/2005/Atom"
	payloadNamespace = "http://schemas.microsoft.com/netservices/2010/10/servicebus/connect"
	schemaNamespace  = "http://www.w3.org/2001/XMLSchema-instance"
)

// payloadXML carries the fields common to both variants plus the
// variant-specific ones; omitempty keeps blank fields out of the wire form
// entirely. Field order matches the hub's expected element order.
type payloadXML struct {
	XMLName        xml.Name
	SchemaNS       string `xml:"xmlns:i,attr"`
	Namespace      string `xml:"xmlns,attr"`
	ETag           string `xml:"ETag,omitempty"`
	ExpirationTime string `xml:"ExpirationTime,omitempty"`
	RegistrationID string `xml:"RegistrationId,omitempty"`
	Tags           string `xml:"Tags,omitempty"`
	Handle         string `xml:"GcmRegistrationId,omitempty"`
	BodyTemplate   string `xml:"BodyTemplate,omitempty"`
	TemplateName   string `xml:"TemplateName,omitempty"`
}

type contentXML struct {
	Type    string     `xml:"type,attr"`
	Payload payloadXML `xml:""`
}

type entryXML struct {
	XMLName   xml.Name   `xml:"entry"`
	Namespace string     `xml:"xmlns,attr"`
	ID        string     `xml:"id,omitempty"`
	Updated   string     `xml:"updated,omitempty"`
	Content   contentXML `xml:"content"`
}

// MarshalXML emits the payload under its variant-specific element name.
func (c contentXML) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: c.Type})
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.EncodeElement(c.Payload, xml.StartElement{Name: c.Payload.XMLName}); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// ToXML serializes the registration as an Atom entry for upsert requests.
func (r *Registration) ToXML() (string, error) {
	entry := entryXML{
		Namespace: atomNamespace,
		ID:        r.URI(),
		Updated:   r.Updated,
		Content: contentXML{
			Type: "application/xml",
			Payload: payloadXML{
				XMLName:        xml.Name{Local: r.payloadNode()},
				SchemaNS:       schemaNamespace,
				Namespace:      payloadNamespace,
				ETag:           r.ETag,
				ExpirationTime: r.ExpirationTime,
				RegistrationID: r.RegistrationID,
				Tags:           strings.Join(r.Tags, ","),
				Handle:         r.PushHandle,
				BodyTemplate:   r.BodyTemplate,
				TemplateName:   templateNameFor(r),
			},
		},
	}

	data, err := xml.Marshal(entry)
	if err != nil {
		return "", errors.Newf("failed to serialize registration to XML: %w", err).
			Category(errors.CategoryWireFormat).
			Component("registration").
			Build()
	}
	return string(data), nil
}

// templateNameFor returns the TemplateName element value, blank for the
// native variant so omitempty drops it.
func templateNameFor(r *Registration) string {
	if r.Kind == KindTemplate {
		return r.Name
	}
	return ""
}

// decodePayloadXML mirrors payloadXML for reads; a separate struct keeps the
// namespace attributes out of the decode path.
type decodePayloadXML struct {
	ETag           string `xml:"ETag"`
	ExpirationTime string `xml:"ExpirationTime"`
	RegistrationID string `xml:"RegistrationId"`
	Tags           string `xml:"Tags"`
	Handle         string `xml:"GcmRegistrationId"`
	BodyTemplate   string `xml:"BodyTemplate"`
	TemplateName   string `xml:"TemplateName"`
}

// decodeEntryXML is the tagged union for a single Atom entry: exactly one of
// the payload pointers is set, and which one discriminates the variant.
type decodeEntryXML struct {
	Updated  string            `xml:"updated"`
	Native   *decodePayloadXML `xml:"content>GcmRegistrationDescription"`
	Template *decodePayloadXML `xml:"content>GcmTemplateRegistrationDescription"`
}

type decodeFeedXML struct {
	Entries []decodeEntryXML `xml:"entry"`
}

// FromXML deserializes a single Atom entry into a Registration. When the
// entry carries no recognizable payload element the returned registration
// has no server-assigned fields set; callers must treat a blank
// RegistrationID as "no registration data present".
func FromXML(data, hubPath string) (*Registration, error) {
	var entry decodeEntryXML
	if err := xml.Unmarshal([]byte(data), &entry); err != nil {
		return nil, errors.Newf("failed to parse registration XML: %w", err).
			Category(errors.CategoryWireFormat).
			Component("registration").
			Build()
	}
	return entryToRegistration(&entry, hubPath), nil
}

// FromFeedXML deserializes an Atom feed of registrations, one per entry.
func FromFeedXML(data, hubPath string) ([]*Registration, error) {
	var feed decodeFeedXML
	if err := xml.Unmarshal([]byte(data), &feed); err != nil {
		return nil, errors.Newf("failed to parse registration feed XML: %w", err).
			Category(errors.CategoryWireFormat).
			Component("registration").
			Build()
	}

	registrations := make([]*Registration, 0, len(feed.Entries))
	for i := range feed.Entries {
		registrations = append(registrations, entryToRegistration(&feed.Entries[i], hubPath))
	}
	return registrations, nil
}

// entryToRegistration applies the variant discriminator and copies the
// server-authoritative fields.
func entryToRegistration(entry *decodeEntryXML, hubPath string) *Registration {
	r := &Registration{
		Kind:    KindNative,
		HubPath: hubPath,
		Updated: entry.Updated,
	}

	var payload *decodePayloadXML
	switch {
	case entry.Template != nil:
		r.Kind = KindTemplate
		payload = entry.Template
	case entry.Native != nil:
		payload = entry.Native
	default:
		// No payload element: leave server-assigned fields unset.
		return r
	}

	r.ETag = payload.ETag
	r.ExpirationTime = payload.ExpirationTime
	r.RegistrationID = payload.RegistrationID
	r.PushHandle = payload.Handle

	if tags := strings.TrimSpace(payload.Tags); tags != "" {
		r.Tags = strings.Split(tags, ",")
	}

	if r.Kind == KindTemplate {
		r.BodyTemplate = payload.BodyTemplate
		r.Name = payload.TemplateName
	} else {
		r.Name = DefaultName
	}

	return r
}
