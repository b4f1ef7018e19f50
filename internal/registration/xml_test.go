package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToXMLNative(t *testing.T) {
	t.Parallel()

	reg := NewNative("myhub", "device-token-1", []string{"sports", "news"})
	reg.RegistrationID = "reg-123"

	data, err := reg.ToXML()
	require.NoError(t, err, "serialization should succeed")

	assert.Contains(t, data, "<GcmRegistrationDescription", "native payload element should be present")
	assert.Contains(t, data, "<RegistrationId>reg-123</RegistrationId>")
	assert.Contains(t, data, "<GcmRegistrationId>device-token-1</GcmRegistrationId>")
	assert.Contains(t, data, "<Tags>sports,news</Tags>", "tags should be comma-joined")
	assert.Contains(t, data, `xmlns="http://www.w3.org/2005/Atom"`, "entry should carry the Atom namespace")
	assert.NotContains(t, data, "<TemplateName>", "native payload should not carry a template name")
	assert.NotContains(t, data, "<BodyTemplate>", "native payload should not carry a body template")
}

func TestToXMLNativeWithoutTags(t *testing.T) {
	t.Parallel()

	reg := NewNative("myhub", "device-token-1", nil)
	reg.RegistrationID = "reg-123"

	data, err := reg.ToXML()
	require.NoError(t, err)

	assert.NotContains(t, data, "<Tags>", "empty tags should be omitted from the wire form entirely")
}

func TestToXMLTemplate(t *testing.T) {
	t.Parallel()

	reg := NewTemplate("myhub", "device-token-1", "toast", `{"data":{"msg":"$(message)"}}`, []string{"sports"})
	reg.RegistrationID = "reg-456"

	data, err := reg.ToXML()
	require.NoError(t, err)

	assert.Contains(t, data, "<GcmTemplateRegistrationDescription", "template payload element should be present")
	assert.Contains(t, data, "<TemplateName>toast</TemplateName>")
	assert.Contains(t, data, "<BodyTemplate>{&#34;data&#34;:{&#34;msg&#34;:&#34;$(message)&#34;}}</BodyTemplate>",
		"template body should be XML-escaped")
}

func TestFromXMLNative(t *testing.T) {
	t.Parallel()

	data := `<entry a:etag="W/&quot;1&quot;" xmlns="http://www.w3.org/2005/Atom" xmlns:a="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata">
	<id>https://ns.example.net/myhub/Registrations/reg-123</id>
	<updated>2026-01-15T10:30:45.123Z</updated>
	<content type="application/xml">
		<GcmRegistrationDescription xmlns:i="http://www.w3.org/2001/XMLSchema-instance" xmlns="http://schemas.microsoft.com/netservices/2010/10/servicebus/connect">
			<ETag>1</ETag>
			<ExpirationTime>2026-04-15T10:30:45.123Z</ExpirationTime>
			<RegistrationId>reg-123</RegistrationId>
			<Tags>sports,news</Tags>
			<GcmRegistrationId>device-token-1</GcmRegistrationId>
		</GcmRegistrationDescription>
	</content>
</entry>`

	reg, err := FromXML(data, "myhub")
	require.NoError(t, err, "server entry should parse")

	assert.Equal(t, KindNative, reg.Kind, "payload element should discriminate the native variant")
	assert.Equal(t, DefaultName, reg.Name, "native registration should take the reserved default name")
	assert.Equal(t, "reg-123", reg.RegistrationID)
	assert.Equal(t, "device-token-1", reg.PushHandle)
	assert.Equal(t, "1", reg.ETag)
	assert.Equal(t, []string{"sports", "news"}, reg.Tags, "tags should be split on commas")
	assert.Equal(t, "2026-01-15T10:30:45.123Z", reg.Updated)
	assert.Equal(t, "2026-04-15T10:30:45.123Z", reg.ExpirationTime)
	assert.Equal(t, "myhub", reg.HubPath, "hub path comes from the caller, not the wire form")
}

func TestFromXMLTemplate(t *testing.T) {
	t.Parallel()

	data := `<entry xmlns="http://www.w3.org/2005/Atom">
	<updated>2026-01-15T10:30:45.123Z</updated>
	<content type="application/xml">
		<GcmTemplateRegistrationDescription xmlns="http://schemas.microsoft.com/netservices/2010/10/servicebus/connect">
			<RegistrationId>reg-456</RegistrationId>
			<GcmRegistrationId>device-token-1</GcmRegistrationId>
			<BodyTemplate>{"data":{"msg":"$(message)"}}</BodyTemplate>
			<TemplateName>toast</TemplateName>
		</GcmTemplateRegistrationDescription>
	</content>
</entry>`

	reg, err := FromXML(data, "myhub")
	require.NoError(t, err)

	assert.Equal(t, KindTemplate, reg.Kind, "payload element should discriminate the template variant")
	assert.Equal(t, "toast", reg.Name, "template registration should be named after the template")
	assert.Equal(t, "reg-456", reg.RegistrationID)
	assert.Equal(t, `{"data":{"msg":"$(message)"}}`, reg.BodyTemplate)
}

func TestFromXMLWithoutPayload(t *testing.T) {
	t.Parallel()

	reg, err := FromXML(`<entry xmlns="http://www.w3.org/2005/Atom"><updated>2026-01-15T10:30:45.123Z</updated></entry>`, "myhub")
	require.NoError(t, err, "an entry without a payload element is not a parse failure")

	assert.Empty(t, reg.RegistrationID, "server-assigned fields should stay unset without a payload")
	assert.Equal(t, "2026-01-15T10:30:45.123Z", reg.Updated, "entry-level fields should still be copied")
}

func TestFromXMLMalformed(t *testing.T) {
	t.Parallel()

	_, err := FromXML("not xml at all <", "myhub")
	assert.Error(t, err, "malformed XML should fail")
}

func TestXMLRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("native", func(t *testing.T) {
		t.Parallel()

		original := NewNative("myhub", "device-token-1", []string{"sports", "news"})
		original.RegistrationID = "reg-123"

		data, err := original.ToXML()
		require.NoError(t, err)

		parsed, err := FromXML(data, "myhub")
		require.NoError(t, err)

		assert.Equal(t, KindNative, parsed.Kind)
		assert.Equal(t, original.RegistrationID, parsed.RegistrationID)
		assert.Equal(t, original.PushHandle, parsed.PushHandle)
		assert.Equal(t, original.Tags, parsed.Tags, "tags should survive the round trip")
	})

	t.Run("template", func(t *testing.T) {
		t.Parallel()

		original := NewTemplate("myhub", "device-token-1", "toast", `{"data":{"msg":"$(message)"}}`, nil)
		original.RegistrationID = "reg-456"

		data, err := original.ToXML()
		require.NoError(t, err)

		parsed, err := FromXML(data, "myhub")
		require.NoError(t, err)

		assert.Equal(t, KindTemplate, parsed.Kind)
		assert.Equal(t, "toast", parsed.Name)
		assert.Equal(t, original.BodyTemplate, parsed.BodyTemplate)
	})
}

func TestFromFeedXML(t *testing.T) {
	t.Parallel()

	data := `<feed xmlns="http://www.w3.org/2005/Atom">
	<title type="text">Registrations</title>
	<entry>
		<updated>2026-01-15T10:30:45.123Z</updated>
		<content type="application/xml">
			<GcmRegistrationDescription xmlns="http://schemas.microsoft.com/netservices/2010/10/servicebus/connect">
				<RegistrationId>reg-123</RegistrationId>
				<GcmRegistrationId>device-token-1</GcmRegistrationId>
			</GcmRegistrationDescription>
		</content>
	</entry>
	<entry>
		<updated>2026-01-15T10:31:45.123Z</updated>
		<content type="application/xml">
			<GcmTemplateRegistrationDescription xmlns="http://schemas.microsoft.com/netservices/2010/10/servicebus/connect">
				<RegistrationId>reg-456</RegistrationId>
				<GcmRegistrationId>device-token-1</GcmRegistrationId>
				<BodyTemplate>{"data":{"msg":"$(message)"}}</BodyTemplate>
				<TemplateName>toast</TemplateName>
			</GcmTemplateRegistrationDescription>
		</content>
	</entry>
</feed>`

	registrations, err := FromFeedXML(data, "myhub")
	require.NoError(t, err, "feed should parse")
	require.Len(t, registrations, 2, "one registration per entry")

	assert.Equal(t, KindNative, registrations[0].Kind)
	assert.Equal(t, DefaultName, registrations[0].Name)
	assert.Equal(t, "reg-123", registrations[0].RegistrationID)

	assert.Equal(t, KindTemplate, registrations[1].Kind)
	assert.Equal(t, "toast", registrations[1].Name)
	assert.Equal(t, "reg-456", registrations[1].RegistrationID)
}

func TestFromFeedXMLEmpty(t *testing.T) {
	t.Parallel()

	registrations, err := FromFeedXML(`<feed xmlns="http://www.w3.org/2005/Atom"><title type="text">Registrations</title></feed>`, "myhub")
	require.NoError(t, err, "an empty feed should parse")
	assert.Empty(t, registrations, "no entries means no registrations")
}
