package forgehook

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveContentType(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		supportForm bool
		expected    ContentType
		expectedErr error
	}{
		{"absent header", "", true, ContentTypeJSON, nil},
		{"json", "application/json", true, ContentTypeJSON, nil},
		{"json with charset", "application/json; charset=utf-8", true, ContentTypeJSON, nil},
		{"uppercase json", "Application/JSON", true, ContentTypeJSON, nil},
		{"form", "application/x-www-form-urlencoded", true, ContentTypeForm, nil},
		{"form disabled", "application/x-www-form-urlencoded", false, "", ErrUnsupportedContentType},
		{"text plain", "text/plain", true, "", ErrUnsupportedContentType},
		{"xml", "application/xml", true, "", ErrUnsupportedContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contentType, err := resolveContentType(tt.raw, tt.supportForm)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, contentType)
		})
	}
}

func TestDecodeGitHub(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)
	header := HeaderFromMap(map[string]string{
		"Content-Type":      "application/json",
		"X-GitHub-Event":    "push",
		"X-GitHub-Delivery": "72d3162e-cc78-11e3-81ab-4c9367dc0958",
		"X-Hub-Signature":   "sha1=deadbeef",
	})

	decoded, err := decode(ProviderAuto, SignatureSchemeSHA1, header, body, true)
	require.NoError(t, err)

	assert.Equal(t, ProviderGitHub, decoded.provider)
	assert.Equal(t, ContentTypeJSON, decoded.contentType)
	assert.Equal(t, "push", decoded.event)
	assert.Equal(t, "72d3162e-cc78-11e3-81ab-4c9367dc0958", decoded.id)
	assert.Equal(t, "sha1=deadbeef", decoded.signature)
	assert.Equal(t, body, decoded.body)
	assert.Equal(t, body, decoded.payloadDoc)
}

func TestDecodeGitHubSHA256Header(t *testing.T) {
	header := HeaderFromMap(map[string]string{
		"X-GitHub-Event":      "push",
		"X-Hub-Signature":     "sha1=aaaa",
		"X-Hub-Signature-256": "sha256=bbbb",
	})

	decoded, err := decode(ProviderGitHub, SignatureSchemeSHA256, header, []byte("{}"), true)
	require.NoError(t, err)
	assert.Equal(t, "sha256=bbbb", decoded.signature)

	decoded, err = decode(ProviderGitHub, SignatureSchemeSHA1, header, []byte("{}"), true)
	require.NoError(t, err)
	assert.Equal(t, "sha1=aaaa", decoded.signature)
}

func TestDecodeGitLab(t *testing.T) {
	header := HeaderFromMap(map[string]string{
		"X-Gitlab-Event": "Push Hook",
		"X-Gitlab-Token": "s3cr3t",
	})

	decoded, err := decode(ProviderAuto, SignatureSchemeSHA1, header, []byte("{}"), true)
	require.NoError(t, err)

	// Event names are kept as received here; normalization happens when
	// the delivery is built.
	assert.Equal(t, ProviderGitLab, decoded.provider)
	assert.Equal(t, "Push Hook", decoded.event)
	assert.Equal(t, "s3cr3t", decoded.signature)
	assert.Empty(t, decoded.id)
}

func TestDecodeDockerHub(t *testing.T) {
	header := HeaderFromMap(map[string]string{
		"X-Newrelic-Id": "UQUFVFJUGwUJVlhaBgY=",
	})

	decoded, err := decode(ProviderAuto, SignatureSchemeSHA1, header, []byte("{}"), true)
	require.NoError(t, err)
	assert.Equal(t, ProviderDockerHub, decoded.provider)
	assert.Equal(t, EventDockerPush, decoded.event)
	assert.Empty(t, decoded.id)
	assert.Empty(t, decoded.signature)

	// An explicitly configured Docker Hub listener needs no headers at
	// all to attribute the event.
	decoded, err = decode(ProviderDockerHub, SignatureSchemeSHA1, HeaderFromMap(nil), []byte("{}"), true)
	require.NoError(t, err)
	assert.Equal(t, EventDockerPush, decoded.event)
}

func TestDecodeMissingEventHeader(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		headers  map[string]string
	}{
		{"explicit provider without event", ProviderGitHub, map[string]string{"Content-Type": "application/json"}},
		{"auto detection fails", ProviderAuto, map[string]string{"Content-Type": "application/json"}},
		{"auto with unrelated headers", ProviderAuto, map[string]string{"User-Agent": "curl/8.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(tt.provider, SignatureSchemeSHA1, HeaderFromMap(tt.headers), []byte("{}"), true)
			assert.ErrorIs(t, err, ErrMissingEventHeader)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, StageDecode, decodeErr.Stage)
		})
	}
}

func TestDecodeFormBody(t *testing.T) {
	payload := `{"action":"opened"}`
	body := []byte(url.Values{"payload": {payload}}.Encode())
	header := HeaderFromMap(map[string]string{
		"Content-Type":   "application/x-www-form-urlencoded",
		"X-Gitlab-Event": "Issue Hook",
	})

	decoded, err := decode(ProviderAuto, SignatureSchemeSHA1, header, body, true)
	require.NoError(t, err)

	assert.Equal(t, ContentTypeForm, decoded.contentType)
	assert.Equal(t, body, decoded.body)
	assert.Equal(t, []byte(payload), decoded.payloadDoc)
}

func TestDecodeFormBodyWithoutPayloadField(t *testing.T) {
	header := HeaderFromMap(map[string]string{
		"Content-Type":   "application/x-www-form-urlencoded",
		"X-GitHub-Event": "push",
	})

	decoded, err := decode(ProviderAuto, SignatureSchemeSHA1, header, []byte("foo=bar"), true)
	require.NoError(t, err)
	assert.NotNil(t, decoded.payloadDoc)
	assert.Empty(t, decoded.payloadDoc)
}

func TestDecodeFormBodyMalformed(t *testing.T) {
	header := HeaderFromMap(map[string]string{
		"Content-Type":   "application/x-www-form-urlencoded",
		"X-GitHub-Event": "push",
	})

	_, err := decode(ProviderAuto, SignatureSchemeSHA1, header, []byte("payload=%zz"), true)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, StageDecode, decodeErr.Stage)
}

func TestDecodeFormDisabled(t *testing.T) {
	header := HeaderFromMap(map[string]string{
		"Content-Type":   "application/x-www-form-urlencoded",
		"X-GitHub-Event": "push",
	})

	_, err := decode(ProviderAuto, SignatureSchemeSHA1, header, []byte("payload=%7B%7D"), false)
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
}

func TestHeaderFromMap(t *testing.T) {
	header := HeaderFromMap(map[string]string{
		"x-github-event":    "push",
		"x-github-delivery": "abc-123",
	})

	assert.Equal(t, "push", header.Get("X-GitHub-Event"))
	assert.Equal(t, "abc-123", header.Get("X-Github-Delivery"))

	decoded, err := decode(ProviderAuto, SignatureSchemeSHA1, header, []byte("{}"), true)
	require.NoError(t, err)
	assert.Equal(t, ProviderGitHub, decoded.provider)
	assert.Equal(t, "push", decoded.event)
}

func TestDecodeError(t *testing.T) {
	err := &DecodeError{Stage: StageVerify, Err: ErrInvalidSignature}

	assert.Equal(t, "verify stage: invalid signature", err.Error())
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, ErrInvalidSignature, errors.Unwrap(err))
}
