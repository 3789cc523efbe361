package forgehook

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Stage names the pipeline phase that rejected a request
type Stage string

const (
	// StageDecode covers content negotiation, header extraction and form
	// parsing
	StageDecode Stage = "decode"
	// StageVerify covers signature and token checks
	StageVerify Stage = "verify"
)

// Errors reported through DecodeError when a request cannot become a
// delivery.
var (
	// ErrUnsupportedContentType means the body encoding is neither JSON
	// nor form-urlencoded, or form support is disabled
	ErrUnsupportedContentType = errors.New("unsupported content type")
	// ErrMissingEventHeader means no provider could be recognized or the
	// recognized provider sent no event name
	ErrMissingEventHeader = errors.New("missing event header")
	// ErrInvalidSignature means signature verification failed while
	// rejection is enabled
	ErrInvalidSignature = errors.New("invalid signature")
)

// DecodeError reports a request that was rejected before any handler
// ran, tagged with the stage that rejected it.
type DecodeError struct {
	Stage Stage
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// decodedRequest carries the fields extracted from an incoming request
// before verification and delivery construction.
type decodedRequest struct {
	provider    Provider
	contentType ContentType
	event       string
	id          string
	signature   string
	body        []byte
	payloadDoc  []byte
}

// decode extracts provider, event and payload fields from request
// headers and body. provider may be ProviderAuto, in which case the
// headers decide. A missing delivery id or signature header is not an
// error; the field stays empty.
func decode(provider Provider, scheme SignatureScheme, header http.Header, body []byte, supportForm bool) (*decodedRequest, error) {
	if provider == ProviderAuto {
		detected, ok := DetectProvider(header)
		if !ok {
			return nil, &DecodeError{Stage: StageDecode, Err: ErrMissingEventHeader}
		}
		provider = detected
	}

	contentType, err := resolveContentType(header.Get("Content-Type"), supportForm)
	if err != nil {
		return nil, &DecodeError{Stage: StageDecode, Err: err}
	}

	decoded := &decodedRequest{
		provider:    provider,
		contentType: contentType,
		body:        body,
		payloadDoc:  body,
	}

	if provider == ProviderDockerHub {
		decoded.event = EventDockerPush
	} else {
		decoded.event = headerOrEmpty(header, provider.EventHeader())
		if decoded.event == "" {
			return nil, &DecodeError{Stage: StageDecode, Err: ErrMissingEventHeader}
		}
		decoded.id = headerOrEmpty(header, provider.DeliveryHeader())
		decoded.signature = headerOrEmpty(header, provider.SignatureHeader(scheme))
	}

	if contentType == ContentTypeForm {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, &DecodeError{Stage: StageDecode, Err: fmt.Errorf("failed to parse form body: %w", err)}
		}
		// A form body without a payload field yields an empty document,
		// not an error. The delivery still reaches its handlers.
		decoded.payloadDoc = []byte(values.Get("payload"))
	}

	return decoded, nil
}

// headerOrEmpty reads a header value, tolerating providers that define
// no header for the slot.
func headerOrEmpty(header http.Header, key string) string {
	if key == "" {
		return ""
	}
	return header.Get(key)
}

// resolveContentType maps a Content-Type header onto one of the two
// supported encodings. An absent header is treated as JSON.
func resolveContentType(raw string, supportForm bool) (ContentType, error) {
	if raw == "" {
		return ContentTypeJSON, nil
	}

	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mediaType = raw
	}

	switch ContentType(strings.ToLower(strings.TrimSpace(mediaType))) {
	case ContentTypeJSON:
		return ContentTypeJSON, nil
	case ContentTypeForm:
		if !supportForm {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, mediaType)
		}
		return ContentTypeForm, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, mediaType)
}

// HeaderFromMap builds an http.Header from a plain map so callers not
// fronted by net/http can dispatch deliveries. Keys are canonicalized,
// keeping lookups case-insensitive.
func HeaderFromMap(m map[string]string) http.Header {
	header := make(http.Header, len(m))
	for k, v := range m {
		header.Set(k, v)
	}
	return header
}
