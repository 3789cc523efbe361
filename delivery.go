package forgehook

// SignatureState reports the outcome of signature verification for a
// delivery.
type SignatureState int

const (
	// SignatureNotChecked means no secret was configured, so verification
	// was not attempted.
	SignatureNotChecked SignatureState = iota
	// SignatureValid means the signature matched the configured secret.
	SignatureValid
	// SignatureInvalid means the signature was missing or did not match
	// the configured secret.
	SignatureInvalid
)

// String returns the state name
func (s SignatureState) String() string {
	switch s {
	case SignatureValid:
		return "valid"
	case SignatureInvalid:
		return "invalid"
	default:
		return "not_checked"
	}
}

// ContentType identifies the encoding of a webhook request body
type ContentType string

const (
	// ContentTypeJSON is a JSON body carrying the payload directly
	ContentTypeJSON ContentType = "application/json"
	// ContentTypeForm is a form-urlencoded body carrying the payload in
	// its "payload" field
	ContentTypeForm ContentType = "application/x-www-form-urlencoded"
)

// Delivery is one canonical webhook event, decoded, normalized and
// verified, ready for handler consumption. RawPayload always holds the
// original request body; Payload is derived from it and may be nil even
// when RawPayload is present.
type Delivery struct {
	Provider       Provider
	ContentType    ContentType
	ID             string // provider-assigned delivery identifier, empty when absent
	Event          string // canonical lowercase, underscore-separated name
	RawPayload     []byte
	Payload        map[string]any // nil when parsing is disabled or the document is not JSON
	Signature      string         // signature or token header value as received
	SignatureState SignatureState

	payloadDoc []byte
}

// PayloadDocument returns the JSON document carried by the delivery:
// the raw body for JSON requests, or the payload form field for
// form-encoded requests.
func (d *Delivery) PayloadDocument() []byte {
	if d.payloadDoc != nil {
		return d.payloadDoc
	}
	return d.RawPayload
}
