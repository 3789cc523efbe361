package forgehook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strings"
)

// SignatureScheme selects the digest used for keyed-hash signatures
type SignatureScheme string

const (
	// SignatureSchemeSHA1 verifies the X-Hub-Signature header
	SignatureSchemeSHA1 SignatureScheme = "sha1"
	// SignatureSchemeSHA256 verifies the X-Hub-Signature-256 header
	SignatureSchemeSHA256 SignatureScheme = "sha256"
)

// Valid reports whether s names a supported scheme
func (s SignatureScheme) Valid() bool {
	return s == SignatureSchemeSHA1 || s == SignatureSchemeSHA256
}

// hashFunc returns the hash constructor for the scheme
func (s SignatureScheme) hashFunc() func() hash.Hash {
	if s == SignatureSchemeSHA256 {
		return sha256.New
	}
	return sha1.New
}

// prefix returns the marker providers prepend to hex signatures
func (s SignatureScheme) prefix() string {
	return string(s) + "="
}

// Verifier handles signature verification for webhook payloads. An
// empty secret disables verification.
type Verifier struct {
	secret  []byte
	scheme  SignatureScheme
	newHash func() hash.Hash
}

// NewVerifier creates a verifier for the given secret and digest scheme
func NewVerifier(secret []byte, scheme SignatureScheme) *Verifier {
	if !scheme.Valid() {
		scheme = SignatureSchemeSHA1
	}
	return &Verifier{
		secret:  secret,
		scheme:  scheme,
		newHash: scheme.hashFunc(),
	}
}

// Enabled reports whether a secret is configured
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// VerifyMAC checks a hex-encoded keyed-hash MAC computed over body. The
// scheme marker ("sha1=" or "sha256=") is stripped when present.
// Malformed hex yields false, never an error. The comparison runs in
// constant time.
func (v *Verifier) VerifyMAC(body []byte, signature string) bool {
	if !v.Enabled() || signature == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, v.scheme.prefix())
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(v.newHash, v.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// VerifyToken checks a plain token for equality with the secret in
// constant time
func (v *Verifier) VerifyToken(token string) bool {
	if !v.Enabled() || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), v.secret) == 1
}
