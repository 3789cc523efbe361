package forgehook

import "net/http"

// Provider identifies the webhook dialect of a source code host
type Provider string

// Providers with distinct webhook dialects. ProviderAuto detects the
// provider from request headers on every dispatch.
const (
	ProviderAuto      Provider = "auto"
	ProviderGitHub    Provider = "github"
	ProviderGitLab    Provider = "gitlab"
	ProviderDockerHub Provider = "dockerhub"
)

// Request headers consumed per provider
const (
	HeaderGitHubEvent     = "X-GitHub-Event"
	HeaderGitHubDelivery  = "X-GitHub-Delivery"
	HeaderHubSignature    = "X-Hub-Signature"
	HeaderHubSignature256 = "X-Hub-Signature-256"
	HeaderGitLabEvent     = "X-Gitlab-Event"
	HeaderGitLabToken     = "X-Gitlab-Token"
	HeaderNewRelicID      = "X-Newrelic-Id"
)

// EventDockerPush is the event name assigned to Docker Hub pushes,
// which carry no event header of their own.
const EventDockerPush = "docker_push"

// dockerHubNewRelicID is the fixed header value Docker Hub requests
// arrive with.
const dockerHubNewRelicID = "UQUFVFJUGwUJVlhaBgY="

// Valid reports whether p names a known provider
func (p Provider) Valid() bool {
	switch p {
	case ProviderAuto, ProviderGitHub, ProviderGitLab, ProviderDockerHub:
		return true
	}
	return false
}

// EventHeader returns the header carrying the event name, or an empty
// string when the provider sends none
func (p Provider) EventHeader() string {
	switch p {
	case ProviderGitHub:
		return HeaderGitHubEvent
	case ProviderGitLab:
		return HeaderGitLabEvent
	}
	return ""
}

// DeliveryHeader returns the header carrying the delivery identifier,
// or an empty string when the provider sends none
func (p Provider) DeliveryHeader() string {
	if p == ProviderGitHub {
		return HeaderGitHubDelivery
	}
	return ""
}

// SignatureHeader returns the header carrying the signature or token
// for the given digest scheme, or an empty string when the provider
// does not authenticate deliveries
func (p Provider) SignatureHeader(scheme SignatureScheme) string {
	switch p {
	case ProviderGitHub:
		if scheme == SignatureSchemeSHA256 {
			return HeaderHubSignature256
		}
		return HeaderHubSignature
	case ProviderGitLab:
		return HeaderGitLabToken
	}
	return ""
}

// DetectProvider inspects request headers and reports which provider
// sent the request
func DetectProvider(header http.Header) (Provider, bool) {
	switch {
	case header.Get(HeaderGitHubEvent) != "":
		return ProviderGitHub, true
	case header.Get(HeaderGitLabEvent) != "":
		return ProviderGitLab, true
	case header.Get(HeaderNewRelicID) == dockerHubNewRelicID:
		return ProviderDockerHub, true
	}
	return "", false
}
