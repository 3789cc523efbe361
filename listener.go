package forgehook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dawitel/forgehook/cache"
	"github.com/rs/zerolog"
)

// HookResult records one handler invocation. Event is the name the
// handler was registered under, so wildcard handlers report "*".
type HookResult struct {
	Event string
	Err   error
}

// Outcome aggregates the results of dispatching one delivery
type Outcome struct {
	Delivery *Delivery
	Results  []HookResult
	Skipped  bool // the delivery id was already seen and no handler ran
}

// Err joins all handler errors, or returns nil when every invoked
// handler succeeded
func (o *Outcome) Err() error {
	errs := make([]error, 0, len(o.Results))
	for _, result := range o.Results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}
	return errors.Join(errs...)
}

// Listener decodes, verifies and dispatches webhook deliveries to
// registered handlers.
type Listener struct {
	cfg      *Config
	logger   zerolog.Logger
	registry *Registry
	verifier *Verifier
	dedup    cache.Cache
}

// NewListener creates a listener from the configuration
func NewListener(cfg *Config, logger zerolog.Logger) (*Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dedup, err := newDedupCache(cfg.Dedup)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup cache: %w", err)
	}

	return &Listener{
		cfg:      cfg,
		logger:   logger,
		registry: NewRegistry(),
		verifier: NewVerifier([]byte(cfg.Secret), cfg.SignatureScheme),
		dedup:    dedup,
	}, nil
}

// On registers a handler for an event name, or for every event via
// EventWildcard. Registration is meant for the setup phase before
// serving begins.
func (l *Listener) On(event string, handler Handler) {
	l.registry.On(event, handler)
}

// OnFunc registers a plain function for an event name
func (l *Listener) OnFunc(event string, handler func(ctx context.Context, delivery *Delivery) error) {
	l.registry.OnFunc(event, handler)
}

// Events returns the event names with registered handlers
func (l *Listener) Events() []string {
	return l.registry.Events()
}

// Dispatch decodes and verifies one webhook request and invokes every
// matching handler: wildcard registrations first, then handlers for
// the exact event, in registration order. A handler failure is
// recorded in the outcome and does not stop the remaining handlers.
// Dispatch returns an error only when the request is rejected before
// any handler runs.
func (l *Listener) Dispatch(ctx context.Context, header http.Header, body []byte) (*Outcome, error) {
	decoded, err := decode(l.cfg.Provider, l.cfg.SignatureScheme, header, body, l.cfg.SupportFormEncoded)
	if err != nil {
		l.logger.Warn().Err(err).Msg("Rejected webhook request")
		return nil, err
	}

	delivery := l.buildDelivery(decoded)

	if delivery.SignatureState == SignatureInvalid {
		l.logger.Warn().
			Str("provider", string(delivery.Provider)).
			Str("event", delivery.Event).
			Str("delivery_id", delivery.ID).
			Msg("Webhook signature verification failed")

		if l.cfg.RejectInvalidSignature {
			return nil, &DecodeError{Stage: StageVerify, Err: ErrInvalidSignature}
		}
	}

	if delivery.ID != "" {
		seen, err := l.dedup.IsSeen(ctx, dedupKey(delivery))
		if err != nil {
			l.logger.Warn().Err(err).Msg("Dedup lookup failed, processing delivery anyway")
		} else if seen {
			l.logger.Info().
				Str("delivery_id", delivery.ID).
				Str("event", delivery.Event).
				Msg("Skipping already handled delivery")
			return &Outcome{Delivery: delivery, Skipped: true}, nil
		}
	}

	matched := l.registry.Match(delivery.Event)
	if len(matched) == 0 {
		l.logger.Debug().
			Str("event", delivery.Event).
			Msg("No handlers registered for event")
		return &Outcome{Delivery: delivery}, nil
	}

	results := make([]HookResult, 0, len(matched))
	for _, reg := range matched {
		results = append(results, HookResult{
			Event: reg.Event,
			Err:   l.invoke(ctx, reg, delivery),
		})
	}

	outcome := &Outcome{Delivery: delivery, Results: results}

	// Only fully handled deliveries are marked as seen, so a provider
	// redelivery after a handler failure is processed again.
	if delivery.ID != "" && outcome.Err() == nil {
		if err := l.dedup.MarkSeen(ctx, dedupKey(delivery), l.cfg.Dedup.TTL); err != nil {
			l.logger.Warn().Err(err).Msg("Failed to record delivery in dedup cache")
		}
	}

	l.logger.Debug().
		Str("provider", string(delivery.Provider)).
		Str("event", delivery.Event).
		Str("delivery_id", delivery.ID).
		Int("handlers", len(results)).
		Msg("Dispatched webhook delivery")

	return outcome, nil
}

// buildDelivery assembles the canonical delivery from decoded fields,
// running verification and payload parsing per configuration
func (l *Listener) buildDelivery(decoded *decodedRequest) *Delivery {
	delivery := &Delivery{
		Provider:    decoded.provider,
		ContentType: decoded.contentType,
		ID:          decoded.id,
		Event:       NormalizeEvent(decoded.event),
		RawPayload:  decoded.body,
		Signature:   decoded.signature,
		payloadDoc:  decoded.payloadDoc,
	}

	delivery.SignatureState = l.verifySignature(decoded)

	if l.cfg.ParsePayload {
		var payload map[string]any
		if err := json.Unmarshal(decoded.payloadDoc, &payload); err != nil {
			l.logger.Debug().
				Err(err).
				Str("event", delivery.Event).
				Msg("Payload is not a JSON object, leaving it unparsed")
		} else {
			delivery.Payload = payload
		}
	}

	return delivery
}

// verifySignature applies the provider's authentication model. With no
// secret configured the state is always not-checked, never invalid.
// With a secret configured, a missing or failing signature is invalid;
// verification never fails open.
func (l *Listener) verifySignature(decoded *decodedRequest) SignatureState {
	if !l.verifier.Enabled() {
		return SignatureNotChecked
	}

	// Docker Hub deliveries carry no signature material at all.
	if decoded.provider == ProviderDockerHub {
		return SignatureNotChecked
	}

	if decoded.signature == "" {
		return SignatureInvalid
	}

	var ok bool
	if decoded.provider == ProviderGitLab {
		ok = l.verifier.VerifyToken(decoded.signature)
	} else {
		ok = l.verifier.VerifyMAC(decoded.body, decoded.signature)
	}

	if ok {
		return SignatureValid
	}
	return SignatureInvalid
}

// invoke runs one handler, converting a panic into an error so a
// broken handler cannot take down its siblings
func (l *Listener) invoke(ctx context.Context, reg Registration, delivery *Delivery) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error().
				Interface("panic", rec).
				Str("event", delivery.Event).
				Msg("Panic recovered in hook handler")
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()

	return reg.Handler.Handle(ctx, delivery)
}

// Handler returns the HTTP handler serving this listener's hook
// endpoint
func (l *Listener) Handler() *HTTPHandler {
	return NewHTTPHandler(l, l.logger, l.cfg.HTTPClient.MaxRequestBodySize)
}

// Close releases listener resources
func (l *Listener) Close() error {
	if err := l.dedup.Close(); err != nil {
		return fmt.Errorf("failed to close dedup cache: %w", err)
	}
	return nil
}

// dedupKey builds the cache key for a delivery, namespaced by provider
// so ids from different providers cannot collide
func dedupKey(delivery *Delivery) string {
	return string(delivery.Provider) + ":" + delivery.ID
}
