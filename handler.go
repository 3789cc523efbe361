package forgehook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPHandler serves a listener's hook endpoint over HTTP
type HTTPHandler struct {
	listener    *Listener
	logger      zerolog.Logger
	maxBodySize int64
}

// NewHTTPHandler creates a new HTTP handler for webhook requests
func NewHTTPHandler(listener *Listener, logger zerolog.Logger, maxBodySize int64) *HTTPHandler {
	return &HTTPHandler{
		listener:    listener,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// ServeHTTP implements http.Handler
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleWebhook(w, r)
}

// HandleWebhook handles incoming webhook requests
func (h *HTTPHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error().
				Interface("panic", rec).
				Msg("Panic recovered in webhook handler")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limitedBody := http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(limitedBody)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.logger.Warn().
				Int64("max_size", h.maxBodySize).
				Msg("Webhook request body exceeds maximum size")
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to read webhook body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if len(body) == 0 {
		h.logger.Warn().Msg("Empty webhook body received")
		http.Error(w, "Empty body", http.StatusBadRequest)
		return
	}

	outcome, err := h.listener.Dispatch(r.Context(), r.Header, body)
	if err != nil {
		h.writeDispatchError(w, err)
		return
	}

	if err := outcome.Err(); err != nil {
		h.logger.Error().Err(err).
			Str("event", outcome.Delivery.Event).
			Msg("Failed to process webhook")
		http.Error(w, "Failed to process webhook", http.StatusInternalServerError)
		return
	}

	// A delivery nothing is registered for is acknowledged rather than
	// refused. Providers disable hooks whose endpoint keeps erroring.
	if len(outcome.Results) == 0 && !outcome.Skipped {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("Accepted"))
		return
	}

	receipt := outcome.Delivery.ID
	if receipt == "" {
		receipt = uuid.New().String()
	}

	resp := struct {
		ReceiptID string `json:"receipt_id"`
	}{ReceiptID: receipt}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write webhook response")
	}
}

// writeDispatchError maps a rejected request onto an HTTP status. A
// request no provider can be attributed to gets 202 for the same
// reason unhandled events do.
func (h *HTTPHandler) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingEventHeader):
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("Accepted"))
	case errors.Is(err, ErrUnsupportedContentType):
		http.Error(w, "Unsupported content type", http.StatusUnsupportedMediaType)
	case errors.Is(err, ErrInvalidSignature):
		http.Error(w, "Invalid signature", http.StatusForbidden)
	default:
		http.Error(w, "Failed to decode webhook", http.StatusBadRequest)
	}
}
