package forgehook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// HookInfo represents information about a registered hook
type HookInfo struct {
	ID     int64
	URL    string
	Events []string
	Active bool
}

// DeliveryInfo represents one recorded delivery attempt for a hook
type DeliveryInfo struct {
	ID          int64
	GUID        string
	Event       string
	Action      string
	Status      string
	StatusCode  int
	Redelivery  bool
	DeliveredAt time.Time
}

// Manager handles hook management operations against the provider API
type Manager struct {
	cfg            *Config
	logger         zerolog.Logger
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	provider       Provider
	baseURL        string
	repo           string
}

// NewManager creates a hook manager for one repository. repo is
// "owner/name" for GitHub and the project path or numeric id for
// GitLab.
func NewManager(cfg *Config, logger zerolog.Logger, repo string) (*Manager, error) {
	provider := cfg.Provider
	if provider != ProviderGitHub && provider != ProviderGitLab {
		return nil, fmt.Errorf("hook management is not supported for provider %s", provider)
	}

	if cfg.Manager.Token == "" {
		return nil, errors.New("manager token is required")
	}

	if repo == "" {
		return nil, errors.New("repository is required")
	}

	baseURL := cfg.Manager.APIBaseURL
	if baseURL == "" {
		if provider == ProviderGitLab {
			baseURL = DefaultGitLabAPIURL
		} else {
			baseURL = DefaultGitHubAPIURL
		}
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("hook-manager-%s", provider),
		MaxRequests: uint32(cfg.CircuitBreaker.MaxRequests),
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.CircuitBreaker.MaxRequests) {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.CircuitBreaker.Threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Hook manager circuit breaker state changed")
		},
	})

	return &Manager{
		cfg:            cfg,
		logger:         logger,
		httpClient:     &http.Client{Timeout: cfg.HTTPClient.Timeout},
		circuitBreaker: circuitBreaker,
		provider:       provider,
		baseURL:        baseURL,
		repo:           repo,
	}, nil
}

// hooksURL returns the hooks collection endpoint for the repository
func (m *Manager) hooksURL() string {
	if m.provider == ProviderGitLab {
		return fmt.Sprintf("%s/projects/%s/hooks", m.baseURL, url.PathEscape(m.repo))
	}
	return fmt.Sprintf("%s/repos/%s/hooks", m.baseURL, m.repo)
}

// authorize sets the provider's authentication headers on a request
func (m *Manager) authorize(req *http.Request) {
	if m.provider == ProviderGitLab {
		req.Header.Set("PRIVATE-TOKEN", m.cfg.Manager.Token)
		return
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.Manager.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
}

// doRequest builds, authorizes and executes one API request, returning
// the response body and headers for 2xx statuses
func (m *Manager) doRequest(ctx context.Context, method, rawURL string, body []byte) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	m.authorize(req)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call %s API: %w", m.provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("unexpected status %d, body: %s", resp.StatusCode, string(respBody))
	}

	return respBody, resp.Header, nil
}

// gitlabHook mirrors the GitLab project hooks API resource
type gitlabHook struct {
	ID                  int64  `json:"id"`
	URL                 string `json:"url"`
	PushEvents          bool   `json:"push_events"`
	TagPushEvents       bool   `json:"tag_push_events"`
	IssuesEvents        bool   `json:"issues_events"`
	MergeRequestsEvents bool   `json:"merge_requests_events"`
	NoteEvents          bool   `json:"note_events"`
	PipelineEvents      bool   `json:"pipeline_events"`
}

// events lists the enabled triggers as canonical event names, in a
// fixed order
func (h gitlabHook) events() []string {
	flags := []struct {
		name    string
		enabled bool
	}{
		{"push_hook", h.PushEvents},
		{"tag_push_hook", h.TagPushEvents},
		{"issue_hook", h.IssuesEvents},
		{"merge_request_hook", h.MergeRequestsEvents},
		{"note_hook", h.NoteEvents},
		{"pipeline_hook", h.PipelineEvents},
	}

	events := make([]string, 0, len(flags))
	for _, flag := range flags {
		if flag.enabled {
			events = append(events, flag.name)
		}
	}
	return events
}

// gitlabEventFields maps canonical event names onto the boolean
// trigger fields of the GitLab hooks API. The wildcard enables every
// trigger.
func gitlabEventFields(events []string) map[string]bool {
	fields := map[string]bool{
		"push_events":           false,
		"tag_push_events":       false,
		"issues_events":         false,
		"merge_requests_events": false,
		"note_events":           false,
		"pipeline_events":       false,
	}

	for _, event := range events {
		switch NormalizeEvent(event) {
		case "push_hook", "push":
			fields["push_events"] = true
		case "tag_push_hook", "tag_push":
			fields["tag_push_events"] = true
		case "issue_hook", "issues":
			fields["issues_events"] = true
		case "merge_request_hook", "merge_request":
			fields["merge_requests_events"] = true
		case "note_hook", "note":
			fields["note_events"] = true
		case "pipeline_hook", "pipeline":
			fields["pipeline_events"] = true
		case EventWildcard:
			for key := range fields {
				fields[key] = true
			}
		}
	}
	return fields
}

// createHookBody builds the JSON request body for hook creation
func (m *Manager) createHookBody(events []string) ([]byte, error) {
	if m.provider == ProviderGitLab {
		body := map[string]interface{}{
			"url": m.cfg.Manager.HookURL,
		}
		if m.cfg.Secret != "" {
			body["token"] = m.cfg.Secret
		}
		for field, enabled := range gitlabEventFields(events) {
			body[field] = enabled
		}
		return json.Marshal(body)
	}

	normalized := make([]string, 0, len(events))
	for _, event := range events {
		normalized = append(normalized, NormalizeEvent(event))
	}

	config := map[string]interface{}{
		"url":          m.cfg.Manager.HookURL,
		"content_type": "json",
		"insecure_ssl": "0",
	}
	if m.cfg.Secret != "" {
		config["secret"] = m.cfg.Secret
	}

	body := map[string]interface{}{
		"name":   "web",
		"active": true,
		"events": normalized,
		"config": config,
	}
	return json.Marshal(body)
}

// ListHooks fetches the hooks registered on the repository
func (m *Manager) ListHooks(ctx context.Context) ([]HookInfo, error) {
	var result []HookInfo

	err := m.executeWithRetry(ctx, "list_hooks", func() error {
		_, err := m.circuitBreaker.Execute(func() (interface{}, error) {
			respBody, _, err := m.doRequest(ctx, "GET", m.hooksURL(), nil)
			if err != nil {
				return nil, fmt.Errorf("failed to list hooks: %w", err)
			}

			if m.provider == ProviderGitLab {
				var hooks []gitlabHook
				if err := json.Unmarshal(respBody, &hooks); err != nil {
					return nil, fmt.Errorf("failed to decode hooks response: %w", err)
				}

				result = make([]HookInfo, 0, len(hooks))
				for _, hook := range hooks {
					result = append(result, HookInfo{
						ID:     hook.ID,
						URL:    hook.URL,
						Events: hook.events(),
						Active: true,
					})
				}
				return nil, nil
			}

			var hooks []struct {
				ID     int64    `json:"id"`
				Active bool     `json:"active"`
				Events []string `json:"events"`
				Config struct {
					URL string `json:"url"`
				} `json:"config"`
			}
			if err := json.Unmarshal(respBody, &hooks); err != nil {
				return nil, fmt.Errorf("failed to decode hooks response: %w", err)
			}

			result = make([]HookInfo, 0, len(hooks))
			for _, hook := range hooks {
				result = append(result, HookInfo{
					ID:     hook.ID,
					URL:    hook.Config.URL,
					Events: hook.Events,
					Active: hook.Active,
				})
			}
			return nil, nil
		})
		return err
	})

	return result, err
}

// CreateHook registers a hook delivering the given events to the
// configured hook URL and returns its id
func (m *Manager) CreateHook(ctx context.Context, events []string) (int64, error) {
	if m.cfg.Manager.HookURL == "" {
		return 0, errors.New("HookURL is required to create a hook")
	}

	var hookID int64

	err := m.executeWithRetry(ctx, "create_hook", func() error {
		_, err := m.circuitBreaker.Execute(func() (interface{}, error) {
			jsonData, err := m.createHookBody(events)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal hook request: %w", err)
			}

			respBody, _, err := m.doRequest(ctx, "POST", m.hooksURL(), jsonData)
			if err != nil {
				return nil, fmt.Errorf("failed to create hook: %w", err)
			}

			var createResp struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(respBody, &createResp); err != nil {
				return nil, fmt.Errorf("failed to decode hook response: %w", err)
			}

			hookID = createResp.ID
			return nil, nil
		})
		return err
	})

	return hookID, err
}

// UpdateHookEvents replaces the set of events a hook subscribes to
func (m *Manager) UpdateHookEvents(ctx context.Context, hookID int64, events []string) error {
	return m.executeWithRetry(ctx, fmt.Sprintf("update_hook_%d", hookID), func() error {
		_, err := m.circuitBreaker.Execute(func() (interface{}, error) {
			var jsonData []byte
			var err error
			method := "PATCH"

			if m.provider == ProviderGitLab {
				// GitLab edits a hook with the full resource, not a patch.
				method = "PUT"
				jsonData, err = m.createHookBody(events)
			} else {
				normalized := make([]string, 0, len(events))
				for _, event := range events {
					normalized = append(normalized, NormalizeEvent(event))
				}
				jsonData, err = json.Marshal(map[string]interface{}{"events": normalized})
			}
			if err != nil {
				return nil, fmt.Errorf("failed to marshal update request: %w", err)
			}

			if _, _, err := m.doRequest(ctx, method, fmt.Sprintf("%s/%d", m.hooksURL(), hookID), jsonData); err != nil {
				return nil, fmt.Errorf("failed to update hook: %w", err)
			}
			return nil, nil
		})
		return err
	})
}

// DeleteHook removes a hook from the repository
func (m *Manager) DeleteHook(ctx context.Context, hookID int64) error {
	return m.executeWithRetry(ctx, fmt.Sprintf("delete_hook_%d", hookID), func() error {
		_, err := m.circuitBreaker.Execute(func() (interface{}, error) {
			if _, _, err := m.doRequest(ctx, "DELETE", fmt.Sprintf("%s/%d", m.hooksURL(), hookID), nil); err != nil {
				return nil, fmt.Errorf("failed to delete hook: %w", err)
			}
			return nil, nil
		})
		return err
	})
}

// PingHook asks the provider to send a ping delivery for the hook.
// Only GitHub exposes this operation.
func (m *Manager) PingHook(ctx context.Context, hookID int64) error {
	if m.provider != ProviderGitHub {
		return fmt.Errorf("ping is not supported for provider %s", m.provider)
	}

	return m.executeWithRetry(ctx, fmt.Sprintf("ping_hook_%d", hookID), func() error {
		_, err := m.circuitBreaker.Execute(func() (interface{}, error) {
			if _, _, err := m.doRequest(ctx, "POST", fmt.Sprintf("%s/%d/pings", m.hooksURL(), hookID), nil); err != nil {
				return nil, fmt.Errorf("failed to ping hook: %w", err)
			}
			return nil, nil
		})
		return err
	})
}

// ListDeliveries fetches recorded delivery attempts for a hook, newest
// first, following pagination until limit entries are collected. A
// limit of 0 fetches every page. Only GitHub exposes this operation.
func (m *Manager) ListDeliveries(ctx context.Context, hookID int64, limit int) ([]DeliveryInfo, error) {
	if m.provider != ProviderGitHub {
		return nil, fmt.Errorf("delivery listing is not supported for provider %s", m.provider)
	}

	var result []DeliveryInfo

	err := m.executeWithRetry(ctx, fmt.Sprintf("list_deliveries_%d", hookID), func() error {
		_, err := m.circuitBreaker.Execute(func() (interface{}, error) {
			result = make([]DeliveryInfo, 0)
			pageURL := fmt.Sprintf("%s/%d/deliveries?per_page=100", m.hooksURL(), hookID)

			for {
				respBody, header, err := m.doRequest(ctx, "GET", pageURL, nil)
				if err != nil {
					return nil, fmt.Errorf("failed to list deliveries: %w", err)
				}

				var page []struct {
					ID          int64     `json:"id"`
					GUID        string    `json:"guid"`
					Event       string    `json:"event"`
					Action      string    `json:"action"`
					Status      string    `json:"status"`
					StatusCode  int       `json:"status_code"`
					Redelivery  bool      `json:"redelivery"`
					DeliveredAt time.Time `json:"delivered_at"`
				}
				if err := json.Unmarshal(respBody, &page); err != nil {
					return nil, fmt.Errorf("failed to decode deliveries response: %w", err)
				}

				for _, delivery := range page {
					result = append(result, DeliveryInfo{
						ID:          delivery.ID,
						GUID:        delivery.GUID,
						Event:       delivery.Event,
						Action:      delivery.Action,
						Status:      delivery.Status,
						StatusCode:  delivery.StatusCode,
						Redelivery:  delivery.Redelivery,
						DeliveredAt: delivery.DeliveredAt,
					})
					if limit > 0 && len(result) >= limit {
						return nil, nil
					}
				}

				pageURL = nextPageURL(header.Get("Link"))
				if pageURL == "" || len(page) == 0 {
					break
				}
			}

			return nil, nil
		})
		return err
	})

	return result, err
}

// Redeliver asks the provider to send a recorded delivery again. Only
// GitHub exposes this operation.
func (m *Manager) Redeliver(ctx context.Context, hookID, deliveryID int64) error {
	if m.provider != ProviderGitHub {
		return fmt.Errorf("redelivery is not supported for provider %s", m.provider)
	}

	return m.executeWithRetry(ctx, fmt.Sprintf("redeliver_%d_%d", hookID, deliveryID), func() error {
		_, err := m.circuitBreaker.Execute(func() (interface{}, error) {
			if _, _, err := m.doRequest(ctx, "POST", fmt.Sprintf("%s/%d/deliveries/%d/attempts", m.hooksURL(), hookID, deliveryID), nil); err != nil {
				return nil, fmt.Errorf("failed to redeliver: %w", err)
			}
			return nil, nil
		})
		return err
	})
}

// nextPageURL extracts the rel="next" target from a Link header, or
// returns an empty string when there is no further page
func nextPageURL(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) != `rel="next"` {
			continue
		}
		return strings.Trim(strings.TrimSpace(section[0]), "<>")
	}
	return ""
}

func (m *Manager) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	maxAttempts := m.cfg.Retry.MaxAttempts
	delay := m.cfg.Retry.InitialDelay

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < maxAttempts-1 {
			m.logger.Warn().
				Err(lastErr).
				Str("operation", operation).
				Int("attempt", attempt+1).
				Int("max_attempts", maxAttempts).
				Dur("retry_delay", delay).
				Msg("Operation failed, retrying")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * m.cfg.Retry.Multiplier)
			if delay > m.cfg.Retry.MaxDelay {
				delay = m.cfg.Retry.MaxDelay
			}
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operation, maxAttempts, lastErr)
}
