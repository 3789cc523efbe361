package github

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dawitel/forgehook"
	"github.com/rs/zerolog"
)

// Event names sent by GitHub
const (
	EventPush        = "push"
	EventPing        = "ping"
	EventIssues      = "issues"
	EventPullRequest = "pull_request"
)

// PushHandler is a callback for push events
type PushHandler func(ctx context.Context, event PushEvent) error

// PingHandler is a callback for ping events
type PingHandler func(ctx context.Context, event PingEvent) error

// IssuesHandler is a callback for issues events
type IssuesHandler func(ctx context.Context, event IssuesEvent) error

// PullRequestHandler is a callback for pull request events
type PullRequestHandler func(ctx context.Context, event PullRequestEvent) error

// Processor decodes GitHub deliveries into typed events and routes
// them to registered callbacks. It implements the listener's Handler
// interface, so one processor can be registered for each of its
// Events.
type Processor struct {
	logger      zerolog.Logger
	push        PushHandler
	ping        PingHandler
	issues      IssuesHandler
	pullRequest PullRequestHandler
}

// NewProcessor creates a new GitHub processor
func NewProcessor(logger zerolog.Logger) *Processor {
	return &Processor{logger: logger}
}

// OnPush registers the push callback
func (p *Processor) OnPush(handler PushHandler) *Processor {
	p.push = handler
	return p
}

// OnPing registers the ping callback
func (p *Processor) OnPing(handler PingHandler) *Processor {
	p.ping = handler
	return p
}

// OnIssues registers the issues callback
func (p *Processor) OnIssues(handler IssuesHandler) *Processor {
	p.issues = handler
	return p
}

// OnPullRequest registers the pull request callback
func (p *Processor) OnPullRequest(handler PullRequestHandler) *Processor {
	p.pullRequest = handler
	return p
}

// Events returns the event names with registered callbacks
func (p *Processor) Events() []string {
	events := make([]string, 0, 4)
	if p.push != nil {
		events = append(events, EventPush)
	}
	if p.ping != nil {
		events = append(events, EventPing)
	}
	if p.issues != nil {
		events = append(events, EventIssues)
	}
	if p.pullRequest != nil {
		events = append(events, EventPullRequest)
	}
	return events
}

// Handle decodes the delivery's payload document and invokes the
// callback registered for its event. Events without a callback are
// ignored.
func (p *Processor) Handle(ctx context.Context, delivery *forgehook.Delivery) error {
	switch delivery.Event {
	case EventPush:
		if p.push == nil {
			return nil
		}
		var event PushEvent
		if err := json.Unmarshal(delivery.PayloadDocument(), &event); err != nil {
			return fmt.Errorf("failed to parse push event: %w", err)
		}
		p.logger.Debug().
			Str("ref", event.Ref).
			Str("repo", event.Repository.FullName).
			Int("commits", len(event.Commits)).
			Msg("Processing push event")
		return p.push(ctx, event)

	case EventPing:
		if p.ping == nil {
			return nil
		}
		var event PingEvent
		if err := json.Unmarshal(delivery.PayloadDocument(), &event); err != nil {
			return fmt.Errorf("failed to parse ping event: %w", err)
		}
		p.logger.Debug().
			Int64("hook_id", event.HookID).
			Msg("Processing ping event")
		return p.ping(ctx, event)

	case EventIssues:
		if p.issues == nil {
			return nil
		}
		var event IssuesEvent
		if err := json.Unmarshal(delivery.PayloadDocument(), &event); err != nil {
			return fmt.Errorf("failed to parse issues event: %w", err)
		}
		p.logger.Debug().
			Str("action", event.Action).
			Int("number", event.Issue.Number).
			Msg("Processing issues event")
		return p.issues(ctx, event)

	case EventPullRequest:
		if p.pullRequest == nil {
			return nil
		}
		var event PullRequestEvent
		if err := json.Unmarshal(delivery.PayloadDocument(), &event); err != nil {
			return fmt.Errorf("failed to parse pull request event: %w", err)
		}
		p.logger.Debug().
			Str("action", event.Action).
			Int("number", event.Number).
			Msg("Processing pull request event")
		return p.pullRequest(ctx, event)

	default:
		p.logger.Debug().
			Str("event", delivery.Event).
			Msg("No typed decoder for event")
		return nil
	}
}
