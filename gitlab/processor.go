package gitlab

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dawitel/forgehook"
	"github.com/rs/zerolog"
)

// Canonical event names for GitLab hooks. GitLab sends them
// space-separated and mixed-case ("Push Hook"); the listener
// normalizes them to these spellings before matching.
const (
	EventPushHook         = "push_hook"
	EventTagPushHook      = "tag_push_hook"
	EventIssueHook        = "issue_hook"
	EventMergeRequestHook = "merge_request_hook"
)

// PushHandler is a callback for push events
type PushHandler func(ctx context.Context, event PushEvent) error

// TagPushHandler is a callback for tag push events
type TagPushHandler func(ctx context.Context, event TagPushEvent) error

// IssueHandler is a callback for issue events
type IssueHandler func(ctx context.Context, event IssueEvent) error

// MergeRequestHandler is a callback for merge request events
type MergeRequestHandler func(ctx context.Context, event MergeRequestEvent) error

// Processor decodes GitLab deliveries into typed events and routes
// them to registered callbacks. It implements the listener's Handler
// interface, so one processor can be registered for each of its
// Events.
type Processor struct {
	logger       zerolog.Logger
	push         PushHandler
	tagPush      TagPushHandler
	issue        IssueHandler
	mergeRequest MergeRequestHandler
}

// NewProcessor creates a new GitLab processor
func NewProcessor(logger zerolog.Logger) *Processor {
	return &Processor{logger: logger}
}

// OnPush registers the push callback
func (p *Processor) OnPush(handler PushHandler) *Processor {
	p.push = handler
	return p
}

// OnTagPush registers the tag push callback
func (p *Processor) OnTagPush(handler TagPushHandler) *Processor {
	p.tagPush = handler
	return p
}

// OnIssue registers the issue callback
func (p *Processor) OnIssue(handler IssueHandler) *Processor {
	p.issue = handler
	return p
}

// OnMergeRequest registers the merge request callback
func (p *Processor) OnMergeRequest(handler MergeRequestHandler) *Processor {
	p.mergeRequest = handler
	return p
}

// Events returns the event names with registered callbacks
func (p *Processor) Events() []string {
	events := make([]string, 0, 4)
	if p.push != nil {
		events = append(events, EventPushHook)
	}
	if p.tagPush != nil {
		events = append(events, EventTagPushHook)
	}
	if p.issue != nil {
		events = append(events, EventIssueHook)
	}
	if p.mergeRequest != nil {
		events = append(events, EventMergeRequestHook)
	}
	return events
}

// Handle decodes the delivery's payload document and invokes the
// callback registered for its event. Events without a callback are
// ignored.
func (p *Processor) Handle(ctx context.Context, delivery *forgehook.Delivery) error {
	switch delivery.Event {
	case EventPushHook:
		if p.push == nil {
			return nil
		}
		var event PushEvent
		if err := json.Unmarshal(delivery.PayloadDocument(), &event); err != nil {
			return fmt.Errorf("failed to parse push event: %w", err)
		}
		p.logger.Debug().
			Str("ref", event.Ref).
			Str("project", event.Project.PathWithNamespace).
			Int("commits", len(event.Commits)).
			Msg("Processing push event")
		return p.push(ctx, event)

	case EventTagPushHook:
		if p.tagPush == nil {
			return nil
		}
		var event TagPushEvent
		if err := json.Unmarshal(delivery.PayloadDocument(), &event); err != nil {
			return fmt.Errorf("failed to parse tag push event: %w", err)
		}
		p.logger.Debug().
			Str("ref", event.Ref).
			Str("project", event.Project.PathWithNamespace).
			Msg("Processing tag push event")
		return p.tagPush(ctx, event)

	case EventIssueHook:
		if p.issue == nil {
			return nil
		}
		var event IssueEvent
		if err := json.Unmarshal(delivery.PayloadDocument(), &event); err != nil {
			return fmt.Errorf("failed to parse issue event: %w", err)
		}
		p.logger.Debug().
			Str("action", event.ObjectAttributes.Action).
			Int64("iid", event.ObjectAttributes.IID).
			Msg("Processing issue event")
		return p.issue(ctx, event)

	case EventMergeRequestHook:
		if p.mergeRequest == nil {
			return nil
		}
		var event MergeRequestEvent
		if err := json.Unmarshal(delivery.PayloadDocument(), &event); err != nil {
			return fmt.Errorf("failed to parse merge request event: %w", err)
		}
		p.logger.Debug().
			Str("action", event.ObjectAttributes.Action).
			Int64("iid", event.ObjectAttributes.IID).
			Msg("Processing merge request event")
		return p.mergeRequest(ctx, event)

	default:
		p.logger.Debug().
			Str("event", delivery.Event).
			Msg("No typed decoder for event")
		return nil
	}
}
