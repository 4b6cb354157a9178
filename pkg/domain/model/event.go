package model

import "time"

// EventType represents the type of webhook event received
type EventType string

const (
	EventTypePush        EventType = "push"
	EventTypePullRequest EventType = "pull_request"
	EventTypeUnknown     EventType = "unknown"
)

// Repository identifies the repository a webhook event refers to
type Repository struct {
	Owner    string
	Name     string
	CloneURL string
}

// FullName returns the "owner/name" form used in logs and notifications
func (r Repository) FullName() string {
	if r.Owner == "" {
		return r.Name
	}
	return r.Owner + "/" + r.Name
}

// EventContext is the trigger-relevant projection of a webhook delivery.
// It carries everything the pipeline needs as explicit inputs; nothing is
// read from ambient state during trigger evaluation.
type EventContext struct {
	DeliveryID string    // Retrieved from X-GitHub-Delivery header
	Type       EventType // push or pull_request
	Branch     string    // Branch the event refers to (head branch for PRs)
	CommitSHA  string    // Commit to build
	Repo       Repository
	Sender     string    // User who triggered the event
	ReceivedAt time.Time
}

// IsSupportedEvent checks if the event type can ever start a run
func (e *EventContext) IsSupportedEvent() bool {
	switch e.Type {
	case EventTypePush, EventTypePullRequest:
		return true
	default:
		return false
	}
}
