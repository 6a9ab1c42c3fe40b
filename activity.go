package lobby

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistrationSuccess ActivityEventType = "lobby.registration.success"
	ActivityEventRegistrationFailure ActivityEventType = "lobby.registration.failure"
	ActivityEventIdentityOrphaned    ActivityEventType = "lobby.identity.orphaned"
	ActivityEventOrphanReaped        ActivityEventType = "lobby.identity.reaped"
	ActivityEventSignOut             ActivityEventType = "lobby.session.signout"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Flow       Flow
	Provider   ProviderKind
	UserID     string
	Email      string
	Outcome    Outcome
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
