package lobby

import (
	"sync"
	"time"

	"github.com/goliatone/go-lobby/forms"
)

// AttemptState is the lifecycle position of a single registration attempt.
type AttemptState string

const (
	AttemptIdle                  AttemptState = "idle"
	AttemptValidating            AttemptState = "validating"
	AttemptAwaitingProvider      AttemptState = "awaiting_provider"
	AttemptAwaitingBackendRecord AttemptState = "awaiting_backend_record"
	AttemptSucceeded             AttemptState = "succeeded"
	AttemptFailed                AttemptState = "failed"
)

// Outcome classifies how an attempt ended.
type Outcome string

const (
	OutcomePending         Outcome = ""
	OutcomeSuccess         Outcome = "success"
	OutcomeValidationError Outcome = "validation_error"
	OutcomeProviderError   Outcome = "provider_error"
	OutcomeBackendError    Outcome = "backend_error"
	OutcomeUnexpected      Outcome = "unexpected"
)

// Flow names the registration entry point.
type Flow string

const (
	FlowEmail  Flow = "email"
	FlowSocial Flow = "social"
)

var attemptTransitions = map[AttemptState]map[AttemptState]struct{}{
	AttemptIdle: {
		AttemptValidating: {},
	},
	AttemptValidating: {
		AttemptAwaitingProvider: {},
		AttemptFailed:           {},
	},
	AttemptAwaitingProvider: {
		AttemptAwaitingBackendRecord: {},
		AttemptFailed:                {},
	},
	AttemptAwaitingBackendRecord: {
		AttemptSucceeded: {},
		AttemptFailed:    {},
	},
}

// CanTransition reports whether from -> to is a legal attempt transition.
func CanTransition(from, to AttemptState) bool {
	next, ok := attemptTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Attempt is one pass through the registration flow. A new user action
// creates a new Attempt; finished attempts are never re-entered.
type Attempt struct {
	mu sync.RWMutex

	flow     Flow
	provider ProviderKind
	state    AttemptState
	history  []AttemptState
	loading  bool
	outcome  Outcome
	message  string
	field    *forms.FieldError
	identity *Identity
	err      error

	startedAt  time.Time
	finishedAt time.Time
}

func newAttempt(flow Flow, provider ProviderKind, now time.Time) *Attempt {
	return &Attempt{
		flow:      flow,
		provider:  provider,
		state:     AttemptIdle,
		history:   []AttemptState{AttemptIdle},
		startedAt: now,
	}
}

func (a *Attempt) transition(to AttemptState) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !CanTransition(a.state, to) {
		return ErrInvalidAttemptTransition.Clone().WithMetadata(map[string]any{
			"from": a.state,
			"to":   to,
		})
	}
	a.state = to
	a.history = append(a.history, to)
	return nil
}

func (a *Attempt) setLoading(v bool) {
	a.mu.Lock()
	a.loading = v
	a.mu.Unlock()
}

func (a *Attempt) fail(outcome Outcome, message string, field *forms.FieldError, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == AttemptSucceeded || a.state == AttemptFailed {
		return
	}
	a.state = AttemptFailed
	a.history = append(a.history, AttemptFailed)
	a.outcome = outcome
	a.message = message
	a.field = field
	a.err = err
}

func (a *Attempt) succeed(identity *Identity) error {
	if err := a.transition(AttemptSucceeded); err != nil {
		return err
	}
	a.mu.Lock()
	a.outcome = OutcomeSuccess
	a.identity = identity
	a.mu.Unlock()
	return nil
}

func (a *Attempt) finish(now time.Time) {
	a.mu.Lock()
	a.finishedAt = now
	a.mu.Unlock()
}

// Flow returns the entry point used by the attempt.
func (a *Attempt) Flow() Flow {
	return a.flow
}

// Provider returns the identity provider kind used by the attempt.
func (a *Attempt) Provider() ProviderKind {
	return a.provider
}

// State returns the current lifecycle state.
func (a *Attempt) State() AttemptState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// History returns every state the attempt went through, in order.
func (a *Attempt) History() []AttemptState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AttemptState, len(a.history))
	copy(out, a.history)
	return out
}

// Loading reports whether an external call is in flight.
func (a *Attempt) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Outcome returns how the attempt ended.
func (a *Attempt) Outcome() Outcome {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.outcome
}

// Succeeded reports a fully successful registration.
func (a *Attempt) Succeeded() bool {
	return a.Outcome() == OutcomeSuccess
}

// Message returns the flow scoped message shown below the form. Validation
// failures report through FieldError instead.
func (a *Attempt) Message() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.message
}

// FieldError returns the field scoped validation error, if any.
func (a *Attempt) FieldError() *forms.FieldError {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.field
}

// Identity returns the identity established by a successful attempt.
func (a *Attempt) Identity() *Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity
}

// Err returns the underlying rich error for failed attempts.
func (a *Attempt) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// Duration returns how long the attempt ran.
func (a *Attempt) Duration() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.finishedAt.IsZero() {
		return 0
	}
	return a.finishedAt.Sub(a.startedAt)
}
