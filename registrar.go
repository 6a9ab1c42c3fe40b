package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-lobby/forms"
)

// Registrar drives registration attempts: it validates the modal input,
// asks the identity provider for an identity, creates the application
// user record and classifies failures into user facing messages.
type Registrar struct {
	provider  IdentityProvider
	records   RecordCreator
	orphans   OrphanHandler
	logger    Logger
	activity  ActivitySink
	metrics   *RegistrationMetrics
	onLoading func(attempt *Attempt, loading bool)
	now       func() time.Time
}

// RegistrarOption customizes a Registrar.
type RegistrarOption func(*Registrar)

// WithRegistrarLogger sets the logger.
func WithRegistrarLogger(logger Logger) RegistrarOption {
	return func(r *Registrar) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistrarActivitySink publishes registration events to sink.
func WithRegistrarActivitySink(sink ActivitySink) RegistrarOption {
	return func(r *Registrar) {
		r.activity = normalizeActivitySink(sink)
	}
}

// WithRegistrarMetrics instruments attempts.
func WithRegistrarMetrics(m *RegistrationMetrics) RegistrarOption {
	return func(r *Registrar) {
		r.metrics = m
	}
}

// WithLoadingObserver is called every time an attempt's loading flag flips.
func WithLoadingObserver(fn func(attempt *Attempt, loading bool)) RegistrarOption {
	return func(r *Registrar) {
		r.onLoading = fn
	}
}

// WithRegistrarClock injects a custom clock (useful for tests).
func WithRegistrarClock(now func() time.Time) RegistrarOption {
	return func(r *Registrar) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistrar builds a Registrar. A nil orphan handler only logs orphans.
func NewRegistrar(provider IdentityProvider, records RecordCreator, orphans OrphanHandler, opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		provider: provider,
		records:  records,
		orphans:  orphans,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.orphans == nil {
		r.orphans = LogOrphan(r.logger)
	}

	return r
}

// RegisterWithEmail registers a new email/password identity.
func (r *Registrar) RegisterWithEmail(ctx context.Context, email, password string, termsAgreed bool) *Attempt {
	reg := forms.Registration{
		Email:      email,
		Password:   password,
		AgreeTerms: termsAgreed,
	}.Normalized()

	return r.run(ctx, FlowEmail, ProviderPassword, reg, func(ctx context.Context) (*Identity, error) {
		return r.provider.CreateIdentityWithEmailPassword(ctx, reg.Email, reg.Password)
	})
}

// RegisterWithSocialProvider completes a popup sign in and registers the
// resulting identity. Only the terms agreement is required.
func (r *Registrar) RegisterWithSocialProvider(ctx context.Context, kind ProviderKind, grant PopupGrant, termsAgreed bool) *Attempt {
	reg := forms.Registration{AgreeTerms: termsAgreed}

	return r.run(ctx, FlowSocial, kind, reg, func(ctx context.Context) (*Identity, error) {
		return r.provider.SignInWithPopup(ctx, kind, grant)
	})
}

// CheckSocialTerms runs the social precondition alone, before a popup is
// opened.
func (r *Registrar) CheckSocialTerms(termsAgreed bool) *forms.FieldError {
	return forms.Registration{AgreeTerms: termsAgreed}.Check(false)
}

type signInFunc func(ctx context.Context) (*Identity, error)

func (r *Registrar) run(ctx context.Context, flow Flow, kind ProviderKind, reg forms.Registration, signIn signInFunc) (attempt *Attempt) {
	if ctx == nil {
		ctx = context.Background()
	}

	attempt = newAttempt(flow, kind, r.now())

	defer func() {
		attempt.finish(r.now())
		r.metrics.observe(attempt)
		r.recordActivity(ctx, attempt)
	}()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("registration panicked", "flow", flow, "provider", kind, "panic", rec)
			attempt.fail(OutcomeUnexpected, UnexpectedErrorMessage(rec), nil,
				wrapAttemptError(ErrUnexpectedFailure, fmt.Errorf("%v", rec), nil))
		}
	}()

	if !r.step(attempt, AttemptValidating) {
		return attempt
	}

	if fe := reg.Check(flow == FlowEmail); fe != nil {
		attempt.fail(OutcomeValidationError, "", fe, wrapAttemptError(ErrRegistrationInvalid, fe, map[string]any{
			"field": fe.Field,
		}))
		return attempt
	}

	if r.provider == nil || r.records == nil {
		attempt.fail(OutcomeUnexpected, UnexpectedErrorMessage(ErrProviderNotConfigured.Message), nil, ErrProviderNotConfigured)
		return attempt
	}

	if !r.step(attempt, AttemptAwaitingProvider) {
		return attempt
	}

	r.setLoading(attempt, true)
	defer r.setLoading(attempt, false)

	identity, err := signIn(ctx)
	if err == nil && identity == nil {
		err = NewProviderError(kind, CodeUnknown, errors.New("identity provider returned no identity"))
	}
	if err != nil {
		r.logger.Warn("identity provider rejected registration", "flow", flow, "provider", kind, "error", err)
		attempt.fail(OutcomeProviderError, ProviderErrorMessage(flow, err), nil,
			wrapAttemptError(ErrIdentityProviderFailed, err, map[string]any{
				"provider": kind,
				"code":     ClassifyProviderError(err),
			}))
		return attempt
	}

	if identity.Provider == "" {
		identity.Provider = kind
	}

	if !r.step(attempt, AttemptAwaitingBackendRecord) {
		return attempt
	}

	if err := r.createRecord(ctx, identity); err != nil {
		r.handleOrphan(ctx, identity, err)
		attempt.fail(OutcomeBackendError, MsgRecordCreationFailed, nil,
			wrapAttemptError(ErrRecordCreationFailed, err, map[string]any{
				"uid":      identity.UID,
				"provider": identity.Provider,
			}))
		return attempt
	}

	if err := attempt.succeed(identity); err != nil {
		attempt.fail(OutcomeUnexpected, UnexpectedErrorMessage(err), nil, err)
		return attempt
	}

	r.logger.Info("registration succeeded", "flow", flow, "identity", identity.String())
	return attempt
}

// createRecord converts a panicking RecordCreator into a backend error so
// the identity still reaches the orphan handler.
func (r *Registrar) createRecord(ctx context.Context, identity *Identity) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("user record creation panicked", "identity", identity.String(), "panic", rec)
			err = fmt.Errorf("record creator panicked: %v", rec)
		}
	}()
	return r.records.CreateUserRecord(ctx, identity, true)
}

func (r *Registrar) step(attempt *Attempt, to AttemptState) bool {
	if err := attempt.transition(to); err != nil {
		r.logger.Error("registration state error", "error", err)
		attempt.fail(OutcomeUnexpected, UnexpectedErrorMessage(err), nil, err)
		return false
	}
	return true
}

func (r *Registrar) setLoading(attempt *Attempt, loading bool) {
	attempt.setLoading(loading)
	r.metrics.loading(attempt.Flow(), loading)
	if r.onLoading != nil {
		r.onLoading(attempt, loading)
	}
}

func (r *Registrar) handleOrphan(ctx context.Context, identity *Identity, cause error) {
	r.logger.Error("user record creation failed after identity was created",
		"identity", identity.String(),
		"error", cause,
	)

	err := r.orphans.HandleOrphan(ctx, identity, cause)
	reconciled := OrphanReconciled(err)
	if reconciled {
		r.logger.Info("orphaned identity reconciled", "identity", identity.String())
		err = nil
	}
	if err != nil {
		r.logger.Error("orphan compensation failed",
			"identity", identity.String(),
			"error", wrapAttemptError(ErrOrphanCompensationFailed, err, nil),
		)
	}
	r.metrics.orphan(identity.Provider, err == nil)

	r.emit(ctx, ActivityEvent{
		EventType: ActivityEventIdentityOrphaned,
		Provider:  identity.Provider,
		UserID:    identity.UID,
		Email:     identity.Email,
		Outcome:   OutcomeBackendError,
		Metadata: map[string]any{
			"cause":      cause.Error(),
			"handled":    err == nil,
			"reconciled": reconciled,
		},
	})
}

func (r *Registrar) recordActivity(ctx context.Context, attempt *Attempt) {
	event := ActivityEvent{
		EventType: ActivityEventRegistrationFailure,
		Flow:      attempt.Flow(),
		Provider:  attempt.Provider(),
		Outcome:   attempt.Outcome(),
		Metadata: map[string]any{
			"history": attempt.History(),
		},
	}
	if attempt.Succeeded() {
		event.EventType = ActivityEventRegistrationSuccess
	}
	if id := attempt.Identity(); id != nil {
		event.UserID = id.UID
		event.Email = id.Email
	}
	if code := TextCode(attempt.Err()); code != "" {
		event.Metadata["error_code"] = code
	}
	if fe := attempt.FieldError(); fe != nil {
		event.Metadata["field"] = fe.Field
	}
	r.emit(ctx, event)
}

func (r *Registrar) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now().UTC()
	}
	if err := r.activity.Record(ctx, event); err != nil {
		r.logger.Warn("activity sink error", "event", event.EventType, "error", err)
	}
}
