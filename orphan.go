package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// OrphanHandler reconciles an identity that exists at the provider but
// has no application user record. Remediation is a policy choice, so the
// Registrar only guarantees it is called once per orphan.
type OrphanHandler interface {
	HandleOrphan(ctx context.Context, identity *Identity, cause error) error
}

// OrphanHandlerFunc adapts a function to OrphanHandler.
type OrphanHandlerFunc func(ctx context.Context, identity *Identity, cause error) error

// HandleOrphan implements OrphanHandler.
func (f OrphanHandlerFunc) HandleOrphan(ctx context.Context, identity *Identity, cause error) error {
	if f == nil {
		return nil
	}
	return f(ctx, identity, cause)
}

// ErrOrphanReconciled is returned by a handler that repaired the orphan,
// so the identity now has its user record. It is not a failure:
// ChainOrphanHandlers stops at it and Registrar counts the orphan as handled.
var ErrOrphanReconciled = errors.New("lobby: orphan reconciled")

// IdentityDeleter removes identities from the provider.
type IdentityDeleter interface {
	DeleteIdentity(ctx context.Context, uid string) error
}

// OrphanEntry is a ledger row for an identity waiting on cleanup.
type OrphanEntry struct {
	UID        string
	Email      string
	Provider   ProviderKind
	Cause      string
	IsNew      bool
	MarkedAt   time.Time
	ResolvedAt *time.Time
}

// OrphanLedger persists orphaned identities for later reconciliation.
type OrphanLedger interface {
	Mark(ctx context.Context, entry OrphanEntry) error
	Pending(ctx context.Context, limit int) ([]OrphanEntry, error)
	Resolve(ctx context.Context, uid string) error
}

// DeleteOrphanedIdentity removes the provider identity, but only when it
// was created by the failed attempt. Existing accounts that signed in
// through a popup are left alone.
func DeleteOrphanedIdentity(deleter IdentityDeleter) OrphanHandler {
	return OrphanHandlerFunc(func(ctx context.Context, identity *Identity, cause error) error {
		if deleter == nil {
			return ErrProviderNotConfigured
		}
		if identity == nil || identity.UID == "" || !identity.IsNew {
			return nil
		}
		return deleter.DeleteIdentity(ctx, identity.UID)
	})
}

// RetryOptions tunes RetryRecordCreation.
type RetryOptions struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryOptions retries three times starting at 200ms.
var DefaultRetryOptions = RetryOptions{
	MaxRetries:      3,
	InitialInterval: 200 * time.Millisecond,
	MaxElapsedTime:  5 * time.Second,
}

// RetryRecordCreation retries the backend call with exponential backoff and
// returns ErrOrphanReconciled once a record was created. The attempt is still
// reported as failed to the user; a successful retry only means the next
// sign in finds a record.
func RetryRecordCreation(creator RecordCreator, opts RetryOptions) OrphanHandler {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultRetryOptions.MaxRetries
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultRetryOptions.InitialInterval
	}

	return OrphanHandlerFunc(func(ctx context.Context, identity *Identity, cause error) error {
		if creator == nil {
			return ErrProviderNotConfigured
		}
		if identity == nil {
			return nil
		}

		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = opts.InitialInterval
		eb.MaxElapsedTime = opts.MaxElapsedTime

		policy := backoff.WithContext(backoff.WithMaxRetries(eb, opts.MaxRetries), ctx)

		err := backoff.Retry(func() error {
			return creator.CreateUserRecord(ctx, identity, identity.IsNew)
		}, policy)
		if err != nil {
			return err
		}
		return ErrOrphanReconciled
	})
}

// MarkOrphanForCleanup writes the identity to a ledger, see ReapOrphans.
func MarkOrphanForCleanup(ledger OrphanLedger, now func() time.Time) OrphanHandler {
	if now == nil {
		now = time.Now
	}
	return OrphanHandlerFunc(func(ctx context.Context, identity *Identity, cause error) error {
		if ledger == nil {
			return ErrProviderNotConfigured
		}
		if identity == nil {
			return nil
		}
		entry := OrphanEntry{
			UID:      identity.UID,
			Email:    identity.Email,
			Provider: identity.Provider,
			IsNew:    identity.IsNew,
			MarkedAt: now().UTC(),
		}
		if cause != nil {
			entry.Cause = cause.Error()
		}
		return ledger.Mark(ctx, entry)
	})
}

// LogOrphan only records the inconsistency.
func LogOrphan(logger Logger) OrphanHandler {
	logger = normalizeLogger(logger)
	return OrphanHandlerFunc(func(ctx context.Context, identity *Identity, cause error) error {
		logger.Error("orphaned identity", "identity", identity.String(), "error", cause)
		return nil
	})
}

// ChainOrphanHandlers runs the handlers in order, continuing past failures
// and joining their errors. The chain stops at the first handler that
// returns ErrOrphanReconciled, and returns it joined with earlier failures,
// so later policies never delete or mark an identity that has its record.
func ChainOrphanHandlers(handlers ...OrphanHandler) OrphanHandler {
	return OrphanHandlerFunc(func(ctx context.Context, identity *Identity, cause error) error {
		var errs []error
		for _, h := range handlers {
			if h == nil {
				continue
			}
			err := h.HandleOrphan(ctx, identity, cause)
			if errors.Is(err, ErrOrphanReconciled) {
				return errors.Join(append(errs, ErrOrphanReconciled)...)
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// OrphanReconciled reports whether a handler result means the identity got
// its user record.
func OrphanReconciled(err error) bool {
	return errors.Is(err, ErrOrphanReconciled)
}

// ReapResult summarizes a ReapOrphans pass.
type ReapResult struct {
	Reaped  []OrphanEntry
	Deleted int
	Skipped int
	Failed  []string
}

// ReapOrphans deletes pending ledger identities from the provider and
// resolves their entries. Entries for identities that existed before the
// failed attempt are resolved without deleting the account.
func ReapOrphans(ctx context.Context, ledger OrphanLedger, deleter IdentityDeleter, limit int, logger Logger) (ReapResult, error) {
	var result ReapResult
	if ledger == nil || deleter == nil {
		return result, ErrProviderNotConfigured
	}
	logger = normalizeLogger(logger)

	entries, err := ledger.Pending(ctx, limit)
	if err != nil {
		return result, err
	}

	for _, entry := range entries {
		if entry.IsNew {
			if err := deleter.DeleteIdentity(ctx, entry.UID); err != nil {
				logger.Warn("reap orphan failed", "uid", entry.UID, "error", err)
				result.Failed = append(result.Failed, entry.UID)
				continue
			}
			result.Deleted++
			result.Reaped = append(result.Reaped, entry)
		} else {
			result.Skipped++
		}

		if err := ledger.Resolve(ctx, entry.UID); err != nil {
			logger.Warn("resolve orphan failed", "uid", entry.UID, "error", err)
			result.Failed = append(result.Failed, entry.UID)
		}
	}

	return result, nil
}

// ReapedEvents builds one ActivityEventOrphanReaped per deleted identity.
func ReapedEvents(result ReapResult, at time.Time) []ActivityEvent {
	events := make([]ActivityEvent, 0, len(result.Reaped))
	for _, entry := range result.Reaped {
		events = append(events, ActivityEvent{
			EventType:  ActivityEventOrphanReaped,
			Provider:   entry.Provider,
			UserID:     entry.UID,
			Email:      entry.Email,
			OccurredAt: at.UTC(),
			Metadata: map[string]any{
				"cause":     entry.Cause,
				"marked_at": entry.MarkedAt,
			},
		})
	}
	return events
}
