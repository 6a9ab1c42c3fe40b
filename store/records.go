package store

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-lobby"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewUserRecordsRepository builds the repository for UserRecord, looked up
// by identity uid.
func NewUserRecordsRepository(db *bun.DB) repository.Repository[*UserRecord] {
	handlers := repository.ModelHandlers[*UserRecord]{
		NewRecord: func() *UserRecord {
			return &UserRecord{}
		},
		GetID: func(record *UserRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *UserRecord, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "uid"
		},
	}
	return repository.NewRepository(db, handlers)
}

// Records implements lobby.RecordCreator on a local database.
type Records struct {
	db   *bun.DB
	repo repository.Repository[*UserRecord]
	now  func() time.Time
}

var _ lobby.RecordCreator = (*Records)(nil)

// NewRecords creates a record store.
func NewRecords(db *bun.DB) *Records {
	return &Records{
		db:   db,
		repo: NewUserRecordsRepository(db),
		now:  time.Now,
	}
}

// WithClock overrides the time source.
func (r *Records) WithClock(now func() time.Time) *Records {
	if now != nil {
		r.now = now
	}
	return r
}

// RecordID derives the record ID from the identity uid.
func RecordID(uid string) (uuid.UUID, error) {
	return hashid.NewUUID(uid)
}

// CreateUserRecord implements lobby.RecordCreator. Registrations insert a
// new row; a record that already exists is treated as a login and only
// stamps last_login_at.
func (r *Records) CreateUserRecord(ctx context.Context, identity *lobby.Identity, isNewRegistration bool) error {
	if identity == nil || strings.TrimSpace(identity.UID) == "" {
		return goerrors.New("identity uid is required", goerrors.CategoryBadInput).
			WithTextCode("RECORD_UID_REQUIRED").
			WithCode(goerrors.CodeBadRequest)
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := r.now().UTC()

		existing, err := r.repo.GetByIdentifierTx(ctx, tx, identity.UID)
		if err == nil {
			existing.LastLoginAt = &now
			existing.UpdatedAt = now
			if identity.DisplayName != "" {
				existing.DisplayName = identity.DisplayName
			}
			existing.EmailVerified = existing.EmailVerified || identity.EmailVerified
			_, err = r.repo.UpdateTx(ctx, tx, existing, repository.UpdateByID(existing.ID.String()))
			return err
		}
		if !repository.IsRecordNotFound(err) {
			return err
		}

		id, err := RecordID(identity.UID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive record id")
		}

		record := &UserRecord{
			ID:            id,
			UID:           identity.UID,
			Email:         strings.ToLower(identity.Email),
			Provider:      string(identity.Provider),
			DisplayName:   identity.DisplayName,
			EmailVerified: identity.EmailVerified,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if isNewRegistration {
			record.RegisteredAt = &now
		} else {
			record.LastLoginAt = &now
		}

		if _, err := r.repo.CreateTx(ctx, tx, record); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user record")
		}
		return nil
	})
}

// Get returns the record for uid.
func (r *Records) Get(ctx context.Context, uid string) (*UserRecord, error) {
	return r.repo.GetByIdentifier(ctx, uid)
}
