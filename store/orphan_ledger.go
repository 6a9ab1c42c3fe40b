package store

import (
	"context"
	"time"

	"github.com/goliatone/go-lobby"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewOrphanRecordsRepository builds the repository for OrphanRecord.
func NewOrphanRecordsRepository(db *bun.DB) repository.Repository[*OrphanRecord] {
	handlers := repository.ModelHandlers[*OrphanRecord]{
		NewRecord: func() *OrphanRecord {
			return &OrphanRecord{}
		},
		GetID: func(record *OrphanRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *OrphanRecord, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "uid"
		},
	}
	return repository.NewRepository(db, handlers)
}

// OrphanLedger implements lobby.OrphanLedger on a local database.
type OrphanLedger struct {
	db   *bun.DB
	repo repository.Repository[*OrphanRecord]
	now  func() time.Time
}

var _ lobby.OrphanLedger = (*OrphanLedger)(nil)

// NewOrphanLedger creates a database backed ledger.
func NewOrphanLedger(db *bun.DB) *OrphanLedger {
	return &OrphanLedger{
		db:   db,
		repo: NewOrphanRecordsRepository(db),
		now:  time.Now,
	}
}

// Mark records entry. Marking a uid twice refreshes the cause and reopens
// a resolved row.
func (l *OrphanLedger) Mark(ctx context.Context, entry lobby.OrphanEntry) error {
	if entry.MarkedAt.IsZero() {
		entry.MarkedAt = l.now()
	}
	record := orphanFromEntry(entry)
	record.ResolvedAt = nil

	return l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := l.repo.GetByIdentifierTx(ctx, tx, entry.UID)
		if err == nil {
			record.ID = existing.ID
			_, err = tx.NewUpdate().
				Model(record).
				Column("email", "provider", "cause", "is_new", "marked_at", "resolved_at").
				WherePK().
				Exec(ctx)
			return err
		}
		if !repository.IsRecordNotFound(err) {
			return err
		}

		record.ID = uuid.New()
		_, err = l.repo.CreateTx(ctx, tx, record)
		return err
	})
}

// Pending returns unresolved entries, oldest first.
func (l *OrphanLedger) Pending(ctx context.Context, limit int) ([]lobby.OrphanEntry, error) {
	var rows []OrphanRecord
	q := l.db.NewSelect().
		Model(&rows).
		Where("resolved_at IS NULL").
		Order("marked_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]lobby.OrphanEntry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Entry())
	}
	return out, nil
}

// Resolve stamps resolved_at for uid. Unknown uids are ignored.
func (l *OrphanLedger) Resolve(ctx context.Context, uid string) error {
	now := l.now().UTC()
	_, err := l.db.NewUpdate().
		Model((*OrphanRecord)(nil)).
		Set("resolved_at = ?", now).
		Where("uid = ?", uid).
		Where("resolved_at IS NULL").
		Exec(ctx)
	return err
}
