package store

import (
	"time"

	"github.com/goliatone/go-lobby"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRecord is the application user created after the identity provider
// accepted a registration.
type UserRecord struct {
	bun.BaseModel `bun:"table:lobby_users,alias:lu"`

	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UID           string     `bun:"uid,notnull,unique" json:"uid"`
	Email         string     `bun:"email,notnull" json:"email"`
	Provider      string     `bun:"provider,notnull" json:"provider"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	EmailVerified bool       `bun:"email_verified,notnull,default:false" json:"email_verified"`
	RegisteredAt  *time.Time `bun:"registered_at" json:"registered_at,omitempty"`
	LastLoginAt   *time.Time `bun:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// OrphanRecord is a ledger row for an identity without a user record.
type OrphanRecord struct {
	bun.BaseModel `bun:"table:lobby_orphans,alias:lo"`

	ID         uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UID        string     `bun:"uid,notnull,unique" json:"uid"`
	Email      string     `bun:"email" json:"email"`
	Provider   string     `bun:"provider,notnull" json:"provider"`
	Cause      string     `bun:"cause" json:"cause"`
	IsNew      bool       `bun:"is_new,notnull,default:false" json:"is_new"`
	MarkedAt   time.Time  `bun:"marked_at,notnull" json:"marked_at"`
	ResolvedAt *time.Time `bun:"resolved_at" json:"resolved_at,omitempty"`
}

func orphanFromEntry(entry lobby.OrphanEntry) *OrphanRecord {
	return &OrphanRecord{
		UID:        entry.UID,
		Email:      entry.Email,
		Provider:   string(entry.Provider),
		Cause:      entry.Cause,
		IsNew:      entry.IsNew,
		MarkedAt:   entry.MarkedAt.UTC(),
		ResolvedAt: entry.ResolvedAt,
	}
}

// Entry converts the row to a ledger entry.
func (r *OrphanRecord) Entry() lobby.OrphanEntry {
	return lobby.OrphanEntry{
		UID:        r.UID,
		Email:      r.Email,
		Provider:   lobby.ProviderKind(r.Provider),
		Cause:      r.Cause,
		IsNew:      r.IsNew,
		MarkedAt:   r.MarkedAt,
		ResolvedAt: r.ResolvedAt,
	}
}

// Models lists the bun models backed by the lobby migrations.
func Models() []any {
	return []any{
		(*UserRecord)(nil),
		(*OrphanRecord)(nil),
	}
}
