package store

import (
	"context"
	"sync"

	"github.com/goliatone/go-lobby"
	persistence "github.com/goliatone/go-persistence-bun"
)

// MigrationsSource labels the embedded migrations in persistence reports.
const MigrationsSource = "data/sql/migrations"

var registerOnce sync.Once

// RegisterModels registers the store models with go-persistence-bun. Call
// it before persistence.New.
func RegisterModels() {
	registerOnce.Do(func() {
		for _, model := range Models() {
			persistence.RegisterModel(model)
		}
	})
}

// Migrate applies the embedded lobby migrations through client.
func Migrate(ctx context.Context, client *persistence.Client) error {
	client.RegisterDialectMigrations(
		lobby.GetMigrationsFS(),
		persistence.WithDialectSourceLabel(MigrationsSource),
		persistence.WithValidationTargets("sqlite", "postgres"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}
	return client.Migrate(ctx)
}
