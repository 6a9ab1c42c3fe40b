package firebase

import (
	"context"
	"fmt"
	"strings"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config holds Firebase Admin configuration.
type Config struct {
	// ProjectID overrides the project found in the credentials (optional).
	ProjectID string

	// CredentialsFile is a service account JSON file. When empty the
	// application default credentials are used.
	CredentialsFile string
}

// NewAuthClient creates the Firebase Auth admin client.
func NewAuthClient(ctx context.Context, cfg Config) (*auth.Client, error) {
	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	var appCfg *fb.Config
	if cfg.ProjectID != "" {
		appCfg = &fb.Config{ProjectID: cfg.ProjectID}
	}

	app, err := fb.NewApp(ctx, appCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting auth client: %w", err)
	}
	return client, nil
}
