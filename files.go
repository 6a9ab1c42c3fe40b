package lobby

import (
	"embed"
	"io/fs"
)

//go:embed views public
var embeddedFS embed.FS

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the SQL migrations rooted at data/sql/migrations.
func GetMigrationsFS() fs.FS {
	return subOrRoot(migrationsFS, "data/sql/migrations")
}

// GetViewsFS returns the page templates rooted at views/.
func GetViewsFS() fs.FS {
	return subOrRoot(embeddedFS, "views")
}

// GetAssetsFS returns the static assets rooted at public/.
func GetAssetsFS() fs.FS {
	return subOrRoot(embeddedFS, "public")
}

func subOrRoot(fsys fs.FS, dir string) fs.FS {
	if _, err := fs.Stat(fsys, dir); err == nil {
		if sub, err := fs.Sub(fsys, dir); err == nil {
			return sub
		}
	}
	return fsys
}
