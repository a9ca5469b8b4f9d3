package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/habitlink/internal/storage/postgres"
	"github.com/julianstephens/habitlink/internal/storage/sqlite"
)

var (
	_ Provider = (*sqlite.Store)(nil)
	_ Provider = (*postgres.Store)(nil)
)

// New selects a backend from path: PostgreSQL connection strings get the
// PostgreSQL store, anything else is treated as a SQLite file path.
func New(path string) Provider {
	if postgres.IsConnString(path) {
		return postgres.New(path)
	}
	return sqlite.NewStore(ExpandPath(path))
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
