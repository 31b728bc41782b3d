// Package migrations embeds the SQL migration files into the binary so the
// service can migrate its database without the files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

// Source returns the embedded migrations for database.DB.Migrate.
func Source() database.MigrationSource {
	return database.MigrationSource{FS: migrationsFS, Dir: "."}
}
