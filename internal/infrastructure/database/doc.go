// Package database provides SQLite connectivity for the Velux binding.
//
// The database holds the item bindings (velux_items) so they can be edited
// without restarting the service. Migrations are embedded in the binary by
// the top-level migrations package and applied at startup.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    return err
//	}
//
// Migrations are additive-only: new columns must be NULLABLE or carry a
// DEFAULT, and each .up.sql should ship with a .down.sql.
package database
