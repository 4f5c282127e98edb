// Package database opens the SQLite file that backs the audit log and the
// device state history, and applies the embedded schema migrations.
//
// The connection runs with a single writer, WAL journaling when enabled and
// a busy timeout so concurrent writers wait instead of failing:
//
//	db, err := database.Open(database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Each one runs in its own transaction and is
// recorded in schema_migrations.
package database
