// Package database provides SQLite connectivity for the device store.
//
// This package manages:
//   - The connection, with foreign keys on and optional WAL mode
//   - Embedded schema migrations tracked in schema_migrations
//   - Transactions through InTx
//
// All queries elsewhere use parameterised statements. The database file is
// chmod 0600 after open.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive-only. Each file is named
// YYYYMMDD_HHMMSS_description.up.sql with a matching .down.sql, and each
// one runs in its own transaction.
package database
