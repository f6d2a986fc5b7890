// Package database provides SQLite connectivity for the Zigbee gateway.
//
// The database holds two tables: audit_logs, one row per management request
// that changed radio state, and zigbee_devices, the archive of devices seen
// through assoc_find_device.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive-only; only *.up.sql files are applied.
package database
