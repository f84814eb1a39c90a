// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly configure
// MySQL connections based on the application's configuration. Connected
// databases serve as row sources for table compares.
//
// # Connect
//
// The Connect function establishes a connection to the database with pooled
// connections and strict timeouts.
//
// # Schema Inspection
//
// The package includes tools to inspect table schemas. PrimaryKeyColumns
// supplies default key columns when a table compare is requested without an
// explicit key.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	keys, err := database.PrimaryKeyColumns(db, "orders")
package database
