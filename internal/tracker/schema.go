package tracker

import "github.com/aqasim81/schemagate/internal/database"

// TableName is the change tracking table.
const TableName = "schema_changelog"

// createSchemaSQL returns the DDL for the tracking table. Only the timestamp
// type differs between drivers.
func createSchemaSQL(driver database.Driver) string {
	tsType := "TIMESTAMP"
	if driver == database.DriverPgx {
		tsType = "TIMESTAMPTZ"
	}

	return `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
    id             TEXT NOT NULL,
    author         TEXT NOT NULL,
    filename       TEXT NOT NULL,
    checksum       TEXT NOT NULL,
    applied_at     ` + tsType + ` NOT NULL,
    order_executed INTEGER NOT NULL,
    deployment_id  TEXT NOT NULL,
    PRIMARY KEY (id, author, filename)
)`
}
