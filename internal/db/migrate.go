package db

import (
	"context"

	_ "embed"
)

var (
	//go:embed schema_postgres.sql
	postgresSchema string
	//go:embed schema_sqlite.sql
	sqliteSchema string
)

// Migrate applies the schema of the database's dialect.  The statements
// create tables and indexes only when they do not already exist, so running
// it on every start is safe.
func Migrate(ctx context.Context, db *DB) error {
	schema := sqliteSchema
	if db.Dialect == Postgres {
		schema = postgresSchema
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}
