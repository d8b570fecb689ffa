package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/agalitsyn/sqlite"

	"github.com/agalitsyn/artist-scheduler/internal/storage/sqlite/migrations"
)

// Open connects to the database file and applies pending migrations.
func Open(path string) (*sql.DB, error) {
	db, err := sqlite.Connect(path)
	if err != nil {
		return nil, err
	}
	// modernc driver serializes writes anyway; one connection keeps ":memory:" usable.
	db.SetMaxOpenConns(1)

	if err := sqlite.MigrateUp(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}
	return db, nil
}
