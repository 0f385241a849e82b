package commands

import (
	"database/sql"

	"github.com/veritext/apparatus/config"
	"github.com/veritext/apparatus/db"
	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/logger"
)

// openDatabase opens and migrates the apparatus database. If dbPath is
// empty, the configured path is used.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, errors.Wrap(err, "loading configuration")
		}
		dbPath = cfg.Database.Path
	}

	database, err := db.Open(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database at %s", dbPath)
	}

	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "running migrations on %s", dbPath)
	}

	return database, nil
}
