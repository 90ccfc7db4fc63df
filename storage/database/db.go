// Package database is the Postgres-backed core.Store. One blob table plays
// the role of the remote file store, with a uuid version column carrying the
// compare-and-swap token and a history table keeping the audit trail of
// accepted writes.
package database

import (
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/epe202/ulas/core"
	appfs "github.com/epe202/ulas/fs"
)

func Open(conf *core.Config) (*sqlx.DB, error) {
	dbConf := conf.Storage.Database

	sslMode := "require"
	if dbConf.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   dbConf.Engine,
		User:     url.UserPassword(dbConf.User, dbConf.Password),
		Host:     dbConf.Address(),
		Path:     dbConf.Name,
		RawQuery: q.Encode(),
	}
	db, err := sqlx.Open(dbConf.Engine, u.String())
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func Migrate(db *sqlx.DB) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
