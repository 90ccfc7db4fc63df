package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/epe202/ulas/core"
)

const pgUniqueViolation = "23505"

type Store struct {
	db *sqlx.DB
}

var _ core.Store = (*Store)(nil) // interface compliance check

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	var row struct {
		Value   []byte `db:"value"`
		Version string `db:"version"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT value, version FROM blob WHERE key = $1`, key)
	if err == sql.ErrNoRows {
		return nil, "", core.ErrKeyNotFound
	}
	if err != nil {
		return nil, "", errors.Wrapf(core.ErrStoreUnavailable, "reading %s: %v", key, err)
	}
	return row.Value, row.Version, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, message, version string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrapf(core.ErrStoreUnavailable, "beginning tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	newVersion := uuid.New().String()

	if version == "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO blob (key, value, version, updated_at) VALUES ($1, $2, $3, now())`,
			key, value, newVersion)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pgUniqueViolation {
				return core.ErrVersionConflict
			}
			return errors.Wrapf(core.ErrStoreUnavailable, "inserting %s: %v", key, err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE blob SET value = $1, version = $2, updated_at = now() WHERE key = $3 AND version = $4`,
			value, newVersion, key, version)
		if err != nil {
			return errors.Wrapf(core.ErrStoreUnavailable, "updating %s: %v", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrapf(core.ErrStoreUnavailable, "updating %s: %v", key, err)
		}
		if n == 0 {
			var exists bool
			if err = tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM blob WHERE key = $1)`, key); err != nil {
				return errors.Wrapf(core.ErrStoreUnavailable, "checking %s: %v", key, err)
			}
			if exists {
				return core.ErrVersionConflict
			}
			return core.ErrKeyNotFound
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO blob_history (key, version, message) VALUES ($1, $2, $3)`,
		key, newVersion, message)
	if err != nil {
		return errors.Wrapf(core.ErrStoreUnavailable, "recording history for %s: %v", key, err)
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrapf(core.ErrStoreUnavailable, "committing %s: %v", key, err)
	}
	return nil
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.SelectContext(ctx, &keys, `SELECT key FROM blob WHERE key LIKE $1 || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, errors.Wrapf(core.ErrStoreUnavailable, "listing %s: %v", prefix, err)
	}
	return keys, nil
}
