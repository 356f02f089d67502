package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var downloadsTable string

// migrations[i] moves a database from layout i to i+1. SQLite's user_version
// header field records how many have been applied, so an empty file starts
// at zero.
var migrations = []string{
	downloadsTable,
}

// ErrSchemaMismatch means the database was written by a ytdesk build with a
// layout this one does not know.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

func layoutVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read history layout version: %w", err)
	}
	return version, nil
}

// migrate applies the migrations the database has not seen yet, each in its
// own transaction together with the version bump.
func (s *Store) migrate(ctx context.Context) error {
	have, err := layoutVersion(ctx, s.db)
	if err != nil {
		return err
	}
	if have > len(migrations) {
		return fmt.Errorf("%w: %s has layout %d but this build knows up to %d (run 'ytdesk history clear --reset' to start over)",
			ErrSchemaMismatch, s.path, have, len(migrations))
	}
	if have == 0 {
		var tables int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'downloads'`).Scan(&tables); err != nil {
			return fmt.Errorf("inspect history tables: %w", err)
		}
		if tables > 0 {
			return fmt.Errorf("%w: %s has an unversioned downloads table (run 'ytdesk history clear --reset' to start over)",
				ErrSchemaMismatch, s.path)
		}
	}
	for next := have; next < len(migrations); next++ {
		err := retryOnBusy(ctx, func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback() }()
			if _, err := tx.ExecContext(ctx, migrations[next]); err != nil {
				return err
			}
			// PRAGMA does not take bind parameters.
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", next+1)); err != nil {
				return err
			}
			return tx.Commit()
		})
		if err != nil {
			return fmt.Errorf("apply history migration %d: %w", next+1, err)
		}
	}
	return nil
}

// reset drops every table and rebuilds the current layout. Entries are lost.
func (s *Store) reset(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return fmt.Errorf("list history tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("list history tables: %w", err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list history tables: %w", err)
	}

	for _, name := range tables {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", name)); err != nil {
			return fmt.Errorf("drop history table %s: %w", name, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA user_version = 0"); err != nil {
		return fmt.Errorf("reset history layout version: %w", err)
	}
	return s.migrate(ctx)
}
