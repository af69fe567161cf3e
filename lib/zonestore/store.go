package zonestore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "embed"
)

//go:embed schema.sql
var Schema string

// Store keeps a local history of zone snapshots and sync cursors so
// state changes survive between CLI invocations. It never stores
// credentials or session cookies.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) (Store, error) {
	_, err := database.Exec(Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return Store{}, err
	}
	return Store{db: database}, nil
}

type Zone struct {
	Id    string
	Name  string
	Tags  string
	State string
}

func (s Store) PushZones(ctx context.Context, at time.Time, zones []Zone) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, z := range zones {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO zone_snapshot (taken_at, zone, name, tags, state)
			 VALUES (?, ?, ?, ?, ?)`,
			at.Unix(), z.Id, z.Name, z.Tags, z.State,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s Store) PushSync(ctx context.Context, at time.Time, code string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_cursor (taken_at, code) VALUES (?, ?)`,
		at.Unix(), code,
	)
	return err
}

type Snapshot struct {
	Time  time.Time
	Zone  string
	Name  string
	Tags  string
	State string
}

// History returns every stored snapshot for one zone, oldest first.
func (s Store) History(ctx context.Context, zone string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT taken_at, zone, name, tags, state
		 FROM zone_snapshot WHERE zone = ? ORDER BY taken_at ASC, id ASC`,
		zone,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var takenAt int64
		var snap Snapshot
		err := rows.Scan(&takenAt, &snap.Zone, &snap.Name, &snap.Tags, &snap.State)
		if err != nil {
			return nil, err
		}
		snap.Time = time.Unix(takenAt, 0)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LastSync returns the most recent sync cursor, ok is false when none
// has been recorded yet.
func (s Store) LastSync(ctx context.Context) (code string, at time.Time, ok bool, err error) {
	var takenAt int64
	err = s.db.QueryRowContext(
		ctx,
		`SELECT taken_at, code FROM sync_cursor ORDER BY taken_at DESC, rowid DESC LIMIT 1`,
	).Scan(&takenAt, &code)
	if err == sql.ErrNoRows {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, err
	}
	return code, time.Unix(takenAt, 0), true, nil
}
