// Package store persists parse runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/replus/internal/engine"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/tracing"
)

// Schema creates the store tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	text_length INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	type TEXT NOT NULL,
	entry INTEGER NOT NULL,
	value TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS captures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	match_id INTEGER NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	fragment_key TEXT NOT NULL,
	name TEXT NOT NULL,
	value TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_matches_run ON matches(run_id, position);
CREATE INDEX IF NOT EXISTS idx_captures_match ON captures(match_id, position);
`

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Run summarizes one saved parse.
type Run struct {
	ID         string
	Source     string
	TextLength int
	Matches    int
	CreatedAt  time.Time
}

// Store is a SQLite-backed history of parse runs.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path. ":memory:" keeps it in
// memory for the life of the Store.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)"
	log.Debug(log.CatStore, "Opening database", "path", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.ErrorErr(log.CatStore, "Failed to open database", err, "path", path)
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Info(log.CatStore, "Connected to database", "path", path)
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the matches of one parse of text and returns the new
// run id.
func (s *Store) SaveRun(ctx context.Context, source string, textLength int, matches []engine.MatchRecord) (id string, err error) {
	ctx, span := otel.Tracer(tracing.InstrumentationName).Start(ctx, tracing.SpanStoreSave)
	defer func() { tracing.End(span, err) }()

	id = uuid.NewString()
	span.SetAttributes(attribute.String(tracing.AttrRunID, id), attribute.Int(tracing.AttrMatchCount, len(matches)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, text_length, created_at) VALUES (?, ?, ?, ?)`,
		id, source, textLength, s.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, m := range matches {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO matches (run_id, position, type, entry, value, start_offset, end_offset) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, m.Type, m.Entry, m.Value, m.Start, m.End,
		)
		if err != nil {
			return "", fmt.Errorf("insert match %d: %w", i, err)
		}
		matchID, err := res.LastInsertId()
		if err != nil {
			return "", fmt.Errorf("match id: %w", err)
		}
		for j, g := range m.Groups {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO captures (match_id, position, fragment_key, name, value, start_offset, end_offset) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				matchID, j, g.Key, g.Name, g.Value, g.Start, g.End,
			); err != nil {
				return "", fmt.Errorf("insert capture %s: %w", g.Name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	log.Debug(log.CatStore, "saved run", "id", id, "source", source, "matches", len(matches))
	return id, nil
}

// Runs lists saved runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.source, r.text_length, r.created_at,
			(SELECT COUNT(*) FROM matches m WHERE m.run_id = r.id)
		FROM runs r
		ORDER BY r.created_at DESC, r.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.TextLength, &created, &r.Matches); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("run %s: created_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Matches returns the matches of a run in their original order.
func (s *Store) Matches(ctx context.Context, runID string) ([]engine.MatchRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.type, m.entry, m.value, m.start_offset, m.end_offset,
			c.fragment_key, c.name, c.value, c.start_offset, c.end_offset
		FROM matches m
		LEFT JOIN captures c ON c.match_id = m.id
		WHERE m.run_id = ?
		ORDER BY m.position, c.position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []engine.MatchRecord{}
	lastID := int64(-1)
	for rows.Next() {
		var (
			matchID int64
			m       engine.MatchRecord
			key     sql.NullString
			name    sql.NullString
			value   sql.NullString
			start   sql.NullInt64
			end     sql.NullInt64
		)
		if err := rows.Scan(&matchID, &m.Type, &m.Entry, &m.Value, &m.Start, &m.End,
			&key, &name, &value, &start, &end); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if matchID != lastID {
			m.Groups = []engine.GroupRecord{}
			out = append(out, m)
			lastID = matchID
		}
		if name.Valid {
			cur := &out[len(out)-1]
			cur.Groups = append(cur.Groups, engine.GroupRecord{
				Key:   key.String,
				Name:  name.String,
				Value: value.String,
				Start: int(start.Int64),
				End:   int(end.Int64),
			})
		}
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its matches.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
