// Package store persists resolution runs in SQLite so that unchanged
// units can be served from a previous run and past runs can be listed.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/funvibe/dcolon/internal/diagnostics"
	"github.com/funvibe/dcolon/internal/resolver"
)

// ErrNotFound is returned when no stored run matches a query.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	unit        TEXT NOT NULL,
	path        TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	resolved    INTEGER NOT NULL,
	ambiguous   INTEGER NOT NULL,
	unresolved  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_fingerprint ON runs (fingerprint, path);
CREATE TABLE IF NOT EXISTS bindings (
	run_id     TEXT NOT NULL REFERENCES runs (id),
	seq        INTEGER NOT NULL,
	site       TEXT NOT NULL,
	receiver   TEXT NOT NULL,
	method     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	ref        TEXT NOT NULL,
	match_kind TEXT NOT NULL,
	distance   INTEGER NOT NULL,
	candidates TEXT NOT NULL,
	file       TEXT NOT NULL,
	line       INTEGER NOT NULL,
	col        INTEGER NOT NULL,
	message    TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Run summarises one stored resolution pass.
type Run struct {
	ID          string
	Unit        string
	Path        string
	Fingerprint string
	CreatedAt   time.Time
	Resolved    int
	Ambiguous   int
	Unresolved  int
}

// Row is one stored binding, in call-site order.
type Row struct {
	Seq        int
	Site       string
	Receiver   string
	Method     string
	Kind       string
	Ref        string // winning implementation, empty unless resolved
	Match      string
	Distance   int
	Candidates []string
	Pos        diagnostics.Position
	Message    string // diagnostic text for failed sites
}

// Store is a SQLite-backed run history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. ":memory:" is accepted.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and writes serialised.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating store %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a unit's result and returns the new run ID.
func (s *Store) SaveRun(ctx context.Context, path, fingerprint string, res *resolver.Result) (id string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id = uuid.NewString()
	counts := res.Counts()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, unit, path, fingerprint, created_at, resolved, ambiguous, unresolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, res.Unit, path, fingerprint, s.now().UTC().UnixNano(),
		counts[resolver.Resolved], counts[resolver.Ambiguous], counts[resolver.Unresolved])
	if err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}

	messages := make(map[string]string, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		messages[d.CallSite] = d.Error()
	}

	for i, site := range res.Sites {
		b := res.Bindings[site.ID]
		row := rowFor(i, site, b, messages[site.ID])
		candidates, err := json.Marshal(row.Candidates)
		if err != nil {
			return "", fmt.Errorf("encoding candidates of %s: %w", site.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO bindings (run_id, seq, site, receiver, method, kind, ref, match_kind, distance, candidates, file, line, col, message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, row.Seq, row.Site, row.Receiver, row.Method, row.Kind, row.Ref, row.Match,
			row.Distance, string(candidates), row.Pos.File, row.Pos.Line, row.Pos.Column, row.Message)
		if err != nil {
			return "", fmt.Errorf("saving binding %s: %w", site.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}
	return id, nil
}

func rowFor(seq int, site resolver.CallSite, b resolver.Binding, message string) Row {
	row := Row{
		Seq:        seq,
		Site:       site.ID,
		Method:     site.Method,
		Kind:       b.Kind.String(),
		Distance:   b.Distance,
		Candidates: []string{},
		Pos:        site.Pos,
		Message:    message,
	}
	if site.Receiver != nil {
		row.Receiver = site.Receiver.String()
	}
	switch b.Kind {
	case resolver.Resolved:
		row.Ref = b.Decl.Ref()
		row.Match = b.Match.String()
	case resolver.Ambiguous:
		row.Match = b.Match.String()
		row.Candidates = b.Refs()
	}
	return row
}

// LatestRun returns the most recent run stored for the manifest at path
// with the given fingerprint.
func (s *Store) LatestRun(ctx context.Context, path, fingerprint string) (*Run, error) {
	rows, err := s.queryRuns(ctx,
		`SELECT id, unit, path, fingerprint, created_at, resolved, ambiguous, unresolved
		 FROM runs WHERE fingerprint = ? AND path = ? ORDER BY seq DESC LIMIT 1`, fingerprint, path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// Run returns the stored run with the given ID.
func (s *Store) Run(ctx context.Context, id string) (*Run, error) {
	rows, err := s.queryRuns(ctx,
		`SELECT id, unit, path, fingerprint, created_at, resolved, ambiguous, unresolved
		 FROM runs WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// Runs lists stored runs, newest first. A non-positive limit lists all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryRuns(ctx,
		`SELECT id, unit, path, fingerprint, created_at, resolved, ambiguous, unresolved
		 FROM runs ORDER BY seq DESC LIMIT ?`, limit)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...interface{}) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Unit, &r.Path, &r.Fingerprint, &created,
			&r.Resolved, &r.Ambiguous, &r.Unresolved); err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Bindings returns the stored bindings of a run in call-site order.
func (s *Store) Bindings(ctx context.Context, runID string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, site, receiver, method, kind, ref, match_kind, distance, candidates, file, line, col, message
		 FROM bindings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("reading bindings of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r          Row
			candidates string
		)
		if err := rows.Scan(&r.Seq, &r.Site, &r.Receiver, &r.Method, &r.Kind, &r.Ref, &r.Match,
			&r.Distance, &candidates, &r.Pos.File, &r.Pos.Line, &r.Pos.Column, &r.Message); err != nil {
			return nil, fmt.Errorf("reading bindings of %s: %w", runID, err)
		}
		if err := json.Unmarshal([]byte(candidates), &r.Candidates); err != nil {
			return nil, fmt.Errorf("decoding candidates of %s: %w", r.Site, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("reading bindings of %s: %w", runID, err)
		}
		if exists == 0 {
			return nil, ErrNotFound
		}
	}
	return out, nil
}
