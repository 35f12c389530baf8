// Package journal persists a local record of everything a session sends
// and receives: session metadata, episode chunks, and a provenance log of
// uploads, model swaps, and stops. The journal is optional; a nil Recorder
// disables it without branching at call sites.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google-research/falken-go/internal/wire"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL,
	brain_id      TEXT NOT NULL,
	session_type  INTEGER NOT NULL,
	snapshot_id   TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	episode_id    TEXT NOT NULL,
	chunk_id      INTEGER NOT NULL,
	data          BLOB NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS chunks_by_episode ON chunks(session_id, episode_id);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	event_type    TEXT NOT NULL,
	detail        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// Provenance event types.
const (
	EventUpload    = "chunk_upload"
	EventModelSwap = "model_swap"
	EventStop      = "session_stop"
)

// #endregion schema

// #region store
// Store is the SQLite-backed journal.
type Store struct {
	db *sql.DB
}

// NewStore opens a journal database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region writes
// PutSession records session metadata; replays of the same id are no-ops.
func (s *Store) PutSession(sess wire.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, project_id, brain_id, session_type, snapshot_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		sess.SessionID, sess.ProjectID, sess.BrainID, int(sess.Type),
		sess.StartingSnapshotID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// PutChunk appends one chunk blob for a session.
func (s *Store) PutChunk(sessionID string, c wire.Chunk) error {
	_, err := s.db.Exec(
		`INSERT INTO chunks (session_id, episode_id, chunk_id, data, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, c.EpisodeID, c.ChunkID, wire.Marshal(&c),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

// PutEvent appends one provenance entry.
func (s *Store) PutEvent(sessionID, eventType, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO provenance_log (session_id, event_type, detail, created_at)
		 VALUES (?, ?, ?, ?)`,
		sessionID, eventType, detail, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// #endregion writes

// #region reads
// Sessions returns recorded session metadata, oldest first.
func (s *Store) Sessions() ([]wire.Session, error) {
	rows, err := s.db.Query(
		`SELECT session_id, project_id, brain_id, session_type, snapshot_id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()
	var out []wire.Session
	for rows.Next() {
		var sess wire.Session
		var typ int
		var snapshot sql.NullString
		if err := rows.Scan(&sess.SessionID, &sess.ProjectID, &sess.BrainID, &typ, &snapshot); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Type = wire.SessionType(typ)
		sess.StartingSnapshotID = snapshot.String
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Chunks returns a session's chunks in insertion order. A non-empty
// episodeID filters to one episode.
func (s *Store) Chunks(sessionID, episodeID string) ([]wire.Chunk, error) {
	query := `SELECT data FROM chunks WHERE session_id = ? ORDER BY id`
	args := []any{sessionID}
	if episodeID != "" {
		query = `SELECT data FROM chunks WHERE session_id = ? AND episode_id = ? ORDER BY id`
		args = append(args, episodeID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()
	var out []wire.Chunk
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		var c wire.Chunk
		if err := wire.Unmarshal(blob, &c); err != nil {
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Event is one provenance entry.
type Event struct {
	SessionID string
	Type      string
	Detail    string
	CreatedAt time.Time
}

// Events returns a session's provenance log, oldest first.
func (s *Store) Events(sessionID string) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT session_id, event_type, detail, created_at FROM provenance_log WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var created string
		if err := rows.Scan(&e.SessionID, &e.Type, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion reads
