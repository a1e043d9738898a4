// Package ledger keeps a local sqlite record of ingestion runs and of every
// chunk upload attempt, so a partially uploaded dataset can be audited after
// the fact.
package ledger

import (
	"database/sql"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	tx_id TEXT PRIMARY KEY,
	dataset TEXT NOT NULL,
	namespace TEXT NOT NULL,
	policy TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	status TEXT NOT NULL,
	total_triples INTEGER DEFAULT 0,
	total_chunks INTEGER DEFAULT 0,
	total_bytes INTEGER DEFAULT 0,
	failed_chunks INTEGER DEFAULT 0,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset, started_at);

CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tx_id TEXT NOT NULL REFERENCES runs(tx_id),
	seq INTEGER NOT NULL,
	path TEXT NOT NULL,
	triples INTEGER NOT NULL,
	bytes INTEGER NOT NULL,
	checksum TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_tx ON chunks(tx_id, seq);
`

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCommitted = "committed"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
)

// Chunk statuses.
const (
	ChunkUploaded = "uploaded"
	ChunkFailed   = "failed"
)

// timestamps are stored as fixed-width UTC text so they sort as strings
const timeLayout = "2006-01-02T15:04:05.000Z"

func stamp() string {
	return time.Now().UTC().Format(timeLayout)
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path. ":memory:" works for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, err
			}
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// Run is one dataset ingestion.
type Run struct {
	TxID         string
	Dataset      string
	Namespace    string
	Policy       string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       string
	TotalTriples int64
	TotalChunks  int
	TotalBytes   int64
	FailedChunks int
	Error        string
}

// ChunkRecord is one chunk upload attempt.
type ChunkRecord struct {
	TxID     string
	Seq      int
	Path     string
	Triples  int
	Bytes    int
	Checksum string
	Duration time.Duration
	Status   string
	Error    string
}

// StartRun records the beginning of a dataset run.
func (s *Store) StartRun(txID, dataset, namespace, policy string) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (tx_id, dataset, namespace, policy, started_at, status) VALUES (?, ?, ?, ?, ?, ?)`,
		txID, dataset, namespace, policy, stamp(), StatusRunning,
	)
	return err
}

// RecordChunk appends a chunk upload attempt.
func (s *Store) RecordChunk(c ChunkRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO chunks (tx_id, seq, path, triples, bytes, checksum, duration_ms, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.TxID, c.Seq, c.Path, c.Triples, c.Bytes, c.Checksum, c.Duration.Milliseconds(), c.Status, nullString(c.Error), stamp(),
	)
	if err != nil {
		return err
	}

	if c.Status == ChunkFailed {
		_, err = s.db.Exec(`UPDATE runs SET failed_chunks = failed_chunks + 1 WHERE tx_id = ?`, c.TxID)
	}
	return err
}

// FinishRun stores the final status and totals of a run.
func (s *Store) FinishRun(txID, status string, triples int64, chunks int, bytes int64, runErr error) error {
	var msg any
	if runErr != nil {
		msg = runErr.Error()
	}

	_, err := s.db.Exec(`
		UPDATE runs
		SET finished_at = ?, status = ?, total_triples = ?, total_chunks = ?, total_bytes = ?, error = ?
		WHERE tx_id = ?`,
		stamp(), status, triples, chunks, bytes, msg, txID,
	)
	return err
}

// Runs returns the most recent runs, newest first. An empty dataset matches all.
func (s *Store) Runs(dataset string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT tx_id, dataset, namespace, policy, started_at, finished_at, status,
			total_triples, total_chunks, total_bytes, failed_chunks, COALESCE(error, '')
		FROM runs
		WHERE ? = '' OR dataset = ?
		ORDER BY started_at DESC, tx_id DESC
		LIMIT ?`, dataset, dataset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var finished *string
		if err := rows.Scan(&r.TxID, &r.Dataset, &r.Namespace, &r.Policy, &started, &finished, &r.Status,
			&r.TotalTriples, &r.TotalChunks, &r.TotalBytes, &r.FailedChunks, &r.Error); err != nil {
			return nil, err
		}

		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != nil {
			t, _ := time.Parse(time.RFC3339Nano, *finished)
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Chunks returns the upload attempts of a run in the order they happened.
func (s *Store) Chunks(txID string) ([]ChunkRecord, error) {
	rows, err := s.db.Query(`
		SELECT tx_id, seq, path, triples, bytes, checksum, duration_ms, status, COALESCE(error, '')
		FROM chunks
		WHERE tx_id = ?
		ORDER BY id`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		var ms int64
		if err := rows.Scan(&c.TxID, &c.Seq, &c.Path, &c.Triples, &c.Bytes, &c.Checksum, &ms, &c.Status, &c.Error); err != nil {
			return nil, err
		}
		c.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, c)
	}

	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
