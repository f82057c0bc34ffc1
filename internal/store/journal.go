// Package store provides the append-only snapshot journal. The engine
// hands every published snapshot to the journal fire-and-forget; writes
// happen on a background goroutine and failures are logged, never
// propagated back into the refresh cycle.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"upstox-chainwatch/internal/models"
)

// journalBuffer is how many snapshots may queue before new ones are
// dropped. At one snapshot per 5s cycle this is hours of backlog.
const journalBuffer = 256

// SnapshotJournal appends market snapshots to a SQLite database.
type SnapshotJournal struct {
	db     *sql.DB
	ch     chan *models.MarketSnapshot
	done   chan struct{}
	logger zerolog.Logger
}

// NewSnapshotJournal opens (or creates) the journal database and starts
// the writer goroutine.
func NewSnapshotJournal(dbPath string, logger zerolog.Logger) (*SnapshotJournal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	db.SetMaxOpenConns(2)

	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		captured_at DATETIME NOT NULL,
		cycle_ts TEXT NOT NULL,
		underlyings INTEGER NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_captured ON snapshots(captured_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	j := &SnapshotJournal{
		db:     db,
		ch:     make(chan *models.MarketSnapshot, journalBuffer),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "journal").Logger(),
	}
	go j.run()
	return j, nil
}

// Persist enqueues a snapshot for appending. Never blocks; when the queue
// is full the snapshot is dropped, which only costs journal completeness.
func (j *SnapshotJournal) Persist(snap *models.MarketSnapshot) {
	if snap == nil {
		return
	}
	select {
	case j.ch <- snap:
	default:
		j.logger.Warn().Msg("journal queue full, snapshot dropped")
	}
}

func (j *SnapshotJournal) run() {
	defer close(j.done)
	for snap := range j.ch {
		j.append(snap)
	}
}

func (j *SnapshotJournal) append(snap *models.MarketSnapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		j.logger.Error().Err(err).Msg("snapshot marshal failed")
		return
	}
	_, err = j.db.Exec(
		`INSERT INTO snapshots (captured_at, cycle_ts, underlyings, payload) VALUES (?, ?, ?, ?)`,
		time.Now().UTC(), snap.Timestamp, len(snap.Underlyings), string(payload),
	)
	if err != nil {
		j.logger.Error().Err(err).Msg("snapshot append failed")
	}
}

// Recent returns up to n of the most recently journaled snapshots, newest
// first.
func (j *SnapshotJournal) Recent(n int) ([]*models.MarketSnapshot, error) {
	rows, err := j.db.Query(`SELECT payload FROM snapshots ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []*models.MarketSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var snap models.MarketSnapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("corrupt journal payload: %w", err)
		}
		out = append(out, &snap)
	}
	return out, rows.Err()
}

// Count returns the number of journaled snapshots.
func (j *SnapshotJournal) Count() (int64, error) {
	var n int64
	err := j.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n)
	return n, err
}

// Close drains pending writes and closes the database.
func (j *SnapshotJournal) Close() error {
	close(j.ch)
	<-j.done
	return j.db.Close()
}
