package monitor

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is the SQLite transaction journal.
type Store struct {
	db *sql.DB
}

const ddlTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    outcome     TEXT    NOT NULL,
    address     INTEGER NOT NULL,
    count       INTEGER NOT NULL,
    payload     BLOB    NOT NULL,          -- Record, protobuf wire format
    recorded_at INTEGER NOT NULL           -- Unix milliseconds
);
CREATE INDEX IF NOT EXISTS idx_transactions_recorded_at ON transactions (recorded_at DESC);
`

// OpenStore opens (or creates) the journal at path in WAL mode.
func OpenStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	// One writer; WAL lets readers proceed.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ddlTransactions); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends r to the journal and returns its row ID.
func (s *Store) Insert(ctx context.Context, r Record) (int64, error) {
	payload, err := r.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("store: encode: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (outcome, address, count, payload, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.Outcome.String(), r.Address, r.Count, payload, r.Time.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: insert: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM transactions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var (
			id      int64
			payload []byte
			r       Record
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		if err := r.UnmarshalBinary(payload); err != nil {
			return nil, fmt.Errorf("store: decode row %d: %w", id, err)
		}
		r.ID = id
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of journaled transactions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}
