package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRecorder persists refresh history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refreshes (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			symbols        TEXT,
			api_calls      INTEGER,
			total_value    REAL,
			total_invested REAL,
			gain_loss      REAL,
			prices         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refreshes_ts ON refreshes(timestamp)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRefresh inserts one row per completed refresh.
func (r *SQLiteRecorder) RecordRefresh(snap *RefreshSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prices, err := json.Marshal(snap.Prices)
	if err != nil {
		return fmt.Errorf("encode prices: %w", err)
	}

	ts := snap.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = r.db.Exec(`INSERT INTO refreshes
		(timestamp, symbols, api_calls, total_value, total_invested, gain_loss, prices)
		VALUES (?,?,?,?,?,?,?)`,
		ts.Unix(), strings.Join(snap.Symbols, ","), snap.APICalls,
		snap.TotalValue, snap.TotalInvested, snap.GainLoss, string(prices),
	)
	return err
}

// History returns the most recent snapshots, newest first.
func (r *SQLiteRecorder) History(limit int) ([]RefreshSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT timestamp, symbols, api_calls, total_value, total_invested, gain_loss, prices
		FROM refreshes ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []RefreshSnapshot
	for rows.Next() {
		var (
			ts      int64
			symbols string
			prices  string
			snap    RefreshSnapshot
		)
		if err := rows.Scan(&ts, &symbols, &snap.APICalls, &snap.TotalValue, &snap.TotalInvested, &snap.GainLoss, &prices); err != nil {
			return nil, err
		}
		snap.Timestamp = time.Unix(ts, 0)
		if symbols != "" {
			snap.Symbols = strings.Split(symbols, ",")
		}
		if prices != "" {
			_ = json.Unmarshal([]byte(prices), &snap.Prices)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Close closes the underlying database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
