package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id          TEXT PRIMARY KEY,
	question    TEXT NOT NULL,
	answer      TEXT NOT NULL,
	agent       TEXT NOT NULL,
	rangeStart  REAL NOT NULL,
	rangeEnd    REAL NOT NULL,
	model       TEXT NOT NULL,
	createdAt   REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_createdAt ON exchanges(createdAt);
`

// Store provides read-write access to the query log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the query-log database with WAL.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: conn}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveExchange records one completed query round. A missing ID or timestamp
// is filled in.
func (s *Store) SaveExchange(ex Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO exchanges (id, question, answer, agent, rangeStart, rangeEnd, model, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ex.ID, ex.Question, ex.Answer, ex.Agent,
		unixFloat(ex.RangeStart), unixFloat(ex.RangeEnd), ex.Model, unixFloat(ex.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// RecentExchanges returns up to limit exchanges, newest first.
func (s *Store) RecentExchanges(limit int) ([]Exchange, error) {
	rows, err := s.db.Query(`
		SELECT id, question, answer, agent, rangeStart, rangeEnd, model, createdAt
		FROM exchanges
		ORDER BY createdAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var rangeStart, rangeEnd, createdAt float64
		if err := rows.Scan(&ex.ID, &ex.Question, &ex.Answer, &ex.Agent,
			&rangeStart, &rangeEnd, &ex.Model, &createdAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		ex.RangeStart = timeFromUnix(rangeStart)
		ex.RangeEnd = timeFromUnix(rangeEnd)
		ex.CreatedAt = timeFromUnix(createdAt)
		out = append(out, ex)
	}
	return out, rows.Err()
}

func unixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
