package notifyflow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/randalmurphal/notifyflow/pkg/notifyflow/load"
)

// SQLiteHistory persists routing decisions to SQLite.
// It is suitable for single-process production use.
type SQLiteHistory struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Compile-time interface check.
var _ HistoryStore = (*SQLiteHistory)(nil)

// NewSQLiteHistory creates a new SQLite history journal.
// The path should be a file path (e.g. "./notifications.db") or ":memory:"
// for testing.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL,
			correlation_id TEXT NOT NULL,
			pattern TEXT NOT NULL,
			status TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail_level TEXT NOT NULL,
			load_level TEXT NOT NULL,
			message TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_notifications_pattern
		ON notifications(pattern)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteHistory{db: db}, nil
}

// Record implements HistoryStore.
func (s *SQLiteHistory) Record(ctx context.Context, entry *HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history entry is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrHistoryClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (
			event_id, correlation_id, pattern, status, outcome,
			detail_level, load_level, message, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.EventID, entry.CorrelationID, entry.Pattern, entry.Status,
		entry.Outcome, entry.DetailLevel.String(), entry.LoadLevel.String(),
		entry.Message, entry.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// List implements HistoryStore.
func (s *SQLiteHistory) List(ctx context.Context, filter HistoryFilter) ([]*HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrHistoryClosed
	}

	query := `
		SELECT event_id, correlation_id, pattern, status, outcome,
		       detail_level, load_level, message, recorded_at
		FROM notifications
	`
	var conds []string
	var args []any
	if filter.Pattern != "" {
		conds = append(conds, "pattern = ?")
		args = append(args, filter.Pattern)
	}
	if filter.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var detail, level, recordedAt string
		if err := rows.Scan(
			&e.EventID, &e.CorrelationID, &e.Pattern, &e.Status, &e.Outcome,
			&detail, &level, &e.Message, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		e.DetailLevel = parseDetailLevel(detail)
		e.LoadLevel = parseLoadLevel(level)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return entries, nil
}

// Count implements HistoryStore.
func (s *SQLiteHistory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrHistoryClosed
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications`,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

// Prune removes entries recorded before the cutoff and returns how many
// were deleted. Intended for periodic retention sweeps.
func (s *SQLiteHistory) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrHistoryClosed
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE recorded_at < ?
	`, before.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune notifications: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// Close implements HistoryStore.
func (s *SQLiteHistory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

func parseDetailLevel(s string) DetailLevel {
	switch s {
	case "minimal":
		return DetailMinimal
	case "low":
		return DetailLow
	case "medium":
		return DetailMedium
	case "high":
		return DetailHigh
	default:
		return DetailLow
	}
}

func parseLoadLevel(s string) load.Level {
	switch s {
	case "idle":
		return load.LevelIdle
	case "low":
		return load.LevelLow
	case "moderate":
		return load.LevelModerate
	case "high":
		return load.LevelHigh
	case "critical":
		return load.LevelCritical
	default:
		return load.LevelHigh
	}
}
