package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"daybook/internal/core/session"

	_ "modernc.org/sqlite"
)

const historyFileName = "history.db"

// storedTimeLayout is fixed width so text ordering matches time ordering.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrSessionNotFound is returned when a summary targets an unknown session.
var ErrSessionNotFound = errors.New("session not found in history")

// HistoryPath returns the default history database for appName.
func HistoryPath(appName string) (string, error) {
	configDir, err := ConfigDir(appName)
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, historyFileName), nil
}

// SQLiteHistory stores completed sessions with their goals and distractions.
type SQLiteHistory struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the history database at dbPath.
func OpenHistory(dbPath string) (*SQLiteHistory, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	history := &SQLiteHistory{db: db}
	if err := history.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return history, nil
}

func (h *SQLiteHistory) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  note_id TEXT NOT NULL,
  start_time TEXT NOT NULL,
  end_time TEXT,
  day_summary TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS goals (
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  id TEXT NOT NULL,
  text TEXT NOT NULL,
  finished INTEGER NOT NULL,
  PRIMARY KEY (session_id, position)
);
CREATE TABLE IF NOT EXISTS distractions (
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  id TEXT NOT NULL,
  text TEXT NOT NULL,
  PRIMARY KEY (session_id, position)
);
CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time);
`
	if _, err := h.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create history tables: %w", err)
	}
	return nil
}

// SaveSession upserts a completed session and replaces its goals and distractions.
func (h *SQLiteHistory) SaveSession(ctx context.Context, completed session.Session) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save session: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
INSERT INTO sessions (id, note_id, start_time, end_time, day_summary)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  note_id=excluded.note_id,
  start_time=excluded.start_time,
  end_time=excluded.end_time,
  day_summary=excluded.day_summary;
`
	var endTime sql.NullString
	if completed.EndTime != nil {
		endTime = sql.NullString{String: formatTime(*completed.EndTime), Valid: true}
	}
	if _, err := tx.ExecContext(ctx, upsert,
		completed.ID,
		completed.NoteID,
		formatTime(completed.StartTime),
		endTime,
		completed.DaySummary,
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE session_id = ?`, completed.ID); err != nil {
		return fmt.Errorf("clear goals: %w", err)
	}
	for position, goal := range completed.Goals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO goals (session_id, position, id, text, finished) VALUES (?, ?, ?, ?, ?)`,
			completed.ID, position, goal.ID, goal.Text, goal.Finished,
		); err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM distractions WHERE session_id = ?`, completed.ID); err != nil {
		return fmt.Errorf("clear distractions: %w", err)
	}
	for position, distraction := range completed.Distractions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO distractions (session_id, position, id, text) VALUES (?, ?, ?, ?)`,
			completed.ID, position, distraction.ID, distraction.Text,
		); err != nil {
			return fmt.Errorf("insert distraction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save session: %w", err)
	}
	return nil
}

// SetDaySummary attaches summary to a stored session.
func (h *SQLiteHistory) SetDaySummary(ctx context.Context, sessionID, summary string) error {
	result, err := h.db.ExecContext(ctx, `UPDATE sessions SET day_summary = ? WHERE id = ?`, summary, sessionID)
	if err != nil {
		return fmt.Errorf("update day summary: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update day summary: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set day summary for %q: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}

// List returns up to limit completed sessions, newest first. A limit of
// zero or less returns every session.
func (h *SQLiteHistory) List(ctx context.Context, limit int) ([]session.Session, error) {
	query := `SELECT id, note_id, start_time, end_time, day_summary FROM sessions ORDER BY start_time DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []session.Session{}
	for rows.Next() {
		var (
			item    session.Session
			start   string
			endTime sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.NoteID, &start, &endTime, &item.DaySummary); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if item.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if endTime.Valid {
			end, err := parseTime(endTime.String)
			if err != nil {
				return nil, err
			}
			item.EndTime = &end
		}
		sessions = append(sessions, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	rows.Close()

	for index := range sessions {
		if err := h.loadChildren(ctx, &sessions[index]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (h *SQLiteHistory) loadChildren(ctx context.Context, item *session.Session) error {
	goals, err := h.db.QueryContext(ctx,
		`SELECT id, text, finished FROM goals WHERE session_id = ? ORDER BY position`, item.ID)
	if err != nil {
		return fmt.Errorf("query goals: %w", err)
	}
	item.Goals = []session.Goal{}
	for goals.Next() {
		var goal session.Goal
		if err := goals.Scan(&goal.ID, &goal.Text, &goal.Finished); err != nil {
			goals.Close()
			return fmt.Errorf("scan goal: %w", err)
		}
		item.Goals = append(item.Goals, goal)
	}
	if err := goals.Err(); err != nil {
		goals.Close()
		return fmt.Errorf("iterate goals: %w", err)
	}
	goals.Close()

	distractions, err := h.db.QueryContext(ctx,
		`SELECT id, text FROM distractions WHERE session_id = ? ORDER BY position`, item.ID)
	if err != nil {
		return fmt.Errorf("query distractions: %w", err)
	}
	defer distractions.Close()
	item.Distractions = []session.Distraction{}
	for distractions.Next() {
		var distraction session.Distraction
		if err := distractions.Scan(&distraction.ID, &distraction.Text); err != nil {
			return fmt.Errorf("scan distraction: %w", err)
		}
		item.Distractions = append(item.Distractions, distraction)
	}
	if err := distractions.Err(); err != nil {
		return fmt.Errorf("iterate distractions: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}

func formatTime(value time.Time) string {
	return value.UTC().Format(storedTimeLayout)
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(storedTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return parsed, nil
}
