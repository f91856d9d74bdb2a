package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/engine"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	recordTimeout       = 5 * time.Second
)

var ErrInvalidLimit = errors.New("invalid history limit")

// Entry is one journaled cycle.
type Entry struct {
	ID         string         `json:"id"`
	Assistant  string         `json:"assistant"`
	ZoneID     string         `json:"zone_id"`
	State      signal.State   `json:"state,omitempty"`
	Color      string         `json:"color,omitempty"`
	Message    string         `json:"message,omitempty"`
	Blink      bool           `json:"blink"`
	Outcome    engine.Outcome `json:"outcome"`
	Fallback   bool           `json:"fallback"`
	ErrorKind  signal.Kind    `json:"error_kind,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
}

func entryFromResult(result engine.Result) Entry {
	return Entry{
		ID:         result.ID,
		Assistant:  result.Assistant,
		ZoneID:     result.ZoneID,
		State:      result.State,
		Color:      result.Signal.Color,
		Message:    result.Signal.Message,
		Blink:      result.Signal.Blink,
		Outcome:    result.Outcome,
		Fallback:   result.Fallback,
		ErrorKind:  result.ErrorKind,
		Error:      result.Error,
		StartedAt:  result.StartedAt,
		DurationMS: result.Duration.Milliseconds(),
	}
}

// Record stores one cycle result.
func (r *Repository) Record(ctx context.Context, result engine.Result) error {
	entry := entryFromResult(result)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cycle_journal (id, assistant, zone_id, state, color, message, blink, outcome, fallback, error_kind, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		entry.ID,
		entry.Assistant,
		entry.ZoneID,
		toNullString(string(entry.State)),
		toNullString(entry.Color),
		toNullString(entry.Message),
		entry.Blink,
		string(entry.Outcome),
		entry.Fallback,
		toNullString(string(entry.ErrorKind)),
		toNullString(entry.Error),
		fromTime(entry.StartedAt),
		entry.DurationMS,
	)
	return err
}

// Observe implements engine.Observer. Write failures are logged, never propagated.
func (r *Repository) Observe(result engine.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.Record(ctx, result); err != nil {
		r.logger.Warn("journal write failed", "assistant", result.Assistant, "err", err)
	}
}

// ListRecent returns the newest entries of one assistant, newest first.
// A zero limit selects the default.
func (r *Repository) ListRecent(ctx context.Context, assistant string, limit int) ([]Entry, error) {
	switch {
	case limit == 0:
		limit = defaultHistoryLimit
	case limit < 0 || limit > maxHistoryLimit:
		return nil, ErrInvalidLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assistant, zone_id, state, color, message, blink, outcome, fallback, error_kind, error, started_at, duration_ms
		FROM cycle_journal
		WHERE assistant = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, assistant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			entry                                  Entry
			state, color, message, errKind, errMsg sql.NullString
			outcome, startedAt                     string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Assistant,
			&entry.ZoneID,
			&state,
			&color,
			&message,
			&entry.Blink,
			&outcome,
			&entry.Fallback,
			&errKind,
			&errMsg,
			&startedAt,
			&entry.DurationMS,
		); err != nil {
			return nil, err
		}
		entry.State = signal.State(nullString(state))
		entry.Color = nullString(color)
		entry.Message = nullString(message)
		entry.Outcome = engine.Outcome(outcome)
		entry.ErrorKind = signal.Kind(nullString(errKind))
		entry.Error = nullString(errMsg)
		entry.StartedAt = toTime(startedAt)
		items = append(items, entry)
	}
	return items, rows.Err()
}

// Prune deletes entries started before cutoff and returns how many were removed.
func (r *Repository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cycle_journal WHERE started_at < ?`, fromTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
