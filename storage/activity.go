package storage

import (
	"context"
	"fmt"
	"time"

	"channel-console/activity"
)

// timeLayout is fixed-width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Name identifies the store in activity sink logs.
func (s *Store) Name() string { return "sqlite" }

// Record appends an event to the activity table.
func (s *Store) Record(ctx context.Context, ev activity.Event) error {
	query := `INSERT INTO activity (kind, channel_id, outcome, detail, at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, string(ev.Kind), ev.ChannelID, string(ev.Outcome), ev.Detail, ev.At.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// RecentActivity returns up to limit events, newest first.
func (s *Store) RecentActivity(ctx context.Context, limit int) ([]activity.Event, error) {
	query := `SELECT kind, channel_id, outcome, detail, at FROM activity ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activity: %w", err)
	}
	defer rows.Close()

	var events []activity.Event
	for rows.Next() {
		var (
			ev            activity.Event
			kind, outcome string
			at            string
		)
		if err := rows.Scan(&kind, &ev.ChannelID, &outcome, &ev.Detail, &at); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		ev.Kind = activity.Kind(kind)
		ev.Outcome = activity.Outcome(outcome)
		ev.At, err = time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("failed to parse activity time %q: %w", at, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity rows: %w", err)
	}
	return events, nil
}

// PruneActivity deletes events older than before and returns how many were
// removed.
func (s *Store) PruneActivity(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activity WHERE at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune activity: %w", err)
	}
	return res.RowsAffected()
}
