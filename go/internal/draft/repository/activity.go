package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/sqlc-dev/pqtype"
)

const insertActivityQuery = `
INSERT INTO activity_log (id, league_id, type, actor_user_id, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// AppendActivity writes one audit row outside of any mutation transaction.
// The composite Store operations write their rows in-transaction instead.
func (s *Store) AppendActivity(ctx context.Context, entry models.ActivityEntry) error {
	if err := s.q.insertActivity(ctx, entry); err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (q *queries) insertActivity(ctx context.Context, entry models.ActivityEntry) error {
	var actor uuid.NullUUID
	if entry.ActorUserID != nil {
		actor = uuid.NullUUID{UUID: *entry.ActorUserID, Valid: true}
	}
	detail := pqtype.NullRawMessage{RawMessage: entry.Detail, Valid: len(entry.Detail) > 0}
	_, err := q.db.ExecContext(ctx, insertActivityQuery,
		entry.ID, entry.LeagueID, entry.Type, actor, detail, entry.CreatedAt,
	)
	return err
}

const listActivityQuery = `
SELECT id, league_id, type, actor_user_id, detail, created_at
FROM activity_log
WHERE league_id = $1
ORDER BY created_at DESC
LIMIT $2`

// ListActivity returns the league's newest audit rows first.
func (s *Store) ListActivity(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, listActivityQuery, leagueID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var (
			e      models.ActivityEntry
			actor  uuid.NullUUID
			detail pqtype.NullRawMessage
		)
		if err := rows.Scan(&e.ID, &e.LeagueID, &e.Type, &actor, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if actor.Valid {
			e.ActorUserID = &actor.UUID
		}
		if detail.Valid {
			e.Detail = detail.RawMessage
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
