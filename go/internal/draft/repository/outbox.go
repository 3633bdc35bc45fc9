package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/keeper/go/internal/models"
	"github.com/mcdev12/keeper/go/internal/sqlutil"
)

const insertOutboxQuery = `
INSERT INTO draft_outbox (id, league_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`

// insertOutbox journals one event row. Only composite transactions call
// this; a standalone outbox write would defeat the point of the pattern.
func (q *queries) insertOutbox(ctx context.Context, events []models.OutboxEvent) error {
	for _, ev := range events {
		_, err := q.db.ExecContext(ctx, insertOutboxQuery,
			ev.ID, ev.LeagueID, ev.EventType, []byte(ev.Payload), ev.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
	}
	return nil
}

const getOutboxEventQuery = `
SELECT id, league_id, event_type, payload, created_at, published_at
FROM draft_outbox
WHERE id = $1`

// GetOutboxEvent fetches one journal row, typically in response to a
// LISTEN/NOTIFY wakeup carrying the row id.
func (s *Store) GetOutboxEvent(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error) {
	ev, err := scanOutboxEvent(s.db.QueryRowContext(ctx, getOutboxEventQuery, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox event: %w", err)
	}
	return ev, nil
}

const fetchUnpublishedQuery = `
SELECT id, league_id, event_type, payload, created_at, published_at
FROM draft_outbox
WHERE published_at IS NULL
ORDER BY created_at ASC
LIMIT $1`

// FetchUnpublished returns journal rows not yet handed to the broker,
// oldest first. The relay's fallback poll drains anything a missed
// notification left behind.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	rows, err := s.db.QueryContext(ctx, fetchUnpublishedQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unpublished outbox events: %w", err)
	}
	defer rows.Close()

	var events []models.OutboxEvent
	for rows.Next() {
		ev, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

const countUnpublishedQuery = `
SELECT COUNT(*) FROM draft_outbox WHERE published_at IS NULL`

// CountUnpublished reports the relay backlog for health checks.
func (s *Store) CountUnpublished(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, countUnpublishedQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unpublished outbox events: %w", err)
	}
	return count, nil
}

const markPublishedQuery = `
UPDATE draft_outbox SET published_at = now()
WHERE id = ANY($1::uuid[]) AND published_at IS NULL`

// MarkPublished stamps the given journal rows as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, markPublishedQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to mark outbox events published: %w", err)
	}
	return nil
}

func scanOutboxEvent(row scanner) (*models.OutboxEvent, error) {
	var (
		ev          models.OutboxEvent
		payload     []byte
		publishedAt sql.NullTime
	)
	err := row.Scan(&ev.ID, &ev.LeagueID, &ev.EventType, &payload, &ev.CreatedAt, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ev.Payload = payload
	ev.PublishedAt = sqlutil.FromSqlTime(publishedAt)
	return &ev, nil
}
