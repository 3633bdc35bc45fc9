package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/keeper/go/internal/models"
)

const getTeamQueueQuery = `
SELECT league_id, team_id, player_ids, updated_at
FROM team_queues
WHERE league_id = $1 AND team_id = $2`

// GetTeamQueue returns the team's wish-list, or an empty queue when none has
// been saved yet.
func (s *Store) GetTeamQueue(ctx context.Context, leagueID, teamID uuid.UUID) (*models.TeamQueue, error) {
	queue, err := scanTeamQueue(s.db.QueryRowContext(ctx, getTeamQueueQuery, leagueID, teamID))
	if errors.Is(err, ErrNotFound) {
		return &models.TeamQueue{LeagueID: leagueID, TeamID: teamID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team queue: %w", err)
	}
	return queue, nil
}

const listTeamQueuesQuery = `
SELECT league_id, team_id, player_ids, updated_at
FROM team_queues
WHERE league_id = $1`

// ListTeamQueues returns every saved queue in the league.
func (s *Store) ListTeamQueues(ctx context.Context, leagueID uuid.UUID) ([]models.TeamQueue, error) {
	queues, err := s.q.listTeamQueues(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team queues: %w", err)
	}
	return queues, nil
}

func (q *queries) listTeamQueues(ctx context.Context, leagueID uuid.UUID) ([]models.TeamQueue, error) {
	rows, err := q.db.QueryContext(ctx, listTeamQueuesQuery, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queues []models.TeamQueue
	for rows.Next() {
		queue, err := scanTeamQueue(rows)
		if err != nil {
			return nil, err
		}
		queues = append(queues, *queue)
	}
	return queues, rows.Err()
}

const upsertTeamQueueQuery = `
INSERT INTO team_queues (league_id, team_id, player_ids, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (league_id, team_id) DO UPDATE SET
    player_ids = EXCLUDED.player_ids,
    updated_at = EXCLUDED.updated_at`

// UpsertTeamQueue replaces the team's wish-list wholesale.
func (s *Store) UpsertTeamQueue(ctx context.Context, queue *models.TeamQueue) error {
	_, err := s.db.ExecContext(ctx, upsertTeamQueueQuery,
		queue.LeagueID, queue.TeamID, pq.Array(queue.PlayerIDs), queue.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team queue: %w", err)
	}
	return nil
}

func scanTeamQueue(row scanner) (*models.TeamQueue, error) {
	var (
		queue models.TeamQueue
		ids   pq.StringArray
	)
	err := row.Scan(&queue.LeagueID, &queue.TeamID, &ids, &queue.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	queue.PlayerIDs = make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse queued player id %q: %w", raw, err)
		}
		queue.PlayerIDs = append(queue.PlayerIDs, id)
	}
	return &queue, nil
}
