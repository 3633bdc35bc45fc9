package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/keeper/go/internal/models"
)

// NewOutboxEvent builds an outbox row for a broadcast payload so the relay
// can republish exactly what subscribers saw.
func NewOutboxEvent(leagueID uuid.UUID, event EventType, payload any, at time.Time) (models.OutboxEvent, error) {
	env, err := NewEnvelope(event, leagueID, at, payload)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("outbox %s: %w", event, err)
	}
	return models.OutboxEvent{
		ID:        uuid.New(),
		LeagueID:  leagueID,
		EventType: string(event),
		Payload:   env.Payload,
		CreatedAt: at,
	}, nil
}
