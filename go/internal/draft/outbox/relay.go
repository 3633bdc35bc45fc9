// Package outbox relays journal rows to the broker. Coordinators write
// broadcast events into draft_outbox inside the same transaction as the
// mutation; a trigger NOTIFYs the row id and the relay ships the row to
// JetStream, falling back to interval polling for anything a dropped
// notification left behind. WebSocket fanout never passes through here;
// the relay is the durable export for downstream consumers.
package outbox

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/mcdev12/keeper/go/internal/models"
)

// Store is the slice of the persistence layer the relay reads and stamps.
type Store interface {
	GetOutboxEvent(ctx context.Context, id uuid.UUID) (*models.OutboxEvent, error)
	FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	CountUnpublished(ctx context.Context) (int, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Publisher hands one journal row to the broker.
type Publisher interface {
	Publish(ctx context.Context, event models.OutboxEvent) error
}

type Config struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	Channel          string        // notification channel the outbox trigger fires
	FallbackInterval time.Duration // how often to poll for missed rows
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int // max rows per fallback batch
}

func DefaultConfig() Config {
	return Config{
		Channel:          "draft_outbox_events",
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Relay wakes on LISTEN/NOTIFY, fetches the named row, publishes it and
// stamps it published. The fallback poll re-drives rows whose notification
// was lost (relay down, connection reset) so delivery is at-least-once;
// the broker deduplicates on the row id.
type Relay struct {
	store     Store
	publisher Publisher
	listener  *pq.Listener
	cfg       Config
	logger    zerolog.Logger

	running       atomic.Bool
	processed     atomic.Uint64
	lastPublished atomic.Int64 // unix nanos of the most recent publish
}

func NewRelay(store Store, publisher Publisher, cfg Config, logger zerolog.Logger) (*Relay, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("outbox relay requires a database URL")
	}

	r := &Relay{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "outbox_relay").Logger(),
	}

	r.listener = pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				r.logger.Error().Err(err).Int("event", int(ev)).Msg("listener connection event")
			}
		},
	)
	if err := r.listener.Listen(cfg.Channel); err != nil {
		r.listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Channel, err)
	}

	r.logger.Info().Str("channel", cfg.Channel).Msg("listening for outbox notifications")
	return r, nil
}

// Run blocks until ctx is cancelled. It drains the backlog once on entry so
// rows journaled while the relay was down ship before any live traffic.
func (r *Relay) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)

	r.logger.Info().
		Dur("fallback_interval", r.cfg.FallbackInterval).
		Dur("ping_interval", r.cfg.PingInterval).
		Msg("relay started")

	if err := r.drainBacklog(ctx); err != nil {
		r.logger.Error().Err(err).Msg("startup backlog drain failed")
	}

	fallbackTicker := time.NewTicker(r.cfg.FallbackInterval)
	pingTicker := time.NewTicker(r.cfg.PingInterval)
	defer fallbackTicker.Stop()
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("relay shutting down")
			return r.listener.Close()
		case note := <-r.listener.Notify:
			if note == nil {
				// nil means the connection was re-established; the next
				// fallback poll catches anything missed in between.
				continue
			}
			if err := r.handleNotification(ctx, note.Extra); err != nil {
				r.logger.Error().Err(err).Str("payload", note.Extra).Msg("notification handling failed")
			}
		case <-fallbackTicker.C:
			if err := r.drainBacklog(ctx); err != nil {
				r.logger.Error().Err(err).Msg("fallback drain failed")
			}
		case <-pingTicker.C:
			if err := r.listener.Ping(); err != nil {
				r.logger.Error().Err(err).Msg("listener ping failed")
			}
		}
	}
}

// Running reports whether Run is currently looping.
func (r *Relay) Running() bool {
	return r.running.Load()
}

// Stats returns the number of rows published and when the last one shipped.
func (r *Relay) Stats() (processed uint64, lastPublished time.Time) {
	processed = r.processed.Load()
	if nanos := r.lastPublished.Load(); nanos != 0 {
		lastPublished = time.Unix(0, nanos)
	}
	return processed, lastPublished
}

// handleNotification resolves one NOTIFY payload (the outbox row id),
// publishes the row and stamps it. A row the fallback poll already shipped
// is skipped silently.
func (r *Relay) handleNotification(ctx context.Context, payload string) error {
	id, err := uuid.Parse(payload)
	if err != nil {
		return fmt.Errorf("notification payload %q is not a row id: %w", payload, err)
	}

	ev, err := r.store.GetOutboxEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch outbox row: %w", err)
	}
	if ev.PublishedAt != nil {
		r.logger.Debug().Str("event_id", id.String()).Msg("row already published, skipping")
		return nil
	}

	if err := r.publishWithRetry(ctx, *ev); err != nil {
		return err
	}
	if err := r.store.MarkPublished(ctx, []uuid.UUID{id}); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}

	r.recordPublished(1)
	r.logger.Info().
		Str("event_id", id.String()).
		Str("event_type", ev.EventType).
		Msg("published outbox row")
	return nil
}

// drainBacklog ships every unpublished row, oldest first. Rows that fail
// all retries stay unpublished and are retried on the next pass; the rest
// of the batch is not held up behind them.
func (r *Relay) drainBacklog(ctx context.Context) error {
	rows, err := r.store.FetchUnpublished(ctx, r.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch unpublished rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	shipped := make([]uuid.UUID, 0, len(rows))
	for _, ev := range rows {
		if err := r.publishWithRetry(ctx, ev); err != nil {
			r.logger.Error().
				Err(err).
				Str("event_id", ev.ID.String()).
				Str("event_type", ev.EventType).
				Msg("row publish failed, leaving for next pass")
			continue
		}
		shipped = append(shipped, ev.ID)
	}

	if len(shipped) > 0 {
		if err := r.store.MarkPublished(ctx, shipped); err != nil {
			return fmt.Errorf("mark published: %w", err)
		}
		r.recordPublished(len(shipped))
	}

	r.logger.Info().
		Int("total", len(rows)).
		Int("published", len(shipped)).
		Msg("drained outbox backlog")
	return nil
}

// publishWithRetry attempts the publish with linearly growing backoff.
func (r *Relay) publishWithRetry(ctx context.Context, ev models.OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, ev); err != nil {
			lastErr = err
			r.logger.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", ev.ID.String()).
				Msg("publish failed, retrying")
			continue
		}

		if attempt > 0 {
			r.logger.Info().
				Int("attempt", attempt+1).
				Str("event_id", ev.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}

func (r *Relay) recordPublished(n int) {
	r.processed.Add(uint64(n))
	r.lastPublished.Store(time.Now().UnixNano())
}
