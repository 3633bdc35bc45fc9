package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/draft/repository/memory"
	"github.com/mcdev12/keeper/go/internal/models"
)

// capturePublisher records publishes and simulates broker failures per row.
type capturePublisher struct {
	mu        sync.Mutex
	published []models.OutboxEvent
	attempts  map[uuid.UUID]int
	failures  map[uuid.UUID]int
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{
		attempts: make(map[uuid.UUID]int),
		failures: make(map[uuid.UUID]int),
	}
}

func (p *capturePublisher) failNext(id uuid.UUID, times int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[id] = times
}

func (p *capturePublisher) Publish(ctx context.Context, ev models.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts[ev.ID]++
	if p.failures[ev.ID] > 0 {
		p.failures[ev.ID]--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, ev)
	return nil
}

func (p *capturePublisher) events() []models.OutboxEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.OutboxEvent(nil), p.published...)
}

func (p *capturePublisher) attemptCount(id uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[id]
}

func newTestRelay(store Store, pub Publisher) *Relay {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return &Relay{store: store, publisher: pub, cfg: cfg, logger: zerolog.Nop()}
}

// seedOutbox journals one row per event type, a second apart, oldest first.
func seedOutbox(t *testing.T, store *memory.Store, leagueID uuid.UUID, types ...events.EventType) []models.OutboxEvent {
	t.Helper()
	base := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)

	rows := make([]models.OutboxEvent, 0, len(types))
	for i, typ := range types {
		ev, err := events.NewOutboxEvent(leagueID, typ, map[string]int{"seq": i}, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		rows = append(rows, ev)
	}

	err := store.SaveStateTransition(context.Background(), repository.StateTransitionParams{
		State: models.NewDraftState(leagueID, base),
		Activity: models.ActivityEntry{
			ID:        uuid.New(),
			LeagueID:  leagueID,
			Type:      models.ActivityDraftStarted,
			CreatedAt: base,
		},
		Outbox: rows,
	})
	require.NoError(t, err)
	return rows
}

func unpublishedIDs(store *memory.Store) []uuid.UUID {
	var ids []uuid.UUID
	for _, ev := range store.OutboxEvents() {
		if ev.PublishedAt == nil {
			ids = append(ids, ev.ID)
		}
	}
	return ids
}

func TestHandleNotificationPublishesRow(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturePublisher()
	relay := newTestRelay(store, pub)
	leagueID := uuid.New()
	rows := seedOutbox(t, store, leagueID, events.EventTypePickMade)

	err := relay.handleNotification(context.Background(), rows[0].ID.String())
	require.NoError(t, err)

	got := pub.events()
	require.Len(t, got, 1)
	assert.Equal(t, rows[0].ID, got[0].ID)
	assert.Equal(t, leagueID, got[0].LeagueID)
	assert.Equal(t, string(events.EventTypePickMade), got[0].EventType)
	assert.JSONEq(t, string(rows[0].Payload), string(got[0].Payload))

	assert.Empty(t, unpublishedIDs(store))
	processed, last := relay.Stats()
	assert.Equal(t, uint64(1), processed)
	assert.False(t, last.IsZero())
}

func TestHandleNotificationSkipsPublishedRow(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturePublisher()
	relay := newTestRelay(store, pub)
	rows := seedOutbox(t, store, uuid.New(), events.EventTypeDraftStarted)
	require.NoError(t, store.MarkPublished(context.Background(), []uuid.UUID{rows[0].ID}))

	err := relay.handleNotification(context.Background(), rows[0].ID.String())
	require.NoError(t, err)
	assert.Empty(t, pub.events())
}

func TestHandleNotificationRejectsGarbagePayload(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturePublisher()
	relay := newTestRelay(store, pub)

	err := relay.handleNotification(context.Background(), "not-a-row-id")
	require.Error(t, err)
	assert.Empty(t, pub.events())
}

func TestHandleNotificationUnknownRow(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturePublisher()
	relay := newTestRelay(store, pub)

	err := relay.handleNotification(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, pub.events())
}

func TestDrainBacklogShipsOldestFirst(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturePublisher()
	relay := newTestRelay(store, pub)
	rows := seedOutbox(t, store, uuid.New(),
		events.EventTypeDraftStarted, events.EventTypeOnTheClock, events.EventTypePickMade)

	require.NoError(t, relay.drainBacklog(context.Background()))

	got := pub.events()
	require.Len(t, got, 3)
	for i, ev := range got {
		assert.Equal(t, rows[i].ID, ev.ID, "row %d out of order", i)
	}
	assert.Empty(t, unpublishedIDs(store))
	processed, _ := relay.Stats()
	assert.Equal(t, uint64(3), processed)

	// Nothing left for a second pass.
	require.NoError(t, relay.drainBacklog(context.Background()))
	assert.Len(t, pub.events(), 3)
}

func TestDrainBacklogLeavesFailingRowForNextPass(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturePublisher()
	relay := newTestRelay(store, pub)
	rows := seedOutbox(t, store, uuid.New(),
		events.EventTypeDraftStarted, events.EventTypeOnTheClock, events.EventTypePickMade)
	pub.failNext(rows[1].ID, 1000)

	require.NoError(t, relay.drainBacklog(context.Background()))

	got := pub.events()
	require.Len(t, got, 2)
	assert.Equal(t, rows[0].ID, got[0].ID)
	assert.Equal(t, rows[2].ID, got[1].ID)
	require.Equal(t, []uuid.UUID{rows[1].ID}, unpublishedIDs(store))

	// Broker recovers; the stuck row ships on the next pass.
	pub.failNext(rows[1].ID, 0)
	require.NoError(t, relay.drainBacklog(context.Background()))
	assert.Empty(t, unpublishedIDs(store))
	assert.Len(t, pub.events(), 3)
}

func TestPublishRetryRecoversAfterTransientErrors(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturePublisher()
	relay := newTestRelay(store, pub)
	rows := seedOutbox(t, store, uuid.New(), events.EventTypeTradeAccepted)
	pub.failNext(rows[0].ID, 2)

	err := relay.handleNotification(context.Background(), rows[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, pub.attemptCount(rows[0].ID))
	assert.Empty(t, unpublishedIDs(store))
}

func TestPublishRetryGivesUpAfterMaxAttempts(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturePublisher()
	relay := newTestRelay(store, pub)
	relay.cfg.MaxRetries = 2
	rows := seedOutbox(t, store, uuid.New(), events.EventTypeTradeAccepted)
	pub.failNext(rows[0].ID, 1000)

	err := relay.handleNotification(context.Background(), rows[0].ID.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, pub.attemptCount(rows[0].ID))
	require.Equal(t, []uuid.UUID{rows[0].ID}, unpublishedIDs(store))
}

func TestEventSubject(t *testing.T) {
	leagueID := uuid.MustParse("3b9e1dcb-7a20-4e0a-9c37-64f3e7f7a001")
	ev := models.OutboxEvent{LeagueID: leagueID, EventType: string(events.EventTypePickMade)}

	subject := eventSubject("draft.events", ev)
	assert.Equal(t, "draft.events.3b9e1dcb-7a20-4e0a-9c37-64f3e7f7a001.PickMade", subject)
}

func TestExportEnvelopeMatchesBroadcastFrame(t *testing.T) {
	leagueID := uuid.New()
	at := time.Date(2025, 8, 30, 19, 4, 5, 0, time.UTC)
	row, err := events.NewOutboxEvent(leagueID, events.EventTypePickMade, map[string]string{"player": "x"}, at)
	require.NoError(t, err)

	data, err := exportEnvelope(row)
	require.NoError(t, err)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, events.EventTypePickMade, env.Event)
	assert.Equal(t, leagueID, env.LeagueID)
	assert.True(t, env.Timestamp.Equal(at))
	assert.JSONEq(t, string(row.Payload), string(env.Payload))
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

type fakeBroker struct{ connected bool }

func (f fakeBroker) IsConnected() bool { return f.connected }

func checkHealth(t *testing.T, h *HealthHandler) (int, HealthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	return rec.Code, status
}

func TestHealthHandler(t *testing.T) {
	store := memory.NewStore()
	pub := newCapturePublisher()
	seedOutbox(t, store, uuid.New(), events.EventTypeDraftStarted)

	t.Run("healthy", func(t *testing.T) {
		relay := newTestRelay(store, pub)
		relay.running.Store(true)
		relay.recordPublished(2)

		code, status := checkHealth(t, NewHealthHandler(relay, store, fakePinger{}, fakeBroker{connected: true}))
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, status.Healthy)
		assert.True(t, status.RelayRunning)
		assert.True(t, status.DatabaseConnected)
		assert.True(t, status.BrokerConnected)
		assert.Equal(t, 1, status.PendingEvents)
		assert.Equal(t, uint64(2), status.EventsPublished)
		assert.Empty(t, status.Errors)
	})

	t.Run("relay not running", func(t *testing.T) {
		relay := newTestRelay(store, pub)

		code, status := checkHealth(t, NewHealthHandler(relay, store, fakePinger{}, fakeBroker{connected: true}))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.False(t, status.Healthy)
		assert.Contains(t, status.Errors, "relay not running")
	})

	t.Run("database down", func(t *testing.T) {
		relay := newTestRelay(store, pub)
		relay.running.Store(true)

		code, status := checkHealth(t, NewHealthHandler(relay, store, fakePinger{err: errors.New("refused")}, fakeBroker{connected: true}))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.False(t, status.DatabaseConnected)
		assert.Zero(t, status.PendingEvents)
	})

	t.Run("broker down", func(t *testing.T) {
		relay := newTestRelay(store, pub)
		relay.running.Store(true)

		code, status := checkHealth(t, NewHealthHandler(relay, store, fakePinger{}, fakeBroker{}))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.False(t, status.BrokerConnected)
		assert.Contains(t, status.Errors, "broker disconnected")
	})

	t.Run("stale backlog", func(t *testing.T) {
		relay := newTestRelay(store, pub)
		relay.running.Store(true)
		relay.processed.Store(5)
		relay.lastPublished.Store(time.Now().Add(-10 * time.Minute).UnixNano())

		code, status := checkHealth(t, NewHealthHandler(relay, store, fakePinger{}, fakeBroker{connected: true}))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.False(t, status.Healthy)
		require.Len(t, status.Errors, 1)
		assert.Contains(t, status.Errors[0], "rows pending")
	})
}
