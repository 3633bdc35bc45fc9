package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Pinger is the database liveness probe; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Broker is the broker connectivity probe; *nats.Conn satisfies it.
type Broker interface {
	IsConnected() bool
}

// HealthStatus is the JSON body of the relay health endpoint.
type HealthStatus struct {
	Healthy           bool       `json:"healthy"`
	RelayRunning      bool       `json:"relay_running"`
	DatabaseConnected bool       `json:"database_connected"`
	BrokerConnected   bool       `json:"broker_connected"`
	PendingEvents     int        `json:"pending_events"`
	EventsPublished   uint64     `json:"events_published"`
	LastPublishedAt   *time.Time `json:"last_published_at,omitempty"`
	Errors            []string   `json:"errors,omitempty"`
}

// HealthHandler serves the relay's readiness probe. The relay is unhealthy
// when its loop is not running, a dependency is down, or a backlog sits
// unshipped past the stale threshold.
type HealthHandler struct {
	relay      *Relay
	store      Store
	db         Pinger
	broker     Broker
	staleAfter time.Duration
}

func NewHealthHandler(relay *Relay, store Store, db Pinger, broker Broker) *HealthHandler {
	return &HealthHandler{
		relay:      relay,
		store:      store,
		db:         db,
		broker:     broker,
		staleAfter: 2 * time.Minute,
	}
}

func (h *HealthHandler) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true}

	processed, last := h.relay.Stats()
	status.EventsPublished = processed
	if !last.IsZero() {
		status.LastPublishedAt = &last
	}

	status.RelayRunning = h.relay.Running()
	if !status.RelayRunning {
		status.Healthy = false
		status.Errors = append(status.Errors, "relay not running")
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	status.BrokerConnected = h.broker.IsConnected()
	if !status.BrokerConnected {
		status.Healthy = false
		status.Errors = append(status.Errors, "broker disconnected")
	}

	if status.DatabaseConnected {
		pending, err := h.store.CountUnpublished(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("count pending failed: %v", err))
		} else {
			status.PendingEvents = pending
		}
	}

	// A backlog with no recent publish means rows are stuck, not merely queued.
	if status.PendingEvents > 0 && status.LastPublishedAt != nil {
		if age := time.Since(*status.LastPublishedAt); age > h.staleAfter {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no publish for %s with %d rows pending", age.Round(time.Second), status.PendingEvents))
		}
	}

	return status
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
