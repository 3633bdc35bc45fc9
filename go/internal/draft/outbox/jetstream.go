package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/mcdev12/keeper/go/internal/draft/events"
	"github.com/mcdev12/keeper/go/internal/models"
)

type JetStreamConfig struct {
	URL             string
	Stream          string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // how long the stream keeps messages
	MaxMsgs         int64
	Replicas        int
	DuplicateWindow time.Duration // dedupe window for Nats-Msg-Id
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		Stream:          "DRAFT_EVENTS",
		SubjectPrefix:   "draft.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// JetStreamPublisher ships outbox rows to a JetStream stream, one subject
// per league and event type. The row id doubles as Nats-Msg-Id so redelivery
// by the relay is collapsed inside the duplicate window.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    JetStreamConfig
	logger zerolog.Logger
}

func NewJetStreamPublisher(cfg JetStreamConfig, logger zerolog.Logger) (*JetStreamPublisher, error) {
	logger = logger.With().Str("component", "jetstream_publisher").Logger()

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, cfg: cfg, logger: logger}

	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.cfg.Stream,
		Description: "Durable export of draft room events",
		Subjects:    []string{fmt.Sprintf("%s.>", p.cfg.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.cfg.MaxAge,
		MaxMsgs:     p.cfg.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    p.cfg.Replicas,
		Duplicates:  p.cfg.DuplicateWindow,
	}

	stream, err := p.js.Stream(ctx, p.cfg.Stream)
	if err != nil {
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		p.logger.Info().Str("stream", p.cfg.Stream).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !streamConfigEqual(info.Config, sc) {
		if _, err = p.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		p.logger.Info().Str("stream", p.cfg.Stream).Msg("updated JetStream stream")
	}
	return nil
}

// Publish sends one row as the same wire envelope room subscribers saw.
func (p *JetStreamPublisher) Publish(ctx context.Context, ev models.OutboxEvent) error {
	data, err := exportEnvelope(ev)
	if err != nil {
		return err
	}
	subject := eventSubject(p.cfg.SubjectPrefix, ev)

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{ev.EventType},
			"League-ID":  []string{ev.LeagueID.String()},
			"Event-ID":   []string{ev.ID.String()},
		},
	},
		jetstream.WithMsgID(ev.ID.String()),
		jetstream.WithExpectStream(p.cfg.Stream),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	p.logger.Debug().
		Str("subject", subject).
		Str("event_id", ev.ID.String()).
		Uint64("sequence", ack.Sequence).
		Msg("published to JetStream")
	return nil
}

// Conn exposes the underlying connection for health probes.
func (p *JetStreamPublisher) Conn() *nats.Conn {
	return p.nc
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// eventSubject scopes each row under its league so consumers can subscribe
// to one room (draft.events.<league>.>) or one event type across rooms.
func eventSubject(prefix string, ev models.OutboxEvent) string {
	return fmt.Sprintf("%s.%s.%s", prefix, ev.LeagueID, ev.EventType)
}

// exportEnvelope rebuilds the broadcast frame from the journal row, so a
// downstream consumer decodes exactly what WebSocket subscribers received.
func exportEnvelope(ev models.OutboxEvent) ([]byte, error) {
	env := events.Envelope{
		Event:     events.EventType(ev.EventType),
		LeagueID:  ev.LeagueID,
		Timestamp: ev.CreatedAt,
		Payload:   ev.Payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal export envelope: %w", err)
	}
	return data, nil
}

func streamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}
