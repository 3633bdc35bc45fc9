package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/keeper/go/internal/dbconfig"
	"github.com/mcdev12/keeper/go/internal/draft/outbox"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
)

// fileConfig is the outbox section of the shared config.yaml. The relay
// ignores the server sections; env vars override these values.
type fileConfig struct {
	Outbox struct {
		FallbackInterval string `yaml:"fallback_interval"`
		BatchSize        int    `yaml:"batch_size"`
	} `yaml:"outbox"`
}

func applyFileConfig(cfg *outbox.Config, path string, logger zerolog.Logger) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("could not read config file")
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("could not parse config file")
		return
	}
	if fc.Outbox.FallbackInterval != "" {
		if d, err := time.ParseDuration(fc.Outbox.FallbackInterval); err == nil {
			cfg.FallbackInterval = d
		}
	}
	if fc.Outbox.BatchSize > 0 {
		cfg.BatchSize = fc.Outbox.BatchSize
	}
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Err(err).Msg("could not load .env file")
	}
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		logger = logger.Level(lvl)
	}

	dbCfg := dbconfig.NewConfigFromEnv()
	dsn := dbCfg.DSN()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	logger.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Msg("connected to database")

	store := repository.NewStore(db)

	jsCfg := outbox.DefaultJetStreamConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		jsCfg.URL = url
	}
	publisher, err := outbox.NewJetStreamPublisher(jsCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create JetStream publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("close publisher")
		}
	}()

	relayCfg := outbox.DefaultConfig()
	relayCfg.DatabaseURL = dsn
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	applyFileConfig(&relayCfg, configPath, logger)
	if iv := os.Getenv("FALLBACK_INTERVAL"); iv != "" {
		if d, err := time.ParseDuration(iv); err == nil {
			relayCfg.FallbackInterval = d
		}
	}
	relay, err := outbox.NewRelay(store, publisher, relayCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create outbox relay")
	}

	healthAddr := os.Getenv("HEALTH_ADDR")
	if healthAddr == "" {
		healthAddr = ":8091"
	}
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", outbox.NewHealthHandler(relay, store, db, publisher.Conn()))
	healthSrv := &http.Server{Addr: healthAddr, Handler: mux}
	go func() {
		logger.Info().Str("addr", healthAddr).Msg("health endpoint listening")
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("health server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- relay.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("health server shutdown")
		}
		if err := <-errCh; err != nil {
			logger.Error().Err(err).Msg("relay exited with error")
		}
		logger.Info().Msg("graceful shutdown complete")
	case err := <-errCh:
		logger.Error().Err(err).Msg("relay exited unexpectedly")
		if err := healthSrv.Close(); err != nil {
			logger.Error().Err(err).Msg("health server close")
		}
		os.Exit(1)
	}
}
