package main

import (
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/mcdev12/keeper/go/internal/api"
	"github.com/mcdev12/keeper/go/internal/auth"
	"github.com/mcdev12/keeper/go/internal/draft/coordinator"
	"github.com/mcdev12/keeper/go/internal/draft/gateway"
	"github.com/mcdev12/keeper/go/internal/draft/repository"
	"github.com/mcdev12/keeper/go/internal/draft/snapshot"
	"github.com/mcdev12/keeper/go/internal/draft/trade"
	"github.com/mcdev12/keeper/go/internal/leagues"
	"github.com/mcdev12/keeper/go/internal/players"
	"github.com/mcdev12/keeper/go/internal/roster"
	"github.com/mcdev12/keeper/go/internal/teams"
)

type Services struct {
	Registry *coordinator.Registry
	Gateway  *gateway.Handler
	API      *api.Handler
}

func setupServices(database *sql.DB, config *Config, logger zerolog.Logger) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Store → App layer → Transport layer

	store := repository.NewStore(database)
	authApp := auth.NewApp(store)
	clock := clockwork.NewRealClock()

	autopick, err := autopickStrategy(config.Draft.AutopickStrategy)
	if err != nil {
		return nil, err
	}

	hub := gateway.NewHub(gateway.DefaultConfig(), logger)
	registry := coordinator.NewRegistry(coordinator.RegistryConfig{
		Store:     store,
		Trades:    trade.NewEngine(store),
		Snapshots: snapshot.NewBuilder(store, clock),
		Bus:       hub,
		Clock:     clock,
		AutoPick:  autopick,
		Logger:    logger,
	})

	return &Services{
		Registry: registry,
		Gateway:  gateway.NewHandler(authApp, registry, snapshot.NewBuilder(store, clock), hub, logger),
		API:      api.NewHandler(authApp, leagues.NewApp(store), teams.NewApp(store), players.NewApp(store), roster.NewApp(store), logger),
	}, nil
}

func autopickStrategy(name string) (coordinator.AutoPickStrategy, error) {
	switch name {
	case "best_available":
		return coordinator.BestAvailableStrategy{}, nil
	case "random":
		return coordinator.NewRandomStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown autopick strategy %q", name)
	}
}
