package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/keeper/go/internal/dbconfig"
)

// Player mirrors the catalog JSON layout. IDs are fixed in the file so
// reseeding is a no-op for rows already present.
type Player struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Position     string    `json:"position"`
	NFLTeam      string    `json:"nfl_team"`
	Rank         *int      `json:"rank"`
	ADP          *float64  `json:"adp"`
	ByeWeek      *int      `json:"bye_week"`
	InjuryStatus string    `json:"injury_status"`
	Active       bool      `json:"active"`
}

func main() {
	ctx := context.Background()

	path := os.Getenv("PLAYERS_JSON")
	if path == "" {
		path = "go/internal/assets/players.json"
	}

	// 1) Load the catalog snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var players []Player
	if err := json.Unmarshal(data, &players); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal players: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert and count
	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		if p.InjuryStatus == "" {
			p.InjuryStatus = "HEALTHY"
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO players (
              id, full_name, position, nfl_team,
              rank, adp, bye_week, injury_status, active
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
            ON CONFLICT (id) DO NOTHING
        `,
			p.ID, p.FullName, p.Position, p.NFLTeam,
			p.Rank, p.ADP, p.ByeWeek, p.InjuryStatus, p.Active,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting player %s: %v\n", p.ID, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
