package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/keeper/go/internal/dbconfig"
)

// Demo league shape. Adjust here rather than via flags; this tool exists to
// get a joinable draft room up in one command. Run seed_players first so the
// keeper assignments have a catalog to draw from.
const (
	leagueName     = "Demo Keeper League"
	teamCount      = 4
	totalRounds    = 8
	timerSeconds   = 60
	reserveSeconds = 120
	maxKeepers     = 2
	season         = 2025

	rosterTemplate = `{"starters":{"QB":1,"RB":2,"WR":2,"TE":1,"FLEX":1},"bench":5}`
)

var teamNames = []string{"Granite Gridiron", "Harbor Hawks", "Prairie Stampede", "Ironwood Elks"}

func main() {
	ctx := context.Background()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "begin tx: %v\n", err)
		os.Exit(1)
	}
	defer tx.Rollback(ctx)

	// 1) Users and tokens. Upserts keyed on username keep reruns working;
	// each run still provisions a fresh league below.
	upsertUser := func(username string) uuid.UUID {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
            INSERT INTO users (username, email)
            VALUES ($1, $2)
            ON CONFLICT (username) DO UPDATE SET email = EXCLUDED.email
            RETURNING id
        `, username, username+"@example.com").Scan(&id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "upsert user %s: %v\n", username, err)
			os.Exit(1)
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO api_tokens (token, user_id)
            VALUES ($1, $2)
            ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id
        `, username+"-token", id); err != nil {
			fmt.Fprintf(os.Stderr, "upsert token for %s: %v\n", username, err)
			os.Exit(1)
		}
		return id
	}

	commissionerID := upsertUser("demo-commish")
	ownerIDs := make([]uuid.UUID, teamCount)
	for i := range ownerIDs {
		ownerIDs[i] = upsertUser(fmt.Sprintf("demo-owner-%d", i+1))
	}

	// 2) League
	var leagueID uuid.UUID
	err = tx.QueryRow(ctx, `
        INSERT INTO leagues (
          name, sport_id, commissioner_user_id, max_teams, roster_template,
          draft_type, total_rounds, timer_seconds, reserve_seconds,
          pause_on_trade, max_keepers, current_season
        ) VALUES ($1,'nfl',$2,$3,$4,'SNAKE',$5,$6,$7,TRUE,$8,$9)
        RETURNING id
    `, leagueName, commissionerID, teamCount, rosterTemplate,
		totalRounds, timerSeconds, reserveSeconds, maxKeepers, season).Scan(&leagueID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert league: %v\n", err)
		os.Exit(1)
	}

	// 3) Teams in draft order
	teamIDs := make([]uuid.UUID, teamCount)
	for i := 0; i < teamCount; i++ {
		err := tx.QueryRow(ctx, `
            INSERT INTO teams (league_id, name, owner_user_id, draft_position)
            VALUES ($1, $2, $3, $4)
            RETURNING id
        `, leagueID, teamNames[i%len(teamNames)], ownerIDs[i], i+1).Scan(&teamIDs[i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert team %d: %v\n", i+1, err)
			os.Exit(1)
		}
	}

	// 4) One keeper per team from the top of the catalog
	rows, err := tx.Query(ctx, `
        SELECT id FROM players
        WHERE active
        ORDER BY rank ASC NULLS LAST, id ASC
        LIMIT $1
    `, teamCount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query players: %v\n", err)
		os.Exit(1)
	}
	var keeperPlayers []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			fmt.Fprintf(os.Stderr, "scan player: %v\n", err)
			os.Exit(1)
		}
		keeperPlayers = append(keeperPlayers, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read players: %v\n", err)
		os.Exit(1)
	}

	keepers := 0
	for i, playerID := range keeperPlayers {
		if _, err := tx.Exec(ctx, `
            INSERT INTO roster_entries (league_id, team_id, player_id, is_keeper, keeper_round, acquired_via)
            VALUES ($1, $2, $3, TRUE, 3, 'KEEPER')
        `, leagueID, teamIDs[i%teamCount], playerID); err != nil {
			fmt.Fprintf(os.Stderr, "insert keeper: %v\n", err)
			os.Exit(1)
		}
		keepers++
	}

	if err := tx.Commit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "commit: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("League seed complete: league=%s teams=%d users=%d keepers=%d\n",
		leagueID, teamCount, teamCount+1, keepers)
	if keepers == 0 {
		fmt.Println("No players in catalog; run seed_players for keeper assignments.")
	}
	fmt.Println("Tokens:")
	fmt.Println("  demo-commish-token (commissioner)")
	for i := 0; i < teamCount; i++ {
		fmt.Printf("  demo-owner-%d-token (%s)\n", i+1, teamNames[i%len(teamNames)])
	}
	fmt.Printf("Connect: ws://localhost:8080/ws?league_id=%s&token=demo-owner-1-token\n", leagueID)
}
