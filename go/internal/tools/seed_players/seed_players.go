package main

import (
	"context"
	"flag"
	"os"

	"github.com/cdlfantasy/league/go/internal/dbconfig"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/player"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const upsertPlayer = `
INSERT INTO players (id, gamer_tag, full_name, team_name, role, average_draft_position, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (gamer_tag) DO UPDATE SET
    full_name = EXCLUDED.full_name,
    team_name = EXCLUDED.team_name,
    role = EXCLUDED.role,
    average_draft_position = EXCLUDED.average_draft_position,
    is_active = EXCLUDED.is_active`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	path := flag.String("file", "go/internal/assets/cdl_players.yaml", "player catalog YAML")
	migrate := flag.Bool("migrate", false, "apply the schema before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	ctx := context.Background()

	players, err := player.LoadCatalog(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	cfg := dbconfig.NewConfigFromEnv()
	if *migrate {
		db, err := cfg.Open(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect")
		}
		if err := dbconfig.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate")
		}
		_ = db.Close()
	}

	pool, err := cfg.OpenPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	defer pool.Close()

	inserted, errs := seed(ctx, pool, players)
	log.Info().
		Int("total", len(players)).
		Int("upserted", inserted).
		Int("errors", errs).
		Msg("players seeded")
	if errs > 0 {
		os.Exit(1)
	}
}

// seed upserts every player in one batch round trip.
func seed(ctx context.Context, pool *pgxpool.Pool, players []models.Player) (int, int) {
	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(upsertPlayer,
			p.ID, p.GamerTag, p.FullName, p.TeamName, p.Role, p.AverageDraftPosition, p.IsActive)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	upserted, errs := 0, 0
	for _, p := range players {
		if _, err := results.Exec(); err != nil {
			log.Error().Err(err).Str("gamer_tag", p.GamerTag).Msg("failed to upsert player")
			errs++
			continue
		}
		upserted++
	}
	return upserted, errs
}
