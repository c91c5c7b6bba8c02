package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cdlfantasy/league/go/internal/dbconfig"
	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/cdlfantasy/league/go/internal/draft/gateway"
	"github.com/cdlfantasy/league/go/internal/draft/orchestrator"
	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/cdlfantasy/league/go/internal/leagues"
	"github.com/cdlfantasy/league/go/internal/memstore"
	"github.com/cdlfantasy/league/go/internal/player"
	"github.com/cdlfantasy/league/go/internal/roster"
	"github.com/cdlfantasy/league/go/internal/scoring"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// leagueStore is the league lookups both the draft and roster apps use.
type leagueStore interface {
	draft.LeagueStore
	roster.LeagueReader
}

type outboxStore interface {
	outbox.OutboxRepository
	outbox.RelayRepository
}

// stores is one storage backend seen through every repository interface.
type stores struct {
	drafts  draft.DraftRepository
	drafted draft.RosterStore
	players draft.PlayerCatalog
	leagues leagueStore
	outbox  outboxStore
	rosters roster.RosterRepository
	scoring scoring.ScoringRepository

	// dsn is set for postgres, which also gets a LISTEN wake-up.
	dsn   string
	close func() error
}

func openStores(ctx context.Context, cfg *Config) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		return openMemoryStores(cfg)
	}
	return openPostgresStores(ctx)
}

func openPostgresStores(ctx context.Context) (*stores, error) {
	dbCfg := dbconfig.NewConfigFromEnv()
	db, err := dbCfg.Open(ctx)
	if err != nil {
		return nil, err
	}
	if getEnvAsBool("DB_MIGRATE", true) {
		if err := dbconfig.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return postgresStores(db, dbCfg.DSN()), nil
}

// postgresStores wires the database layer to the repository layer
func postgresStores(db *sql.DB, dsn string) *stores {
	draftRepo := draft.NewRepository(db)
	leagueRepo := leagues.NewRepository(db)
	rosterRepo := roster.NewRepository(db)

	return &stores{
		drafts:  draftRepo,
		drafted: draftRepo,
		players: player.NewRepository(db),
		leagues: leagueRepo,
		outbox:  outbox.NewRepository(db),
		rosters: rosterRepo,
		scoring: scoring.NewRepository(db, leagueRepo, rosterRepo),
		dsn:     dsn,
		close:   db.Close,
	}
}

func openMemoryStores(cfg *Config) (*stores, error) {
	s := memstore.New()
	if err := seedMemoryStore(s, cfg.File); err != nil {
		return nil, err
	}
	log.Warn().Msg("using in-memory store; state is lost on restart")

	return &stores{
		drafts:  s,
		drafted: s,
		players: s,
		leagues: s,
		outbox:  s,
		rosters: s,
		scoring: s,
		close:   func() error { return nil },
	}, nil
}

// seedMemoryStore loads the player catalog and league fixtures.
func seedMemoryStore(s *memstore.Store, file FileConfig) error {
	if file.Seed.PlayersFile != "" {
		players, err := player.LoadCatalog(file.Seed.PlayersFile)
		if err != nil {
			return err
		}
		for _, p := range players {
			s.AddPlayer(p)
		}
		log.Info().Int("players", len(players)).Msg("loaded player catalog")
	}

	for _, f := range file.Seed.Leagues {
		if f.RosterSize <= 0 || f.StarterCount <= 0 || f.StarterCount > f.RosterSize {
			return fmt.Errorf("league fixture %q: invalid roster_size/starter_count", f.Name)
		}
		league, teams := s.SeedLeague(f.Name, f.RosterSize, f.StarterCount, scoring.DefaultRules(), f.Teams...)
		for _, team := range teams {
			log.Info().
				Str("league_id", league.ID.String()).
				Str("fantasy_team_id", team.ID.String()).
				Str("team", team.Name).
				Msg("seeded fantasy team")
		}
		log.Info().Str("league_id", league.ID.String()).Str("name", f.Name).Msg("seeded league")
	}
	return nil
}

// Services holds every long-running component and RPC service.
type Services struct {
	Draft   *draft.Service
	Scoring *scoring.Service
	Roster  *roster.Service
	Gateway *gateway.Service

	DraftApp     *draft.App
	Scheduler    *orchestrator.Scheduler
	Orchestrator *orchestrator.Orchestrator
	Relay        *outbox.Relay
	Connections  *gateway.ConnectionManager
}

// setupServices wires repository layer → app layer → service layer. The
// relay's publisher is chosen by the caller.
func setupServices(cfg *Config, st *stores, publisher func(*gateway.ConnectionManager) outbox.EventPublisher, clock clockwork.Clock) *Services {
	gwCfg := gateway.DefaultConfig()
	connections := gateway.NewConnectionManager(gwCfg.ConnectionConfig)

	relayCfg := outbox.DefaultConfig()
	relayCfg.PollInterval = cfg.OutboxPollInterval
	relay := outbox.NewRelay(st.outbox, publisher(connections), relayCfg, clock)

	scheduler := orchestrator.NewScheduler(clock, cfg.SchedulerWorkers*4)

	// Draft
	draftApp := draft.NewApp(st.drafts, st.drafted, st.players, st.leagues, scheduler, relay, clock)
	draftService := draft.NewService(draftApp)

	// Auto-pick
	outboxApp := outbox.NewApp(st.outbox, relay, clock)
	strategy := orchestrator.NewStrategy(cfg.File.Draft.AutopickStrategy)
	if cfg.File.Draft.AutopickStrategy == "random" && cfg.File.Draft.AutopickSeed != 0 {
		strategy = orchestrator.NewRandomStrategy(cfg.File.Draft.AutopickSeed)
	}
	orch := orchestrator.NewOrchestrator(draftApp, strategy, outboxApp, scheduler, clock, cfg.SchedulerWorkers)

	// Roster
	rosterApp := roster.NewApp(st.rosters, st.leagues, clock)

	// Scoring
	scoringApp := scoring.NewApp(st.scoring)

	return &Services{
		Draft:        draftService,
		Scoring:      scoring.NewService(scoringApp),
		Roster:       roster.NewService(rosterApp),
		Gateway:      gateway.NewService(connections, draftApp, draftApp, clock),
		DraftApp:     draftApp,
		Scheduler:    scheduler,
		Orchestrator: orch,
		Relay:        relay,
		Connections:  connections,
	}
}
