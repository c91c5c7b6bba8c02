package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cdlfantasy/league/go/internal/leagues"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/roster"
	"github.com/cdlfantasy/league/go/internal/sqlutil"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Repository is the postgres ScoringRepository. League and lineup reads go
// through the leagues and roster repositories.
type Repository struct {
	db      *sql.DB
	leagues *leagues.Repository
	rosters *roster.Repository
}

// NewRepository creates a new scoring repository
func NewRepository(db *sql.DB, leagueRepo *leagues.Repository, rosterRepo *roster.Repository) *Repository {
	return &Repository{
		db:      db,
		leagues: leagueRepo,
		rosters: rosterRepo,
	}
}

func (r *Repository) GetLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error) {
	return r.leagues.GetLeague(ctx, leagueID)
}

func (r *Repository) UpdateScoringRules(ctx context.Context, leagueID uuid.UUID, rules models.ScoringRules) error {
	return r.leagues.UpdateScoringRules(ctx, leagueID, rules)
}

func (r *Repository) ListFantasyTeams(ctx context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error) {
	return r.leagues.ListFantasyTeams(ctx, leagueID)
}

func (r *Repository) GetScoringPeriod(ctx context.Context, periodID uuid.UUID) (*models.ScoringPeriod, error) {
	return r.leagues.GetScoringPeriod(ctx, periodID)
}

func (r *Repository) ListScoringPeriods(ctx context.Context, leagueID uuid.UUID) ([]models.ScoringPeriod, error) {
	return r.leagues.ListScoringPeriods(ctx, leagueID)
}

func (r *Repository) GetLineup(ctx context.Context, teamID, periodID uuid.UUID) (*models.Lineup, error) {
	return r.rosters.GetLineup(ctx, teamID, periodID)
}

// ListStatLinesForMatch returns every player map line of a match
func (r *Repository) ListStatLinesForMatch(ctx context.Context, matchID uuid.UUID) ([]models.StatLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, match_id, player_id, map_number, kills, deaths, assists, damage,
		       objective_seconds, bomb_plants, bomb_defuses, first_bloods
		FROM stat_lines
		WHERE match_id = $1
		ORDER BY map_number, player_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stat lines: %w", err)
	}
	defer rows.Close()

	var lines []models.StatLine
	for rows.Next() {
		var s models.StatLine
		if err := rows.Scan(&s.ID, &s.MatchID, &s.PlayerID, &s.MapNumber, &s.Kills, &s.Deaths, &s.Assists,
			&s.Damage, &s.ObjectiveSeconds, &s.BombPlants, &s.BombDefuses, &s.FirstBloods); err != nil {
			return nil, fmt.Errorf("failed to scan stat line: %w", err)
		}
		lines = append(lines, s)
	}
	return lines, rows.Err()
}

// UpsertFantasyPoints stores the points for one stat line in one league
func (r *Repository) UpsertFantasyPoints(ctx context.Context, fp models.FantasyPoints) error {
	breakdown, err := json.Marshal(fp.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO fantasy_points (id, league_id, stat_line_id, points, breakdown)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (stat_line_id, league_id)
		DO UPDATE SET points = EXCLUDED.points, breakdown = EXCLUDED.breakdown`,
		fp.ID, fp.LeagueID, fp.StatLineID, fp.Points,
		pqtype.NullRawMessage{RawMessage: breakdown, Valid: true})
	if err != nil {
		return fmt.Errorf("failed to upsert fantasy points: %w", err)
	}
	return nil
}

// ListScoredLines returns stored points for the given players with the time
// of the match each line came from.
func (r *Repository) ListScoredLines(ctx context.Context, leagueID uuid.UUID, playerIDs []uuid.UUID) ([]ScoredLine, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.player_id, s.match_id, m.scheduled_at, fp.points
		FROM fantasy_points fp
		JOIN stat_lines s ON s.id = fp.stat_line_id
		JOIN matches m ON m.id = s.match_id
		WHERE fp.league_id = $1 AND s.player_id = ANY($2::uuid[])`,
		leagueID, sqlutil.UUIDArray(playerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list scored lines: %w", err)
	}
	defer rows.Close()

	var lines []ScoredLine
	for rows.Next() {
		var l ScoredLine
		if err := rows.Scan(&l.PlayerID, &l.MatchID, &l.MatchScheduledAt, &l.Points); err != nil {
			return nil, fmt.Errorf("failed to scan scored line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListCompletedMatches returns completed matches scheduled in [from, to)
func (r *Repository) ListCompletedMatches(ctx context.Context, from, to time.Time) ([]models.Match, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scheduled_at, status
		FROM matches
		WHERE status = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at`, models.MatchStatusCompleted, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.ScheduledAt, &m.Status); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// UpsertTeamTotal stores a team's period totals
func (r *Repository) UpsertTeamTotal(ctx context.Context, t models.TeamTotal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO team_totals (fantasy_team_id, scoring_period_id, starter_points, bench_points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fantasy_team_id, scoring_period_id)
		DO UPDATE SET starter_points = EXCLUDED.starter_points, bench_points = EXCLUDED.bench_points`,
		t.FantasyTeamID, t.ScoringPeriodID, t.StarterPoints, t.BenchPoints)
	if err != nil {
		return fmt.Errorf("failed to upsert team total: %w", err)
	}
	return nil
}

// GetTeamTotal retrieves a team's stored period totals
func (r *Repository) GetTeamTotal(ctx context.Context, teamID, periodID uuid.UUID) (*models.TeamTotal, error) {
	t := models.TeamTotal{FantasyTeamID: teamID, ScoringPeriodID: periodID}
	err := r.db.QueryRowContext(ctx, `
		SELECT starter_points, bench_points
		FROM team_totals
		WHERE fantasy_team_id = $1 AND scoring_period_id = $2`, teamID, periodID).
		Scan(&t.StarterPoints, &t.BenchPoints)
	if err != nil {
		return nil, sqlutil.NotFound(err, "team total")
	}
	return &t, nil
}

const matchupColumns = `id, scoring_period_id, team1_id, team2_id, team1_score, team2_score, winner_id, is_completed`

func scanMatchup(row interface{ Scan(dest ...any) error }) (models.Matchup, error) {
	var (
		m      models.Matchup
		winner uuid.NullUUID
	)
	if err := row.Scan(&m.ID, &m.ScoringPeriodID, &m.Team1ID, &m.Team2ID, &m.Team1Score, &m.Team2Score, &winner, &m.IsCompleted); err != nil {
		return m, err
	}
	m.WinnerID = sqlutil.FromNullUUID(winner)
	return m, nil
}

func (r *Repository) queryMatchups(ctx context.Context, query string, args ...any) ([]models.Matchup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matchups: %w", err)
	}
	defer rows.Close()

	matchups := []models.Matchup{}
	for rows.Next() {
		m, err := scanMatchup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan matchup: %w", err)
		}
		matchups = append(matchups, m)
	}
	return matchups, rows.Err()
}

// ListOpenMatchups returns the period's matchups not yet resolved
func (r *Repository) ListOpenMatchups(ctx context.Context, periodID uuid.UUID) ([]models.Matchup, error) {
	return r.queryMatchups(ctx, `
		SELECT `+matchupColumns+`
		FROM matchups
		WHERE scoring_period_id = $1 AND NOT is_completed
		ORDER BY id`, periodID)
}

// ListMatchups returns every matchup of a period
func (r *Repository) ListMatchups(ctx context.Context, periodID uuid.UUID) ([]models.Matchup, error) {
	return r.queryMatchups(ctx, `
		SELECT `+matchupColumns+`
		FROM matchups
		WHERE scoring_period_id = $1
		ORDER BY id`, periodID)
}

// GetMatchup retrieves a matchup by ID
func (r *Repository) GetMatchup(ctx context.Context, matchupID uuid.UUID) (*models.Matchup, error) {
	m, err := scanMatchup(r.db.QueryRowContext(ctx, `
		SELECT `+matchupColumns+`
		FROM matchups
		WHERE id = $1`, matchupID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("matchup %s: %w", matchupID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get matchup: %w", err)
	}
	return &m, nil
}

type matchupQueries struct {
	db sqlutil.DBTX
}

func newMatchupQueries(db sqlutil.DBTX) *matchupQueries {
	return &matchupQueries{db: db}
}

func (q *matchupQueries) completeMatchup(ctx context.Context, res MatchupResult) error {
	r, err := q.db.ExecContext(ctx, `
		UPDATE matchups
		SET team1_score = $2, team2_score = $3, winner_id = $4, is_completed = TRUE
		WHERE id = $1 AND NOT is_completed`,
		res.MatchupID, res.Team1Score, res.Team2Score, sqlutil.ToNullUUID(res.WinnerID))
	if err != nil {
		return fmt.Errorf("failed to complete matchup: %w", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("matchup %s already resolved: %w", res.MatchupID, models.ErrConflict)
	}
	return nil
}

func (q *matchupQueries) recordResult(ctx context.Context, teamID uuid.UUID, win, loss, tie int, points float64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE fantasy_teams
		SET wins = wins + $2, losses = losses + $3, ties = ties + $4, total_points = total_points + $5
		WHERE id = $1`, teamID, win, loss, tie, points)
	if err != nil {
		return fmt.Errorf("failed to update team record: %w", err)
	}
	return nil
}

// ApplyMatchupResult marks the matchup complete and updates both team
// records in one transaction.
func (r *Repository) ApplyMatchupResult(ctx context.Context, res MatchupResult) error {
	return sqlutil.Run(ctx, r.db, newMatchupQueries, func(q *matchupQueries) error {
		if err := q.completeMatchup(ctx, res); err != nil {
			return err
		}

		var w1, l1, t1, w2, l2, t2 int
		switch {
		case res.IsTie():
			t1, t2 = 1, 1
		case *res.WinnerID == res.Team1ID:
			w1, l2 = 1, 1
		default:
			l1, w2 = 1, 1
		}

		if err := q.recordResult(ctx, res.Team1ID, w1, l1, t1, res.Team1Score); err != nil {
			return err
		}
		return q.recordResult(ctx, res.Team2ID, w2, l2, t2, res.Team2Score)
	})
}
