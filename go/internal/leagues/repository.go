package leagues

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/sqlutil"
)

// Repository implements league, team and scoring period reads
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new leagues repository
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

const leagueColumns = `id, name, status, roster_size, starter_count, scoring_rules, created_at, updated_at`

// GetLeague retrieves a league by ID
func (r *Repository) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id = $1`, id)

	var (
		l     models.League
		rules []byte
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Status, &l.RosterSize, &l.StarterCount, &rules, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, sqlutil.NotFound(err, "league")
	}
	if err := json.Unmarshal(rules, &l.ScoringRules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoring rules: %w", err)
	}
	return &l, nil
}

// CreateLeague inserts a league in PRE_DRAFT status
func (r *Repository) CreateLeague(ctx context.Context, l models.League) (*models.League, error) {
	rules, err := json.Marshal(l.ScoringRules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scoring rules: %w", err)
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.Status = models.LeagueStatusPreDraft

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO leagues (id, name, status, roster_size, starter_count, scoring_rules)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		l.ID, l.Name, l.Status, l.RosterSize, l.StarterCount, rules)
	if err := row.Scan(&l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}
	return &l, nil
}

// UpdateScoringRules replaces the league's scoring weights
func (r *Repository) UpdateScoringRules(ctx context.Context, leagueID uuid.UUID, rules models.ScoringRules) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to marshal scoring rules: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE leagues SET scoring_rules = $2, updated_at = now() WHERE id = $1`, leagueID, data)
	if err != nil {
		return fmt.Errorf("failed to update scoring rules: %w", err)
	}
	return sqlutil.ExpectOne(res, "league")
}

// ListFantasyTeams returns the league's teams in creation order
func (r *Repository) ListFantasyTeams(ctx context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, league_id, owner_id, name, wins, losses, ties, total_points, created_at
		FROM fantasy_teams
		WHERE league_id = $1
		ORDER BY created_at, id`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fantasy teams: %w", err)
	}
	defer rows.Close()

	var teams []models.FantasyTeam
	for rows.Next() {
		var t models.FantasyTeam
		if err := rows.Scan(&t.ID, &t.LeagueID, &t.OwnerID, &t.Name, &t.Wins, &t.Losses, &t.Ties, &t.TotalPoints, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fantasy team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// GetFantasyTeam retrieves a fantasy team by ID
func (r *Repository) GetFantasyTeam(ctx context.Context, id uuid.UUID) (*models.FantasyTeam, error) {
	var t models.FantasyTeam
	err := r.db.QueryRowContext(ctx, `
		SELECT id, league_id, owner_id, name, wins, losses, ties, total_points, created_at
		FROM fantasy_teams
		WHERE id = $1`, id).
		Scan(&t.ID, &t.LeagueID, &t.OwnerID, &t.Name, &t.Wins, &t.Losses, &t.Ties, &t.TotalPoints, &t.CreatedAt)
	if err != nil {
		return nil, sqlutil.NotFound(err, "fantasy team")
	}
	return &t, nil
}

// CreateFantasyTeam adds a team to a league
func (r *Repository) CreateFantasyTeam(ctx context.Context, t models.FantasyTeam) (*models.FantasyTeam, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO fantasy_teams (id, league_id, owner_id, name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`, t.ID, t.LeagueID, t.OwnerID, t.Name)
	if err := row.Scan(&t.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create fantasy team: %w", err)
	}
	return &t, nil
}

// GetParticipants returns the ids of every team in the league
func (r *Repository) GetParticipants(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error) {
	teams, err := r.ListFantasyTeams(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return ids, nil
}

// GetRosterSize returns how many players each team drafts
func (r *Repository) GetRosterSize(ctx context.Context, leagueID uuid.UUID) (int, error) {
	var size int
	err := r.db.QueryRowContext(ctx, `SELECT roster_size FROM leagues WHERE id = $1`, leagueID).Scan(&size)
	if err != nil {
		return 0, sqlutil.NotFound(err, "league")
	}
	return size, nil
}

const periodColumns = `id, league_id, name, starts_at, ends_at, lock_at, is_completed`

func scanPeriod(row interface{ Scan(...any) error }) (*models.ScoringPeriod, error) {
	var p models.ScoringPeriod
	if err := row.Scan(&p.ID, &p.LeagueID, &p.Name, &p.StartsAt, &p.EndsAt, &p.LockAt, &p.IsCompleted); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetScoringPeriod retrieves a scoring period by ID
func (r *Repository) GetScoringPeriod(ctx context.Context, id uuid.UUID) (*models.ScoringPeriod, error) {
	p, err := scanPeriod(r.db.QueryRowContext(ctx, `SELECT `+periodColumns+` FROM scoring_periods WHERE id = $1`, id))
	if err != nil {
		return nil, sqlutil.NotFound(err, "scoring period")
	}
	return p, nil
}

// ListScoringPeriods returns the league's periods in chronological order
func (r *Repository) ListScoringPeriods(ctx context.Context, leagueID uuid.UUID) ([]models.ScoringPeriod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+periodColumns+` FROM scoring_periods WHERE league_id = $1 ORDER BY starts_at`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring periods: %w", err)
	}
	defer rows.Close()

	var periods []models.ScoringPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scoring period: %w", err)
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}
