package draft

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/sqlutil"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	constraintDraftLeague = "drafts_league_id_key"
	constraintPickNumber  = "draft_picks_pick_number_key"
	constraintPickPlayer  = "draft_picks_player_key"
)

// Repository is the postgres draft store. Every state transition runs in one
// transaction together with its outbox rows.
type Repository struct {
	db *sql.DB
	*queries
}

// NewRepository creates a new draft repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, queries: newQueries(db)}
}

// queries holds the statements that may run inside a transaction.
type queries struct {
	db     sqlutil.DBTX
	outbox *outbox.Queries
}

func newQueries(db sqlutil.DBTX) *queries {
	return &queries{db: db, outbox: outbox.NewQueries(db)}
}

const draftColumns = `id, league_id, status, draft_order, seconds_per_pick, current_pick, current_round,
	started_at, completed_at, created_at, updated_at`

func scanDraft(row interface{ Scan(...any) error }) (*models.Draft, error) {
	var (
		d           models.Draft
		order       pq.StringArray
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.LeagueID, &d.Status, &order, &d.SecondsPerPick, &d.CurrentPick, &d.CurrentRound,
		&startedAt, &completedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	ids, err := sqlutil.ParseUUIDArray(order)
	if err != nil {
		return nil, fmt.Errorf("failed to parse draft order: %w", err)
	}
	d.DraftOrder = ids
	d.StartedAt = sqlutil.FromNullTime(startedAt)
	d.CompletedAt = sqlutil.FromNullTime(completedAt)
	return &d, nil
}

// CreateDraft inserts a NOT_STARTED draft. It returns models.ErrConflict if
// the league already has one.
func (r *Repository) CreateDraft(ctx context.Context, d models.Draft) (*models.Draft, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO drafts (id, league_id, status, seconds_per_pick, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+draftColumns,
		d.ID, d.LeagueID, d.Status, d.SecondsPerPick, d.CreatedAt, d.UpdatedAt)
	created, err := scanDraft(row)
	if sqlutil.IsUniqueViolation(err, constraintDraftLeague) {
		return nil, fmt.Errorf("draft for league %s: %w", d.LeagueID, models.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	return created, nil
}

// GetDraft retrieves a draft by ID
func (r *Repository) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	d, err := scanDraft(r.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id))
	if err != nil {
		return nil, sqlutil.NotFound(err, "draft")
	}
	return d, nil
}

// GetDraftByLeague retrieves the league's draft
func (r *Repository) GetDraftByLeague(ctx context.Context, leagueID uuid.UUID) (*models.Draft, error) {
	d, err := scanDraft(r.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE league_id = $1`, leagueID))
	if err != nil {
		return nil, sqlutil.NotFound(err, "draft")
	}
	return d, nil
}

// ListDraftsByStatus returns drafts in the given status, oldest first
func (r *Repository) ListDraftsByStatus(ctx context.Context, status models.DraftStatus) ([]models.Draft, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []models.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, *d)
	}
	return drafts, rows.Err()
}

// StartDraft moves a NOT_STARTED draft to pick 1 and writes its events.
func (r *Repository) StartDraft(ctx context.Context, c StartCommit) error {
	return sqlutil.Run(ctx, r.db, newQueries, func(q *queries) error {
		res, err := q.db.ExecContext(ctx, `
			UPDATE drafts
			SET status = $2, draft_order = $3, current_pick = 1, current_round = 1,
			    started_at = $4, updated_at = $4
			WHERE id = $1 AND status = $5`,
			c.DraftID, models.DraftStatusInProgress, sqlutil.UUIDArray(c.DraftOrder), c.StartedAt,
			models.DraftStatusNotStarted)
		if err != nil {
			return fmt.Errorf("failed to start draft: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("draft %s: %w", c.DraftID, models.ErrConflict)
		}
		if err := q.setLeagueStatus(ctx, c.LeagueID, models.LeagueStatusDrafting); err != nil {
			return err
		}
		return q.insertEvents(ctx, c.Events)
	})
}

// CommitPick applies one pick if the draft is still on c.ExpectedPick.
func (r *Repository) CommitPick(ctx context.Context, c PickCommit) error {
	return sqlutil.Run(ctx, r.db, newQueries, func(q *queries) error {
		var res sql.Result
		var err error
		if c.Completed {
			res, err = q.db.ExecContext(ctx, `
				UPDATE drafts
				SET status = $3, completed_at = $4, updated_at = $4
				WHERE id = $1 AND current_pick = $2 AND status = $5`,
				c.DraftID, c.ExpectedPick, models.DraftStatusCompleted, c.At, models.DraftStatusInProgress)
		} else {
			res, err = q.db.ExecContext(ctx, `
				UPDATE drafts
				SET current_pick = $3, current_round = $4, updated_at = $5
				WHERE id = $1 AND current_pick = $2 AND status = $6`,
				c.DraftID, c.ExpectedPick, c.NextPick, c.NextRound, c.At, models.DraftStatusInProgress)
		}
		if err != nil {
			return fmt.Errorf("failed to advance draft: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("draft %s pick %d: %w", c.DraftID, c.ExpectedPick, models.ErrStalePick)
		}

		if err := q.insertPick(ctx, c.Pick); err != nil {
			return err
		}
		if err := q.insertRosterEntry(ctx, c.RosterEntry); err != nil {
			return err
		}
		if c.Completed {
			if err := q.setLeagueStatus(ctx, c.LeagueID, models.LeagueStatusInSeason); err != nil {
				return err
			}
		}
		return q.insertEvents(ctx, c.Events)
	})
}

// ListDraftPicks returns a draft's picks in pick order
func (r *Repository) ListDraftPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, draft_id, team_id, player_id, pick_number, round, is_auto_pick, picked_at
		FROM draft_picks
		WHERE draft_id = $1
		ORDER BY pick_number`, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft picks: %w", err)
	}
	defer rows.Close()

	var picks []models.DraftPick
	for rows.Next() {
		var p models.DraftPick
		if err := rows.Scan(&p.ID, &p.DraftID, &p.TeamID, &p.PlayerID, &p.PickNumber, &p.Round, &p.IsAutoPick, &p.PickedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft pick: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// ListDraftedPlayerIDs returns every player already taken in the draft
func (r *Repository) ListDraftedPlayerIDs(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT player_id FROM draft_picks WHERE draft_id = $1`, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafted players: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *queries) insertPick(ctx context.Context, p models.DraftPick) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO draft_picks (id, draft_id, team_id, player_id, pick_number, round, is_auto_pick, picked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.DraftID, p.TeamID, p.PlayerID, p.PickNumber, p.Round, p.IsAutoPick, p.PickedAt)
	switch {
	case sqlutil.IsUniqueViolation(err, constraintPickNumber):
		return fmt.Errorf("pick %d: %w", p.PickNumber, models.ErrStalePick)
	case sqlutil.IsUniqueViolation(err, constraintPickPlayer):
		return fmt.Errorf("player %s: %w", p.PlayerID, models.ErrDuplicatePlayer)
	case err != nil:
		return fmt.Errorf("failed to insert draft pick: %w", err)
	}
	return nil
}

func (q *queries) insertRosterEntry(ctx context.Context, e models.RosterEntry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO roster_entries (id, fantasy_team_id, player_id, acquired_at, acquisition_type)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.FantasyTeamID, e.PlayerID, e.AcquiredAt, e.AcquisitionType)
	if sqlutil.IsUniqueViolation(err, "") {
		return fmt.Errorf("roster entry for %s: %w", e.PlayerID, models.ErrDuplicatePlayer)
	}
	if err != nil {
		return fmt.Errorf("failed to insert roster entry: %w", err)
	}
	return nil
}

func (q *queries) setLeagueStatus(ctx context.Context, leagueID uuid.UUID, status models.LeagueStatus) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE leagues SET status = $2, updated_at = now() WHERE id = $1`, leagueID, status)
	if err != nil {
		return fmt.Errorf("failed to update league status: %w", err)
	}
	return sqlutil.ExpectOne(res, "league")
}

func (q *queries) insertEvents(ctx context.Context, evts []outbox.OutboxEvent) error {
	for _, e := range evts {
		if err := q.outbox.InsertEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

