package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/sqlutil"
	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListRoster(ctx context.Context, fantasyTeamID uuid.UUID) ([]models.RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, fantasy_team_id, player_id, acquired_at, acquisition_type
		FROM roster_entries
		WHERE fantasy_team_id = $1
		ORDER BY acquired_at, id`, fantasyTeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	defer rows.Close()

	var entries []models.RosterEntry
	for rows.Next() {
		var e models.RosterEntry
		if err := rows.Scan(&e.ID, &e.FantasyTeamID, &e.PlayerID, &e.AcquiredAt, &e.AcquisitionType); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) GetLineup(ctx context.Context, fantasyTeamID, periodID uuid.UUID) (*models.Lineup, error) {
	l := models.Lineup{FantasyTeamID: fantasyTeamID, ScoringPeriodID: periodID}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, is_locked, updated_at
		FROM lineups
		WHERE fantasy_team_id = $1 AND scoring_period_id = $2`, fantasyTeamID, periodID).
		Scan(&l.ID, &l.IsLocked, &l.UpdatedAt)
	if err != nil {
		return nil, sqlutil.NotFound(err, "lineup")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ls.roster_entry_id, re.player_id, ls.position
		FROM lineup_slots ls
		JOIN roster_entries re ON re.id = ls.roster_entry_id
		WHERE ls.lineup_id = $1
		ORDER BY ls.position DESC, re.acquired_at`, l.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lineup slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.LineupSlot
		if err := rows.Scan(&s.RosterEntryID, &s.PlayerID, &s.Position); err != nil {
			return nil, fmt.Errorf("failed to scan lineup slot: %w", err)
		}
		l.Slots = append(l.Slots, s)
	}
	return &l, rows.Err()
}

type lineupQueries struct {
	db sqlutil.DBTX
}

func newLineupQueries(db sqlutil.DBTX) *lineupQueries {
	return &lineupQueries{db: db}
}

// SaveLineup upserts the lineup row and replaces its slots. A locked lineup
// is left untouched and reported as models.ErrConflict.
func (r *Repository) SaveLineup(ctx context.Context, lineup models.Lineup) (*models.Lineup, error) {
	err := sqlutil.Run(ctx, r.db, newLineupQueries, func(q *lineupQueries) error {
		row := q.db.QueryRowContext(ctx, `
			INSERT INTO lineups (id, fantasy_team_id, scoring_period_id, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (fantasy_team_id, scoring_period_id)
			DO UPDATE SET updated_at = EXCLUDED.updated_at
			WHERE NOT lineups.is_locked
			RETURNING id`,
			lineup.ID, lineup.FantasyTeamID, lineup.ScoringPeriodID, lineup.UpdatedAt)
		if err := row.Scan(&lineup.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("lineup locked: %w", models.ErrConflict)
			}
			return fmt.Errorf("failed to upsert lineup: %w", err)
		}

		if _, err := q.db.ExecContext(ctx, `DELETE FROM lineup_slots WHERE lineup_id = $1`, lineup.ID); err != nil {
			return fmt.Errorf("failed to clear lineup slots: %w", err)
		}
		for _, s := range lineup.Slots {
			if _, err := q.db.ExecContext(ctx, `
				INSERT INTO lineup_slots (lineup_id, roster_entry_id, position)
				VALUES ($1, $2, $3)`, lineup.ID, s.RosterEntryID, s.Position); err != nil {
				return fmt.Errorf("failed to insert lineup slot: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lineup, nil
}

func (r *Repository) LockLineups(ctx context.Context, periodID uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE lineups SET is_locked = TRUE WHERE scoring_period_id = $1 AND NOT is_locked`, periodID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock lineups: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}
