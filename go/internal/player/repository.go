package player

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/sqlutil"
	"github.com/google/uuid"
)

// Repository is the postgres player catalog
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new player repository
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

const playerColumns = `id, gamer_tag, full_name, team_name, role, average_draft_position, is_active, created_at`

func scanPlayer(row interface{ Scan(...any) error }) (*models.Player, error) {
	var (
		p   models.Player
		adp sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &p.GamerTag, &p.FullName, &p.TeamName, &p.Role, &adp, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.AverageDraftPosition = sqlutil.FromNullFloat64(adp)
	return &p, nil
}

// GetPlayer retrieves a player by ID
func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	p, err := scanPlayer(r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		return nil, sqlutil.NotFound(err, "player")
	}
	return p, nil
}

// ListAvailablePlayers returns active players not in excludeIDs, best ADP
// first.
func (r *Repository) ListAvailablePlayers(ctx context.Context, excludeIDs []uuid.UUID) ([]models.Player, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE is_active AND NOT (id = ANY($1::uuid[]))
		ORDER BY average_draft_position ASC NULLS LAST, lower(gamer_tag) ASC`,
		sqlutil.UUIDArray(excludeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}
