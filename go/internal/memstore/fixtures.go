package memstore

import (
	"fmt"

	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/google/uuid"
)

// SeedLeague adds a PRE_DRAFT league with the stock scoring weights and one
// team per name, created in the order given.
func (s *Store) SeedLeague(name string, rosterSize, starterCount int, rules models.ScoringRules, teamNames ...string) (models.League, []models.FantasyTeam) {
	league := s.AddLeague(models.League{
		Name:         name,
		Status:       models.LeagueStatusPreDraft,
		RosterSize:   rosterSize,
		StarterCount: starterCount,
		ScoringRules: rules,
	})
	teams := make([]models.FantasyTeam, 0, len(teamNames))
	for _, n := range teamNames {
		teams = append(teams, s.AddFantasyTeam(models.FantasyTeam{
			LeagueID: league.ID,
			OwnerID:  uuid.New(),
			Name:     n,
		}))
	}
	return league, teams
}

// SeedPlayers adds n active players whose ADP equals their 1-based index.
func (s *Store) SeedPlayers(n int) []models.Player {
	players := make([]models.Player, 0, n)
	for i := 1; i <= n; i++ {
		adp := float64(i)
		players = append(players, s.AddPlayer(models.Player{
			GamerTag:             fmt.Sprintf("player%02d", i),
			TeamName:             "Free Agents",
			Role:                 "SMG",
			AverageDraftPosition: &adp,
			IsActive:             true,
		}))
	}
	return players
}
