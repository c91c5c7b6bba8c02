package player

import (
	"sort"
	"strings"

	"github.com/cdlfantasy/league/go/internal/models"
)

// Less orders players for drafting: lower ADP first, players without an
// ADP last, ties broken by gamer tag.
func Less(a, b models.Player) bool {
	switch {
	case a.AverageDraftPosition != nil && b.AverageDraftPosition != nil:
		if *a.AverageDraftPosition != *b.AverageDraftPosition {
			return *a.AverageDraftPosition < *b.AverageDraftPosition
		}
	case a.AverageDraftPosition != nil:
		return true
	case b.AverageDraftPosition != nil:
		return false
	}
	return strings.ToLower(a.GamerTag) < strings.ToLower(b.GamerTag)
}

// SortByDraftPriority sorts players in place by Less.
func SortByDraftPriority(players []models.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return Less(players[i], players[j])
	})
}
