package orchestrator

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/player"
	"github.com/rs/zerolog/log"
)

// AutoPickStrategy chooses a player for a team whose turn timed out.
type AutoPickStrategy interface {
	// Choose returns one of available, or draft.ErrNoPlayersAvailable.
	Choose(ctx context.Context, available []models.Player) (models.Player, error)
}

// NewStrategy returns the strategy registered under name, defaulting to
// best available.
func NewStrategy(name string) AutoPickStrategy {
	switch name {
	case "random":
		return NewRandomStrategy(rand.Uint64())
	default:
		return BestAvailableStrategy{}
	}
}

// BestAvailableStrategy takes the player with the lowest ADP.
type BestAvailableStrategy struct{}

// Choose implements AutoPickStrategy.Choose
func (BestAvailableStrategy) Choose(_ context.Context, available []models.Player) (models.Player, error) {
	if len(available) == 0 {
		return models.Player{}, draft.ErrNoPlayersAvailable
	}
	best := available[0]
	for _, p := range available[1:] {
		if player.Less(p, best) {
			best = p
		}
	}
	return best, nil
}

// RandomStrategy uses random choice for the player.
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomStrategy constructs a RandomStrategy with its own seed.
func NewRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Choose implements AutoPickStrategy.Choose
func (s *RandomStrategy) Choose(_ context.Context, available []models.Player) (models.Player, error) {
	if len(available) == 0 {
		return models.Player{}, draft.ErrNoPlayersAvailable
	}
	s.mu.Lock()
	choice := available[s.rng.IntN(len(available))]
	s.mu.Unlock()

	log.Debug().Str("player", choice.GamerTag).Msg("random auto-pick choice")
	return choice, nil
}
