package player

import (
	"fmt"
	"os"
	"strings"

	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// catalogNamespace derives stable player ids from gamer tags so reseeding
// never duplicates a player.
var catalogNamespace = uuid.MustParse("6f1c7a52-3b0e-4d8e-9a57-1c2d0b8e4f21")

// CatalogEntry is one player in a YAML seed file.
type CatalogEntry struct {
	GamerTag string   `yaml:"gamer_tag"`
	FullName string   `yaml:"full_name"`
	Team     string   `yaml:"team"`
	Role     string   `yaml:"role"`
	ADP      *float64 `yaml:"adp"`
	Inactive bool     `yaml:"inactive"`
}

type catalogFile struct {
	Players []CatalogEntry `yaml:"players"`
}

// LoadCatalog reads a YAML player catalog.
func LoadCatalog(path string) ([]models.Player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read player catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML. Gamer tags must be unique.
func ParseCatalog(data []byte) ([]models.Player, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse player catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Players))
	players := make([]models.Player, 0, len(f.Players))
	for i, e := range f.Players {
		tag := strings.TrimSpace(e.GamerTag)
		if tag == "" {
			return nil, fmt.Errorf("player %d: gamer_tag is required", i)
		}
		key := strings.ToLower(tag)
		if seen[key] {
			return nil, fmt.Errorf("player %d: duplicate gamer_tag %q", i, tag)
		}
		seen[key] = true

		players = append(players, models.Player{
			ID:                   CatalogID(tag),
			GamerTag:             tag,
			FullName:             e.FullName,
			TeamName:             e.Team,
			Role:                 e.Role,
			AverageDraftPosition: e.ADP,
			IsActive:             !e.Inactive,
		})
	}
	return players, nil
}

// CatalogID is the id a gamer tag is seeded under.
func CatalogID(gamerTag string) uuid.UUID {
	return uuid.NewSHA1(catalogNamespace, []byte(strings.ToLower(gamerTag)))
}
