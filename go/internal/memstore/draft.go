package memstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/google/uuid"
)

var (
	_ draft.DraftRepository = (*Store)(nil)
	_ draft.RosterStore     = (*Store)(nil)
	_ draft.PlayerCatalog   = (*Store)(nil)
	_ draft.LeagueStore     = (*Store)(nil)
)

func cloneDraft(d models.Draft) *models.Draft {
	d.DraftOrder = slices.Clone(d.DraftOrder)
	return &d
}

// CreateDraft inserts a NOT_STARTED draft, one per league.
func (s *Store) CreateDraft(_ context.Context, d models.Draft) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.drafts {
		if existing.LeagueID == d.LeagueID {
			return nil, fmt.Errorf("draft for league %s: %w", d.LeagueID, models.ErrConflict)
		}
	}
	s.drafts[d.ID] = d
	return cloneDraft(d), nil
}

// GetDraft retrieves a draft by ID
func (s *Store) GetDraft(_ context.Context, id uuid.UUID) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, notFound("draft", id)
	}
	return cloneDraft(d), nil
}

// GetDraftByLeague retrieves the league's draft
func (s *Store) GetDraftByLeague(_ context.Context, leagueID uuid.UUID) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drafts {
		if d.LeagueID == leagueID {
			return cloneDraft(d), nil
		}
	}
	return nil, notFound("draft for league", leagueID)
}

// ListDraftsByStatus returns drafts in the given status, oldest first
func (s *Store) ListDraftsByStatus(_ context.Context, status models.DraftStatus) ([]models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var drafts []models.Draft
	for _, d := range s.drafts {
		if d.Status == status {
			drafts = append(drafts, *cloneDraft(d))
		}
	}
	slices.SortFunc(drafts, func(a, b models.Draft) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return drafts, nil
}

// StartDraft moves a NOT_STARTED draft to pick 1 and writes its events.
func (s *Store) StartDraft(_ context.Context, c draft.StartCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[c.DraftID]
	if !ok {
		return notFound("draft", c.DraftID)
	}
	if d.Status != models.DraftStatusNotStarted {
		return fmt.Errorf("draft %s: %w", c.DraftID, models.ErrConflict)
	}
	startedAt := c.StartedAt
	d.Status = models.DraftStatusInProgress
	d.DraftOrder = slices.Clone(c.DraftOrder)
	d.CurrentPick = 1
	d.CurrentRound = 1
	d.StartedAt = &startedAt
	d.UpdatedAt = startedAt
	s.drafts[d.ID] = d

	s.setLeagueStatus(c.LeagueID, models.LeagueStatusDrafting)
	s.appendEvents(c.Events)
	return nil
}

// CommitPick applies one pick if the draft is still on c.ExpectedPick.
func (s *Store) CommitPick(_ context.Context, c draft.PickCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[c.DraftID]
	if !ok {
		return notFound("draft", c.DraftID)
	}
	if d.Status != models.DraftStatusInProgress || d.CurrentPick != c.ExpectedPick {
		return fmt.Errorf("draft %s pick %d: %w", c.DraftID, c.ExpectedPick, models.ErrStalePick)
	}
	for _, p := range s.picks[d.ID] {
		if p.PlayerID == c.Pick.PlayerID {
			return fmt.Errorf("player %s: %w", p.PlayerID, models.ErrDuplicatePlayer)
		}
	}

	if c.Completed {
		at := c.At
		d.Status = models.DraftStatusCompleted
		d.CompletedAt = &at
		s.setLeagueStatus(c.LeagueID, models.LeagueStatusInSeason)
	} else {
		d.CurrentPick = c.NextPick
		d.CurrentRound = c.NextRound
	}
	d.UpdatedAt = c.At
	s.drafts[d.ID] = d

	s.picks[d.ID] = append(s.picks[d.ID], c.Pick)
	s.rosters[c.RosterEntry.ID] = c.RosterEntry
	s.appendEvents(c.Events)
	return nil
}

// ListDraftPicks returns a draft's picks in pick order
func (s *Store) ListDraftPicks(_ context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.picks[draftID]), nil
}

// ListDraftedPlayerIDs returns every player already taken in the draft
func (s *Store) ListDraftedPlayerIDs(_ context.Context, draftID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, p := range s.picks[draftID] {
		ids = append(ids, p.PlayerID)
	}
	return ids, nil
}

func (s *Store) setLeagueStatus(leagueID uuid.UUID, status models.LeagueStatus) {
	if l, ok := s.leagues[leagueID]; ok {
		l.Status = status
		s.leagues[leagueID] = l
	}
}

func (s *Store) appendEvents(evts []outbox.OutboxEvent) {
	for _, e := range evts {
		s.outboxSeq++
		e.Seq = s.outboxSeq
		s.outbox = append(s.outbox, e)
	}
}
