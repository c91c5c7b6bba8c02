package draft

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/cdlfantasy/league/go/internal/draft/events"
	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DraftRepository defines what the app layer needs from the repository
type DraftRepository interface {
	CreateDraft(ctx context.Context, d models.Draft) (*models.Draft, error)
	GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	GetDraftByLeague(ctx context.Context, leagueID uuid.UUID) (*models.Draft, error)
	StartDraft(ctx context.Context, commit StartCommit) error
	CommitPick(ctx context.Context, commit PickCommit) error
	ListDraftPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error)
	ListDraftsByStatus(ctx context.Context, status models.DraftStatus) ([]models.Draft, error)
}

// RosterStore defines the roster reads the pick path needs. Roster entries
// themselves are written by CommitPick.
type RosterStore interface {
	ListDraftedPlayerIDs(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error)
}

// PlayerCatalog defines what the app layer needs from the player catalog
type PlayerCatalog interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ListAvailablePlayers(ctx context.Context, excludeIDs []uuid.UUID) ([]models.Player, error)
}

// LeagueStore defines what the app layer needs from the leagues repository
type LeagueStore interface {
	GetParticipants(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error)
	GetRosterSize(ctx context.Context, leagueID uuid.UUID) (int, error)
}

// TurnTimer schedules the auto-pick for the turn in progress.
type TurnTimer interface {
	Arm(draftID uuid.UUID, pickNumber int, delay time.Duration)
	Cancel(draftID uuid.UUID)
}

// Notifier is told after events have been committed to the outbox.
type Notifier interface {
	Notify()
}

// App handles draft business logic
type App struct {
	repo     DraftRepository
	rosters  RosterStore
	players  PlayerCatalog
	leagues  LeagueStore
	timer    TurnTimer
	notifier Notifier
	clock    clockwork.Clock
	shuffle  func([]uuid.UUID)
}

// NewApp creates a new draft App
func NewApp(repo DraftRepository, rosters RosterStore, players PlayerCatalog, leagues LeagueStore, timer TurnTimer, notifier Notifier, clock clockwork.Clock) *App {
	return &App{
		repo:     repo,
		rosters:  rosters,
		players:  players,
		leagues:  leagues,
		timer:    timer,
		notifier: notifier,
		clock:    clock,
		shuffle: func(ids []uuid.UUID) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
	}
}

// WithShuffle replaces the draft order randomiser.
func (a *App) WithShuffle(fn func([]uuid.UUID)) *App {
	a.shuffle = fn
	return a
}

// CreateDraft creates the league's draft. A league has at most one draft, so
// a second call returns the existing one.
func (a *App) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error) {
	if err := a.validateCreateDraftRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := a.leagues.GetRosterSize(ctx, req.LeagueID); err != nil {
		return nil, fmt.Errorf("league not found: %w", err)
	}

	now := a.clock.Now()
	d, err := a.repo.CreateDraft(ctx, models.Draft{
		ID:             uuid.New(),
		LeagueID:       req.LeagueID,
		Status:         models.DraftStatusNotStarted,
		SecondsPerPick: req.SecondsPerPick,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if errors.Is(err, models.ErrConflict) {
		return a.repo.GetDraftByLeague(ctx, req.LeagueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	log.Info().
		Str("draft_id", d.ID.String()).
		Str("league_id", d.LeagueID.String()).
		Int("seconds_per_pick", d.SecondsPerPick).
		Msg("draft created")
	return d, nil
}

// GetDraft retrieves a draft by ID
func (a *App) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	d, err := a.repo.GetDraft(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return d, nil
}

// StartDraft randomises the draft order, opens pick 1 and arms its timer.
func (a *App) StartDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error) {
	d, err := a.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DraftStatusNotStarted {
		return nil, ErrAlreadyStarted
	}

	participants, err := a.leagues.GetParticipants(ctx, d.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	rosterSize, err := a.leagues.GetRosterSize(ctx, d.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster size: %w", err)
	}

	order := slices.Clone(participants)
	a.shuffle(order)

	now := a.clock.Now()
	started, err := outbox.NewEvent(d.ID, events.TypeDraftStarted, events.DraftStartedPayload{
		DraftID:        d.ID.String(),
		LeagueID:       d.LeagueID.String(),
		DraftOrder:     idStrings(order),
		StartedAt:      now,
		TotalRounds:    rosterSize,
		TotalPicks:     TotalPicks(len(order), rosterSize),
		SecondsPerPick: d.SecondsPerPick,
	}, now)
	if err != nil {
		return nil, err
	}
	first, err := a.pickStartedEvent(d, order, 1, now)
	if err != nil {
		return nil, err
	}

	err = a.repo.StartDraft(ctx, StartCommit{
		DraftID:    d.ID,
		LeagueID:   d.LeagueID,
		DraftOrder: order,
		StartedAt:  now,
		Events:     []outbox.OutboxEvent{started, first},
	})
	if errors.Is(err, models.ErrConflict) {
		return nil, ErrAlreadyStarted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start draft: %w", err)
	}

	d.Status = models.DraftStatusInProgress
	d.DraftOrder = order
	d.CurrentPick = 1
	d.CurrentRound = 1
	d.StartedAt = &now
	d.UpdatedAt = now

	a.notify()
	a.timer.Arm(d.ID, 1, d.PickDuration())

	log.Info().
		Str("draft_id", d.ID.String()).
		Int("teams", len(order)).
		Int("total_picks", TotalPicks(len(order), rosterSize)).
		Msg("draft started")
	return d, nil
}

// SubmitPick records a human pick for the team whose turn it is.
func (a *App) SubmitPick(ctx context.Context, req MakePickRequest) (*PickResult, error) {
	if err := a.validateMakePickRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return a.submit(ctx, req.DraftID, &req.TeamID, 0, req.PlayerID)
}

// SubmitAutoPick records a pick on behalf of the team whose turn timed out.
// It returns ErrStaleTurn if pickNumber is no longer the current pick.
func (a *App) SubmitAutoPick(ctx context.Context, draftID uuid.UUID, pickNumber int, playerID uuid.UUID) (*PickResult, error) {
	if draftID == uuid.Nil || playerID == uuid.Nil || pickNumber < 1 {
		return nil, fmt.Errorf("validation failed: %w", ErrInvalidArgument)
	}
	return a.submit(ctx, draftID, nil, pickNumber, playerID)
}

// submit is the single pick path. teamID is nil for auto-picks, which
// instead carry the pick number they were armed for.
func (a *App) submit(ctx context.Context, draftID uuid.UUID, teamID *uuid.UUID, armedPick int, playerID uuid.UUID) (*PickResult, error) {
	isAuto := teamID == nil

	d, err := a.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DraftStatusInProgress {
		return nil, ErrDraftNotInProgress
	}
	if isAuto && d.CurrentPick != armedPick {
		return nil, ErrStaleTurn
	}

	n := len(d.DraftOrder)
	owner := d.DraftOrder[TurnIndex(d.CurrentPick, n)]
	if !isAuto && *teamID != owner {
		return nil, ErrNotYourTurn
	}

	p, err := a.players.GetPlayer(ctx, playerID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if !p.IsActive {
		return nil, ErrPlayerNotFound
	}

	drafted, err := a.rosters.ListDraftedPlayerIDs(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafted players: %w", err)
	}
	if slices.Contains(drafted, playerID) {
		return nil, ErrPlayerAlreadyDrafted
	}

	rosterSize, err := a.leagues.GetRosterSize(ctx, d.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster size: %w", err)
	}
	total := TotalPicks(n, rosterSize)

	now := a.clock.Now()
	pick := models.DraftPick{
		ID:         uuid.New(),
		DraftID:    d.ID,
		TeamID:     owner,
		PlayerID:   playerID,
		PickNumber: d.CurrentPick,
		Round:      RoundForPick(d.CurrentPick, n),
		IsAutoPick: isAuto,
		PickedAt:   now,
	}
	commit := PickCommit{
		DraftID:      d.ID,
		LeagueID:     d.LeagueID,
		ExpectedPick: d.CurrentPick,
		Pick:         pick,
		RosterEntry: models.RosterEntry{
			ID:              uuid.New(),
			FantasyTeamID:   owner,
			PlayerID:        playerID,
			AcquiredAt:      now,
			AcquisitionType: models.AcquisitionTypeDraft,
		},
		Completed: d.CurrentPick >= total,
		At:        now,
	}

	made, err := outbox.NewEvent(d.ID, events.TypePickMade, events.PickMadePayload{
		PickID:     pick.ID.String(),
		TeamID:     owner.String(),
		PlayerID:   playerID.String(),
		GamerTag:   p.GamerTag,
		Round:      pick.Round,
		PickNumber: pick.PickNumber,
		IsAutoPick: isAuto,
		MadeAt:     now,
	}, now)
	if err != nil {
		return nil, err
	}
	commit.Events = append(commit.Events, made)

	if commit.Completed {
		var duration time.Duration
		if d.StartedAt != nil {
			duration = now.Sub(*d.StartedAt)
		}
		done, err := outbox.NewEvent(d.ID, events.TypeDraftCompleted, events.DraftCompletedPayload{
			DraftID:     d.ID.String(),
			CompletedAt: now,
			Duration:    duration.String(),
			TotalPicks:  total,
		}, now)
		if err != nil {
			return nil, err
		}
		commit.Events = append(commit.Events, done)
	} else {
		commit.NextPick = d.CurrentPick + 1
		commit.NextRound = RoundForPick(commit.NextPick, n)
		next, err := a.pickStartedEvent(d, d.DraftOrder, commit.NextPick, now)
		if err != nil {
			return nil, err
		}
		commit.Events = append(commit.Events, next)
	}

	if err := a.repo.CommitPick(ctx, commit); err != nil {
		switch {
		case errors.Is(err, models.ErrStalePick) && isAuto:
			return nil, ErrStaleTurn
		case errors.Is(err, models.ErrStalePick):
			return nil, ErrNotYourTurn
		case errors.Is(err, models.ErrDuplicatePlayer):
			return nil, ErrPlayerAlreadyDrafted
		case errors.Is(err, models.ErrConflict):
			return nil, ErrDraftNotInProgress
		}
		return nil, fmt.Errorf("failed to commit pick: %w", err)
	}

	a.notify()

	res := &PickResult{Pick: pick, Player: *p, Completed: commit.Completed}
	if commit.Completed {
		a.timer.Cancel(d.ID)
		log.Info().
			Str("draft_id", d.ID.String()).
			Int("total_picks", total).
			Msg("draft completed")
	} else {
		a.timer.Arm(d.ID, commit.NextPick, d.PickDuration())
		nextTeam := d.DraftOrder[TurnIndex(commit.NextPick, n)]
		res.NextPick = commit.NextPick
		res.NextTeam = &nextTeam
	}

	log.Info().
		Str("draft_id", d.ID.String()).
		Str("team_id", owner.String()).
		Str("player", p.GamerTag).
		Int("pick_number", pick.PickNumber).
		Bool("auto", isAuto).
		Msg("pick made")
	return res, nil
}

// ListAvailablePlayers returns undrafted active players, best ADP first.
func (a *App) ListAvailablePlayers(ctx context.Context, draftID uuid.UUID) ([]models.Player, error) {
	drafted, err := a.rosters.ListDraftedPlayerIDs(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafted players: %w", err)
	}
	players, err := a.players.ListAvailablePlayers(ctx, drafted)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	return players, nil
}

// ListDraftPicks returns a draft's picks in pick order
func (a *App) ListDraftPicks(ctx context.Context, draftID uuid.UUID) ([]models.DraftPick, error) {
	return a.repo.ListDraftPicks(ctx, draftID)
}

// ListInProgressDrafts returns every draft with a live turn.
func (a *App) ListInProgressDrafts(ctx context.Context) ([]models.Draft, error) {
	return a.repo.ListDraftsByStatus(ctx, models.DraftStatusInProgress)
}

// GetDraftView assembles the draft, its picks and the pool still available.
// CurrentTeamID and PickDeadline are set only while the draft is live.
func (a *App) GetDraftView(ctx context.Context, draftID uuid.UUID) (*DraftView, error) {
	d, err := a.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	picks, err := a.repo.ListDraftPicks(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	available, err := a.ListAvailablePlayers(ctx, draftID)
	if err != nil {
		return nil, err
	}
	rosterSize, err := a.leagues.GetRosterSize(ctx, d.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster size: %w", err)
	}

	view := &DraftView{
		Draft:            *d,
		Picks:            picks,
		AvailablePlayers: available,
		TotalPicks:       TotalPicks(len(d.DraftOrder), rosterSize),
	}
	if d.Status == models.DraftStatusInProgress {
		team := d.DraftOrder[TurnIndex(d.CurrentPick, len(d.DraftOrder))]
		deadline := turnDeadline(d, picks)
		view.CurrentTeamID = &team
		view.PickDeadline = &deadline
	}
	return view, nil
}

// PickDeadline returns when the current turn of a live draft expires.
func (a *App) PickDeadline(ctx context.Context, d *models.Draft) (time.Time, error) {
	picks, err := a.repo.ListDraftPicks(ctx, d.ID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to list picks: %w", err)
	}
	return turnDeadline(d, picks), nil
}

// turnDeadline counts from the latest pick, or from the start for pick 1.
func turnDeadline(d *models.Draft, picks []models.DraftPick) time.Time {
	var base time.Time
	if d.StartedAt != nil {
		base = *d.StartedAt
	}
	for _, p := range picks {
		if p.PickedAt.After(base) {
			base = p.PickedAt
		}
	}
	return base.Add(d.PickDuration())
}

func (a *App) pickStartedEvent(d *models.Draft, order []uuid.UUID, pickNumber int, now time.Time) (outbox.OutboxEvent, error) {
	n := len(order)
	return outbox.NewEvent(d.ID, events.TypePickStarted, events.PickStartedPayload{
		TeamID:         order[TurnIndex(pickNumber, n)].String(),
		Round:          RoundForPick(pickNumber, n),
		PickNumber:     pickNumber,
		StartedAt:      now,
		TimeoutAt:      now.Add(d.PickDuration()),
		SecondsPerPick: d.SecondsPerPick,
	}, now)
}

func (a *App) notify() {
	if a.notifier != nil {
		a.notifier.Notify()
	}
}

func (a *App) validateCreateDraftRequest(req CreateDraftRequest) error {
	if req.LeagueID == uuid.Nil {
		return fmt.Errorf("%w: league_id is required", ErrInvalidArgument)
	}
	if req.SecondsPerPick <= 0 {
		return fmt.Errorf("%w: seconds_per_pick must be positive", ErrInvalidArgument)
	}
	return nil
}

func (a *App) validateMakePickRequest(req MakePickRequest) error {
	if req.DraftID == uuid.Nil {
		return fmt.Errorf("%w: draft_id is required", ErrInvalidArgument)
	}
	if req.TeamID == uuid.Nil {
		return fmt.Errorf("%w: team_id is required", ErrInvalidArgument)
	}
	if req.PlayerID == uuid.Nil {
		return fmt.Errorf("%w: player_id is required", ErrInvalidArgument)
	}
	return nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
