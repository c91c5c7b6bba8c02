package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/cdlfantasy/league/go/internal/draft/events"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DraftApp defines what the orchestrator needs from the draft app
type DraftApp interface {
	GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	ListAvailablePlayers(ctx context.Context, draftID uuid.UUID) ([]models.Player, error)
	SubmitAutoPick(ctx context.Context, draftID uuid.UUID, pickNumber int, playerID uuid.UUID) (*draft.PickResult, error)
	ListInProgressDrafts(ctx context.Context) ([]models.Draft, error)
	PickDeadline(ctx context.Context, d *models.Draft) (time.Time, error)
}

// OutboxApp defines what the orchestrator needs from the outbox app
type OutboxApp interface {
	InsertAutoPickFailedEvent(ctx context.Context, draftID uuid.UUID, payload events.AutoPickFailedPayload) error
}

// Orchestrator turns expired turns into auto-picks. Timers live in the
// Scheduler; a pool of workers handles the timeouts it delivers.
type Orchestrator struct {
	app        DraftApp
	strat      AutoPickStrategy
	outboxApp  OutboxApp
	scheduler  *Scheduler
	clock      clockwork.Clock
	instanceID string

	numWorkers int

	// Track in-flight work to prevent duplicate processing
	inFlight   map[Timeout]bool
	inFlightMu sync.Mutex
}

// NewOrchestrator creates a new draft orchestrator with worker pool
func NewOrchestrator(app DraftApp, strat AutoPickStrategy, outboxApp OutboxApp, scheduler *Scheduler, clock clockwork.Clock, numWorkers int) *Orchestrator {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Orchestrator{
		app:        app,
		strat:      strat,
		outboxApp:  outboxApp,
		scheduler:  scheduler,
		clock:      clock,
		instanceID: uuid.New().String()[:8],
		numWorkers: numWorkers,
		inFlight:   make(map[Timeout]bool),
	}
}

// Recover re-arms a timer for every in-progress draft, using the time left
// on its current turn. Turns that expired while the process was down fire
// immediately. A draft that cannot be recovered does not stop the others;
// the failures are joined into the returned error.
func (o *Orchestrator) Recover(ctx context.Context) error {
	drafts, err := o.app.ListInProgressDrafts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list in-progress drafts: %w", err)
	}

	var errs []error
	for i := range drafts {
		d := &drafts[i]
		deadline, err := o.app.PickDeadline(ctx, d)
		if err != nil {
			log.Error().Err(err).Str("draft_id", d.ID.String()).Msg("failed to recover turn timer")
			errs = append(errs, fmt.Errorf("failed to compute deadline for draft %s: %w", d.ID, err))
			continue
		}
		remaining := deadline.Sub(o.clock.Now())
		o.scheduler.Arm(d.ID, d.CurrentPick, remaining)

		log.Info().
			Str("draft_id", d.ID.String()).
			Int("pick_number", d.CurrentPick).
			Dur("remaining", remaining).
			Msg("recovered turn timer")
	}

	log.Info().
		Str("instance", o.instanceID).
		Int("drafts", len(drafts)).
		Int("failed", len(errs)).
		Msg("timer recovery complete")
	return errors.Join(errs...)
}

// handleTimeout fills an expired turn. A timeout whose draft has moved on
// is a no-op.
func (o *Orchestrator) handleTimeout(ctx context.Context, t Timeout) error {
	d, err := o.app.GetDraft(ctx, t.DraftID)
	if errors.Is(err, draft.ErrDraftNotFound) {
		log.Debug().Str("draft_id", t.DraftID.String()).Msg("timeout for unknown draft, ignoring")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get draft: %w", err)
	}
	if d.CurrentPick != t.PickNumber || d.Status != models.DraftStatusInProgress {
		log.Debug().
			Str("draft_id", t.DraftID.String()).
			Int("armed_pick", t.PickNumber).
			Int("current_pick", d.CurrentPick).
			Str("status", string(d.Status)).
			Msg("stale timeout, ignoring")
		return nil
	}

	log.Info().
		Str("draft_id", t.DraftID.String()).
		Int("pick_number", t.PickNumber).
		Msg("auto-pick timeout firing")

	available, err := o.app.ListAvailablePlayers(ctx, t.DraftID)
	if err != nil {
		return fmt.Errorf("failed to list available players: %w", err)
	}
	choice, err := o.strat.Choose(ctx, available)
	if errors.Is(err, draft.ErrNoPlayersAvailable) {
		return o.reportFailure(ctx, d, err)
	}
	if err != nil {
		return fmt.Errorf("auto-pick strategy failed: %w", err)
	}

	res, err := o.app.SubmitAutoPick(ctx, t.DraftID, t.PickNumber, choice.ID)
	if errors.Is(err, draft.ErrStaleTurn) || errors.Is(err, draft.ErrDraftNotInProgress) {
		log.Debug().Str("draft_id", t.DraftID.String()).Msg("turn filled before auto-pick committed")
		return nil
	}
	if err != nil {
		return fmt.Errorf("auto-pick failed: %w", err)
	}

	log.Info().
		Str("draft_id", t.DraftID.String()).
		Str("player", res.Player.GamerTag).
		Int("pick_number", res.Pick.PickNumber).
		Bool("completed", res.Completed).
		Msg("auto-pick made")
	return nil
}

// reportFailure leaves the turn open and raises an AutoPickFailed event for
// operators.
func (o *Orchestrator) reportFailure(ctx context.Context, d *models.Draft, cause error) error {
	team := d.DraftOrder[draft.TurnIndex(d.CurrentPick, len(d.DraftOrder))]
	log.Error().
		Err(cause).
		Str("draft_id", d.ID.String()).
		Str("team_id", team.String()).
		Int("pick_number", d.CurrentPick).
		Msg("auto-pick failed")

	return o.outboxApp.InsertAutoPickFailedEvent(ctx, d.ID, events.AutoPickFailedPayload{
		DraftID:    d.ID.String(),
		PickNumber: d.CurrentPick,
		TeamID:     team.String(),
		Reason:     cause.Error(),
		FailedAt:   o.clock.Now(),
	})
}
