package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RelayRepository defines what the relay needs from storage
type RelayRepository interface {
	FetchUnsent(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	RetryDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   200 * time.Millisecond,
	}
}

// Relay moves unsent outbox events to the publisher in seq order. When an
// event fails, later events of the same draft wait for the next pass so a
// draft's events are never delivered out of order.
type Relay struct {
	repo      RelayRepository
	publisher EventPublisher
	config    Config
	clock     clockwork.Clock
	wakeCh    chan struct{}

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewRelay(repo RelayRepository, publisher EventPublisher, cfg Config, clock clockwork.Clock) *Relay {
	return &Relay{
		repo:      repo,
		publisher: publisher,
		config:    cfg,
		clock:     clock,
		wakeCh:    make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}
}

// Notify wakes the relay without waiting for the next poll.
func (r *Relay) Notify() {
	select {
	case r.wakeCh <- struct{}{}:
	default:
	}
}

func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay already running")
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	log.Info().
		Dur("poll_interval", r.config.PollInterval).
		Int("batch_size", r.config.BatchSize).
		Msg("outbox relay started")

	return nil
}

func (r *Relay) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay not running")
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()

	log.Info().Msg("outbox relay stopped")
	return nil
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on start
	r.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.Chan():
			r.drain(ctx)
		case <-r.wakeCh:
			r.drain(ctx)
		}
	}
}

// drain keeps processing full batches until the backlog is empty or a pass
// makes no progress.
func (r *Relay) drain(ctx context.Context) {
	for {
		sent, fetched, err := r.ProcessOnce(ctx)
		if err != nil {
			log.Error().Err(err).Msg("outbox relay pass failed")
			return
		}
		if fetched < r.config.BatchSize || sent == 0 {
			return
		}
	}
}

// ProcessOnce publishes one batch and returns how many events were sent and
// fetched.
func (r *Relay) ProcessOnce(ctx context.Context) (int, int, error) {
	evts, err := r.repo.FetchUnsent(ctx, r.config.BatchSize)
	if err != nil {
		return 0, 0, err
	}
	if len(evts) == 0 {
		return 0, 0, nil
	}

	log.Debug().Int("count", len(evts)).Msg("processing outbox events")

	blocked := make(map[uuid.UUID]bool)
	var sent []uuid.UUID
	for _, e := range evts {
		if blocked[e.DraftID] {
			continue
		}
		if err := r.publishWithRetry(ctx, e); err != nil {
			log.Error().
				Err(err).
				Str("event_id", e.ID.String()).
				Str("event_type", e.EventType).
				Str("draft_id", e.DraftID.String()).
				Msg("failed to publish event")
			blocked[e.DraftID] = true
			continue
		}
		sent = append(sent, e.ID)
	}

	if err := r.repo.MarkSent(ctx, sent, r.clock.Now()); err != nil {
		return 0, len(evts), err
	}

	if len(sent) > 0 {
		log.Info().
			Int("total", len(evts)).
			Int("successful", len(sent)).
			Msg("processed outbox events")
	}
	return len(sent), len(evts), nil
}

func (r *Relay) publishWithRetry(ctx context.Context, e OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, e); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", e.ID.String()).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}

		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}
