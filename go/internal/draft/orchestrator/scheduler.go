package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Timeout is one expired turn, identified by the pick it was armed for.
type Timeout struct {
	DraftID    uuid.UUID
	PickNumber int
}

type armedTimer struct {
	timer      clockwork.Timer
	pickNumber int
	cancel     chan struct{}
}

// Scheduler keeps at most one turn timer per draft. Arming a draft replaces
// its previous timer; fired timers are delivered on Timeouts.
type Scheduler struct {
	clock  clockwork.Clock
	workCh chan Timeout
	done   chan struct{}

	activeTimersMu sync.Mutex
	activeTimers   map[uuid.UUID]*armedTimer
	stopOnce       sync.Once
}

// NewScheduler creates a scheduler whose work channel holds buffer timeouts.
func NewScheduler(clock clockwork.Clock, buffer int) *Scheduler {
	return &Scheduler{
		clock:        clock,
		workCh:       make(chan Timeout, buffer),
		done:         make(chan struct{}),
		activeTimers: make(map[uuid.UUID]*armedTimer),
	}
}

// Timeouts delivers fired turns to the worker pool.
func (s *Scheduler) Timeouts() <-chan Timeout {
	return s.workCh
}

// Arm schedules the auto-pick for pickNumber after delay, replacing any
// timer the draft already has for the same or an earlier pick. Arms for a
// pick older than the armed one are dropped. A non-positive delay fires at
// once.
func (s *Scheduler) Arm(draftID uuid.UUID, pickNumber int, delay time.Duration) {
	select {
	case <-s.done:
		return
	default:
	}

	if delay < 0 {
		delay = 0
	}
	at := &armedTimer{
		timer:      s.clock.NewTimer(delay),
		pickNumber: pickNumber,
		cancel:     make(chan struct{}),
	}
	if !s.replaceTimer(draftID, at) {
		stopTimer(at)
		log.Debug().
			Str("draft_id", draftID.String()).
			Int("pick_number", pickNumber).
			Msg("ignored arm for an older pick")
		return
	}

	go func(id uuid.UUID, at *armedTimer) {
		select {
		case <-at.timer.Chan():
			s.removeTimer(id, at)
			select {
			case s.workCh <- Timeout{DraftID: id, PickNumber: at.pickNumber}:
				log.Debug().
					Str("draft_id", id.String()).
					Int("pick_number", at.pickNumber).
					Msg("timer fired - enqueued for processing")
			case <-at.cancel:
			case <-s.done:
			}
		case <-at.cancel:
		case <-s.done:
		}
	}(draftID, at)

	log.Debug().
		Str("draft_id", draftID.String()).
		Int("pick_number", pickNumber).
		Dur("duration", delay).
		Msg("armed turn timer")
}

// Cancel stops the draft's timer, if any.
func (s *Scheduler) Cancel(draftID uuid.UUID) {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()

	if at, exists := s.activeTimers[draftID]; exists {
		stopTimer(at)
		delete(s.activeTimers, draftID)
		log.Debug().Str("draft_id", draftID.String()).Msg("cancelled existing timer")
	}
}

// Armed returns the pick number the draft's live timer is armed for.
func (s *Scheduler) Armed(draftID uuid.UUID) (int, bool) {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()
	at, ok := s.activeTimers[draftID]
	if !ok {
		return 0, false
	}
	return at.pickNumber, true
}

// Stop cancels every timer. Arm is a no-op afterwards.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.activeTimersMu.Lock()
		for draftID, at := range s.activeTimers {
			stopTimer(at)
			log.Debug().Str("draft_id", draftID.String()).Msg("cancelled timer on shutdown")
		}
		s.activeTimers = make(map[uuid.UUID]*armedTimer)
		s.activeTimersMu.Unlock()
	})
}

// replaceTimer swaps in the new timer under the lock so no other Arm can
// slip in between stopping the old one and storing the new one. It reports
// false, leaving the armed timer alone, when at is for an earlier pick.
func (s *Scheduler) replaceTimer(draftID uuid.UUID, at *armedTimer) bool {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()

	if existing, exists := s.activeTimers[draftID]; exists {
		if at.pickNumber < existing.pickNumber {
			return false
		}
		stopTimer(existing)
		log.Debug().Str("draft_id", draftID.String()).Msg("replaced existing timer")
	}
	s.activeTimers[draftID] = at
	return true
}

// removeTimer forgets a fired timer unless it has already been replaced.
func (s *Scheduler) removeTimer(draftID uuid.UUID, at *armedTimer) {
	s.activeTimersMu.Lock()
	defer s.activeTimersMu.Unlock()
	if s.activeTimers[draftID] == at {
		delete(s.activeTimers, draftID)
	}
}

// stopTimer stops the clock timer, drains a pending fire and releases the
// waiting goroutine.
func stopTimer(at *armedTimer) {
	if !at.timer.Stop() {
		select {
		case <-at.timer.Chan():
		default:
		}
	}
	close(at.cancel)
}
