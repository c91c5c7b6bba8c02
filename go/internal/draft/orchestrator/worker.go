package orchestrator

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Run starts the worker pool and blocks until ctx is done. All timers are
// stopped on return.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.numWorkers).
		Msg("draft orchestrator started")

	var wg sync.WaitGroup
	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(ctx, &wg, i)
	}

	<-ctx.Done()

	log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
	o.scheduler.Stop()
	wg.Wait()
	log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	return nil
}

// worker processes draft timeouts from the work channel
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	log.Debug().
		Str("instance", o.instanceID).
		Int("worker_id", workerID).
		Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case t := <-o.scheduler.Timeouts():
			if !o.claim(t) {
				log.Debug().Str("draft_id", t.DraftID.String()).Msg("skipping timeout already in flight")
				continue
			}

			if err := o.handleTimeout(ctx, t); err != nil {
				log.Error().
					Err(err).
					Str("draft_id", t.DraftID.String()).
					Int("pick_number", t.PickNumber).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("worker timeout handling failed")
			}

			// Clean up in-flight tracking regardless of success/failure
			o.release(t)
		}
	}
}

func (o *Orchestrator) claim(t Timeout) bool {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	if o.inFlight[t] {
		return false
	}
	o.inFlight[t] = true
	return true
}

func (o *Orchestrator) release(t Timeout) {
	o.inFlightMu.Lock()
	delete(o.inFlight, t)
	o.inFlightMu.Unlock()
}
