package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL   string // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string // Channel name to LISTEN on
	PingInterval  time.Duration
}

func DefaultListenerConfig(dsn string) ListenerConfig {
	return ListenerConfig{
		DatabaseURL:   dsn,
		NotifyChannel: "draft_outbox_events",
		PingInterval:  90 * time.Second,
	}
}

// Listener turns postgres NOTIFYs from the outbox insert trigger into relay
// wake-ups. The relay still does all reading and publishing.
type Listener struct {
	listener *pq.Listener
	waker    Waker
	cfg      ListenerConfig
}

func NewListener(waker Waker, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return &Listener{
		listener: l,
		waker:    waker,
		cfg:      cfg,
	}, nil
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.listener.Close()
		case note := <-l.listener.Notify:
			// nil means the connection was re-established; events may have
			// been missed, so wake anyway.
			if note != nil {
				log.Debug().Str("draft_id", note.Extra).Msg("outbox notification")
			}
			l.waker.Notify()
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}
