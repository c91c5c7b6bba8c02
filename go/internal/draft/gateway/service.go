package gateway

import (
	"context"

	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service is the draft gateway: websocket rooms fed by outbox events
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

// Config holds configuration for the draft gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
}

// DefaultConfig returns default configuration for the draft gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates a new draft gateway service on cm. Client pick
// commands are routed to picks.
func NewService(cm *ConnectionManager, provider StateProvider, picks PickSubmitter, clock clockwork.Clock) *Service {
	cm.SetCommandHandler(NewPickCommandHandler(picks))

	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, provider, clock),
	}
}

// Start runs the broadcast loop until ctx is done.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting draft gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("draft gateway service stopped")
}

// ConnectionManager exposes the rooms for event consumers.
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.connectionManager
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(r chi.Router) {
	s.wsHandler.RegisterRoutes(r)
	log.Info().Msg("draft gateway routes registered")
}

// LocalPublisher hands outbox events straight to the gateway rooms when the
// API and gateway share a process and no broker is configured.
type LocalPublisher struct {
	cm *ConnectionManager
}

// NewLocalPublisher creates an in-process publisher
func NewLocalPublisher(cm *ConnectionManager) *LocalPublisher {
	return &LocalPublisher{cm: cm}
}

var _ outbox.EventPublisher = (*LocalPublisher)(nil)

// Publish implements outbox.EventPublisher.
func (p *LocalPublisher) Publish(ctx context.Context, event outbox.OutboxEvent) error {
	wsEvent, err := FromEnvelope(event.Envelope())
	if err != nil {
		return err
	}
	return p.cm.Broadcast(ctx, event.DraftID, wsEvent)
}
