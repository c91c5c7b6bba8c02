package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// PickSubmitter is the pick entry point shared with the RPC service
type PickSubmitter interface {
	SubmitPick(ctx context.Context, req draft.MakePickRequest) (*draft.PickResult, error)
}

// WebSocketHandler handles WebSocket upgrade requests for draft connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	stateProvider     StateProvider
	clock             clockwork.Clock
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, provider StateProvider, clock clockwork.Clock) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		stateProvider:     provider,
		clock:             clock,
	}
}

// HandleDraftConnection handles WebSocket connections for a specific draft
func (h *WebSocketHandler) HandleDraftConnection(w http.ResponseWriter, r *http.Request) {
	draftIDStr := r.URL.Query().Get("draft_id")
	if draftIDStr == "" {
		http.Error(w, "draft_id is required", http.StatusBadRequest)
		return
	}
	draftID, err := uuid.Parse(draftIDStr)
	if err != nil {
		http.Error(w, "invalid draft_id format", http.StatusBadRequest)
		return
	}

	// Reject unknown drafts before upgrading.
	if _, err := h.stateProvider.GetDraftView(r.Context(), draftID); err != nil {
		if errors.Is(err, draft.ErrDraftNotFound) {
			http.Error(w, "draft not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to load draft")
		http.Error(w, "failed to load draft", http.StatusInternalServerError)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	if err := h.connectionManager.UpgradeConnection(w, r, userID, draftID, func(ctx context.Context) (*DraftEvent, error) {
		return h.snapshotEvent(ctx, draftID)
	}); err != nil {
		// The upgrader has already replied to the client.
		log.Error().
			Err(err).
			Str("draft_id", draftID.String()).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
	}
}

func (h *WebSocketHandler) snapshotEvent(ctx context.Context, draftID uuid.UUID) (*DraftEvent, error) {
	view, err := h.stateProvider.GetDraftView(ctx, draftID)
	if err != nil {
		return nil, err
	}
	now := h.clock.Now()
	data, err := json.Marshal(NewDraftState(view, now))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft state: %w", err)
	}
	return &DraftEvent{
		ID:        uuid.New().String(),
		DraftID:   draftID.String(),
		Type:      EventTypeDraftState,
		Timestamp: now.UTC(),
		Data:      data,
	}, nil
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// HandleGetDraftState handles GET /api/drafts/{draftID}/state
func (h *WebSocketHandler) HandleGetDraftState(w http.ResponseWriter, r *http.Request) {
	draftID, err := uuid.Parse(chi.URLParam(r, "draftID"))
	if err != nil {
		http.Error(w, "Invalid draft ID format", http.StatusBadRequest)
		return
	}

	view, err := h.stateProvider.GetDraftView(r.Context(), draftID)
	if errors.Is(err, draft.ErrDraftNotFound) {
		http.Error(w, "Draft not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to get draft state")
		http.Error(w, "Failed to get draft state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, NewDraftState(view, h.clock.Now()))
}

// DraftSummary represents a summary of an active draft
type DraftSummary struct {
	DraftID      string `json:"draft_id"`
	LeagueID     string `json:"league_id"`
	CurrentRound int    `json:"current_round"`
	CurrentPick  int    `json:"current_pick"`
	TotalTeams   int    `json:"total_teams"`
}

// HandleGetActiveDrafts handles GET /api/drafts/active
func (h *WebSocketHandler) HandleGetActiveDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.stateProvider.ListInProgressDrafts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get active drafts")
		http.Error(w, "Failed to get active drafts", http.StatusInternalServerError)
		return
	}

	summaries := make([]DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		summaries = append(summaries, DraftSummary{
			DraftID:      d.ID.String(),
			LeagueID:     d.LeagueID.String(),
			CurrentRound: d.CurrentRound,
			CurrentPick:  d.CurrentPick,
			TotalTeams:   len(d.DraftOrder),
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// RegisterRoutes registers WebSocket and state routes
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/draft", h.HandleDraftConnection)
	r.Get("/ws/stats", h.HandleConnectionStats)
	r.Get("/api/drafts/active", h.HandleGetActiveDrafts)
	r.Get("/api/drafts/{draftID}/state", h.HandleGetDraftState)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// PickCommandHandler lets clients pick over their draft socket.
type PickCommandHandler struct {
	submitter PickSubmitter
}

// NewPickCommandHandler creates a command handler backed by submitter
func NewPickCommandHandler(submitter PickSubmitter) *PickCommandHandler {
	return &PickCommandHandler{submitter: submitter}
}

// HandleCommand implements CommandHandler. The resulting PickMade event
// reaches the client through the normal broadcast.
func (h *PickCommandHandler) HandleCommand(ctx context.Context, conn *Connection, msg ClientMessage) error {
	switch msg.Type {
	case "MakePick":
		_, err := h.submitter.SubmitPick(ctx, draft.MakePickRequest{
			DraftID:  conn.DraftID,
			TeamID:   msg.TeamID,
			PlayerID: msg.PlayerID,
		})
		return err
	default:
		return fmt.Errorf("%w: unknown command %q", draft.ErrInvalidArgument, msg.Type)
	}
}

// errorCode names a command failure for clients.
func errorCode(err error) string {
	if code, ok := draft.ErrorCode(err); ok {
		return code.String()
	}
	return connect.CodeInternal.String()
}
