package draft

import "errors"

var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrDraftNotFound         = errors.New("draft not found")
	ErrAlreadyStarted        = errors.New("draft has already started")
	ErrNotEnoughParticipants = errors.New("at least 2 teams are required to start a draft")
	ErrDraftNotInProgress    = errors.New("draft is not in progress")
	ErrNotYourTurn           = errors.New("not your turn to pick")
	ErrPlayerAlreadyDrafted  = errors.New("player has already been drafted")
	ErrPlayerNotFound        = errors.New("player not found")
	ErrNoPlayersAvailable    = errors.New("no players available")

	// ErrStaleTurn is returned to the scheduler when the pick it was armed
	// for has already been made.
	ErrStaleTurn = errors.New("pick already made")
)
