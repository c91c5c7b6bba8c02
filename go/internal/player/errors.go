package player

import "errors"

// ErrInactive is returned when a player exists but is not draftable
var ErrInactive = errors.New("player is not active")
