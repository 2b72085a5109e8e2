package game

import (
	"errors"
)

// Sentinel errors returned by Apply. Validation failures never mutate the room.
var (
	ErrInvalidPhase     = errors.New("action not allowed in the current phase")
	ErrUnknownIntent    = errors.New("unknown intent")
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotPlayer        = errors.New("not a player in this room")
	ErrNotAllowed       = errors.New("not allowed")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrValidation       = errors.New("invalid input")
	ErrDuplicateItem    = errors.New("duplicate pantry item")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrNotAllReady      = errors.New("not every player is ready")
	ErrLobbyClosed      = errors.New("room is no longer accepting players")
	ErrHostCannotPlay   = errors.New("the host cannot join as a player")
	ErrLockedOut        = errors.New("locked out until the next correct guess")
	ErrSabotaged        = errors.New("finish your sabotage task first")
	ErrAlreadySabotaged = errors.New("player is already sabotaged")
	ErrNoCharges        = errors.New("no sabotage charges left")
	ErrCardNotInHand    = errors.New("card is not in your hand")
	ErrAlreadyVoted     = errors.New("already voted")
	ErrEmptyPool        = errors.New("source pool is empty")

	// ErrNoChange means the intent was valid but left the room as it was.
	ErrNoChange = errors.New("no change")
)

// ErrorCode maps an Apply error to the short code sent to clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, ErrNotHost), errors.Is(err, ErrNotAllowed), errors.Is(err, ErrHostCannotPlay):
		return "forbidden"
	case errors.Is(err, ErrNotPlayer):
		return "not_player"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrDuplicateItem):
		return "duplicate_item"
	case errors.Is(err, ErrNotEnoughPlayers), errors.Is(err, ErrNotAllReady):
		return "not_ready"
	case errors.Is(err, ErrLobbyClosed):
		return "lobby_closed"
	case errors.Is(err, ErrLockedOut):
		return "locked_out"
	case errors.Is(err, ErrSabotaged), errors.Is(err, ErrAlreadySabotaged), errors.Is(err, ErrNoCharges):
		return "sabotage"
	case errors.Is(err, ErrCardNotInHand), errors.Is(err, ErrAlreadyVoted):
		return "conflict"
	case errors.Is(err, ErrEmptyPool):
		return "empty_pool"
	case errors.Is(err, ErrUnknownIntent):
		return "unknown_intent"
	case errors.Is(err, ErrNoChange):
		return "no_change"
	}
	return "invalid"
}
