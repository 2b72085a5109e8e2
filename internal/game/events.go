// internal/game/events.go
package game

// EventType names a committed room event. Events are broadcast to every
// subscriber and queued for the historian, so payloads never carry secrets
// such as the active ingredient or a hidden role before the reveal.
type EventType string

const (
	EventPlayerJoined    EventType = "player_joined"
	EventPlayerRenamed   EventType = "player_renamed"
	EventPlayerLeft      EventType = "player_left"
	EventRulesUpdated    EventType = "rules_updated"
	EventRoomReset       EventType = "room_reset"
	EventPantrySubmitted EventType = "pantry_submitted"
	EventGameStarted     EventType = "game_started"
	EventTurnStarted     EventType = "turn_started"
	EventCountdown       EventType = "countdown"
	EventPromptDrawn     EventType = "prompt_drawn"
	EventPromptSkipped   EventType = "prompt_skipped"
	EventPoolReshuffled  EventType = "pool_reshuffled"
	EventGuessCorrect    EventType = "guess_correct"
	EventGuessWrong      EventType = "guess_wrong"
	EventTurnEnded       EventType = "turn_ended"
	EventSabotageStarted EventType = "sabotage_started"
	EventSabotageCleared EventType = "sabotage_cleared"
	EventSabotageExpired EventType = "sabotage_expired"
	EventRoundStarted    EventType = "round_started"
	EventCardPlayed      EventType = "card_played"
	EventCardTossed      EventType = "card_tossed"
	EventTasteTest       EventType = "taste_test"
	EventRoundEnded      EventType = "round_ended"
	EventVoteCast        EventType = "vote_cast"
	EventVotesRevealed   EventType = "votes_revealed"
	EventGameOver        EventType = "game_over"
)

// Event describes one thing that happened while applying an intent.
type Event struct {
	Type    EventType              `json:"type"`
	Actor   string                 `json:"actor,omitempty"`
	Target  string                 `json:"target,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
