// internal/game/intent.go
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
)

// IntentType names a client or clock request against a room.
type IntentType string

const (
	IntentJoin        IntentType = "join"
	IntentLeave       IntentType = "leave"
	IntentUpdateRules IntentType = "update_rules"
	IntentReset       IntentType = "reset"
	IntentTick        IntentType = "tick"

	// kitchen
	IntentSubmitPantry     IntentType = "submit_pantry"
	IntentStart            IntentType = "start"
	IntentReady            IntentType = "ready"
	IntentGuess            IntentType = "guess"
	IntentSkip             IntentType = "skip"
	IntentEndTurn          IntentType = "end_turn"
	IntentSabotage         IntentType = "sabotage"
	IntentSabotageProgress IntentType = "sabotage_progress"

	// saboteur
	IntentStartRound IntentType = "start_round"
	IntentPlayCard   IntentType = "play_card"
	IntentTossCard   IntentType = "toss_card"
	IntentVote       IntentType = "vote"
	IntentReveal     IntentType = "reveal"
)

// SystemActor is the actor id of intents issued by the room clock.
const SystemActor = "system"

// Intent is one request against a room. Actor is filled in by the transport
// from the authenticated identity and is never read from client payloads.
type Intent struct {
	Type     IntentType             `json:"type"`
	Actor    string                 `json:"-"`
	Name     string                 `json:"name,omitempty"`
	Items    []string               `json:"items,omitempty"`
	Value    string                 `json:"value,omitempty"`
	Target   string                 `json:"target,omitempty"`
	Task     models.SabotageTask    `json:"task,omitempty"`
	Progress float64                `json:"progress,omitempty"`
	CardID   string                 `json:"cardId,omitempty"`
	Rules    map[string]interface{} `json:"rules,omitempty"`
}

// transition carries the working copy of a room through one intent.
type transition struct {
	room   *models.Room
	in     Intent
	rng    *rand.Rand
	now    time.Time
	events []Event
}

func (t *transition) emit(typ EventType, target string, payload map[string]interface{}) {
	actor := t.in.Actor
	if actor == SystemActor {
		actor = ""
	}
	t.events = append(t.events, Event{Type: typ, Actor: actor, Target: target, Payload: payload})
}

// player returns the acting player or ErrNotPlayer.
func (t *transition) player() (*models.Player, error) {
	p := t.room.Players[t.in.Actor]
	if p == nil {
		return nil, ErrNotPlayer
	}
	return p, nil
}

func (t *transition) requireHost() error {
	if t.in.Actor == "" || t.in.Actor != t.room.HostID {
		return ErrNotHost
	}
	return nil
}

func (t *transition) requirePhase(phases ...models.Phase) error {
	for _, ph := range phases {
		if t.room.Status == ph {
			return nil
		}
	}
	return fmt.Errorf("%w: room is %s", ErrInvalidPhase, t.room.Status)
}

// Apply runs one intent against a copy of room. On success it returns the
// new room and the events produced; on failure it returns the untouched
// input room and the error. All randomness is drawn from rng.
func Apply(room *models.Room, in Intent, rng *rand.Rand, now time.Time) (*models.Room, []Event, error) {
	if room == nil {
		return nil, nil, fmt.Errorf("%w: nil room", ErrValidation)
	}
	t := &transition{room: room.Clone(), in: in, rng: rng, now: now}

	var err error
	switch in.Type {
	case IntentJoin:
		err = t.join()
	case IntentLeave:
		err = t.leave()
	case IntentUpdateRules:
		err = t.updateRules()
	case IntentReset:
		err = t.reset()
	case IntentTick:
		err = t.tick()
	default:
		switch room.Variant {
		case models.VariantKitchen:
			err = t.applyKitchen()
		case models.VariantSaboteur:
			err = t.applySaboteur()
		default:
			err = fmt.Errorf("%w: unknown variant %q", ErrValidation, room.Variant)
		}
	}
	if err != nil {
		return room, nil, err
	}

	t.room.UpdatedAt = now
	return t.room, t.events, nil
}

func (t *transition) applyKitchen() error {
	switch t.in.Type {
	case IntentSubmitPantry:
		return t.submitPantry()
	case IntentStart:
		return t.startGame()
	case IntentReady:
		return t.readyUp()
	case IntentGuess:
		return t.guess()
	case IntentSkip:
		return t.skip()
	case IntentEndTurn:
		return t.endTurn()
	case IntentSabotage:
		return t.sabotage()
	case IntentSabotageProgress:
		return t.sabotageProgress()
	}
	return fmt.Errorf("%w: %q", ErrUnknownIntent, t.in.Type)
}

func (t *transition) applySaboteur() error {
	switch t.in.Type {
	case IntentStartRound:
		return t.startRound()
	case IntentPlayCard:
		return t.playCard()
	case IntentTossCard:
		return t.tossCard()
	case IntentVote:
		return t.vote()
	case IntentReveal:
		return t.forceReveal()
	}
	return fmt.Errorf("%w: %q", ErrUnknownIntent, t.in.Type)
}

func (t *transition) tick() error {
	if t.in.Actor != SystemActor {
		return ErrNotAllowed
	}
	if t.room.Variant == models.VariantKitchen {
		return t.tickKitchen()
	}
	return ErrNoChange
}
