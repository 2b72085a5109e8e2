// internal/game/kitchen.go
package game

import (
	"fmt"
	"strings"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
)

// pantryPile is the kitchen draw engine over the shared pantry.
func (t *transition) pantryPile() *Pile[string] {
	r := t.room
	return NewPile(func() []string { return r.Pantry }, &r.Deck, &r.Discard)
}

func (t *transition) submitPantry() error {
	if err := t.requirePhase(models.PhaseLobby); err != nil {
		return err
	}
	p, err := t.player()
	if err != nil {
		return err
	}
	want := t.room.Rules.PantryItemsPerPlayer
	if len(t.in.Items) != want {
		return fmt.Errorf("%w: submit exactly %d items", ErrValidation, want)
	}

	// Everyone else's items; a resubmission replaces the player's own.
	others := removeFolded(t.room.Pantry, p.PantryItems)
	taken := make(map[string]bool, len(others)+want)
	for _, item := range others {
		taken[Fold(item)] = true
	}

	items := make([]string, 0, want)
	for _, raw := range t.in.Items {
		item := strings.Join(strings.Fields(raw), " ")
		if item == "" {
			return fmt.Errorf("%w: blank item", ErrValidation)
		}
		key := Fold(item)
		if taken[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateItem, item)
		}
		taken[key] = true
		items = append(items, item)
	}

	t.room.Pantry = append(others, items...)
	p.PantryItems = items
	p.Ready = true
	t.emit(EventPantrySubmitted, p.ID, map[string]interface{}{"pantrySize": len(t.room.Pantry)})
	return nil
}

// startGame deals the kitchen game: shuffled deck, fixed turn order, charges.
func (t *transition) startGame() error {
	if err := t.requireHost(); err != nil {
		return err
	}
	if err := t.requirePhase(models.PhaseLobby); err != nil {
		return err
	}
	r := t.room
	if len(r.Players) < r.Rules.MinPlayers {
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughPlayers, r.Rules.MinPlayers, len(r.Players))
	}
	for _, p := range r.Players {
		if !p.Ready {
			return ErrNotAllReady
		}
	}
	if len(r.Pantry) == 0 {
		return ErrEmptyPool
	}

	t.pantryPile().Reset(t.rng)
	r.TurnOrder = shuffled(t.rng, r.PlayerIDs())
	r.CurrentChefIndex = 0
	r.ActiveChefID = r.TurnOrder[0]
	r.CurrentRound = 1
	r.Completed = []string{}
	r.Sabotages = make(map[string]*models.Sabotage)
	for _, p := range r.Players {
		p.SabotageCharges = r.Rules.SabotageCharges
		p.IsLockedOut = false
	}
	r.Status = models.PhaseIntermission

	t.emit(EventGameStarted, "", map[string]interface{}{
		"turnOrder":  r.TurnOrder,
		"pantrySize": len(r.Pantry),
	})
	t.emit(EventTurnStarted, r.ActiveChefID, map[string]interface{}{"round": r.CurrentRound})
	return nil
}

// readyUp is the chef's handshake that starts the intermission countdown.
func (t *transition) readyUp() error {
	if err := t.requirePhase(models.PhaseIntermission); err != nil {
		return err
	}
	if t.in.Actor != t.room.ActiveChefID {
		return ErrNotYourTurn
	}
	if t.room.Countdown > 0 {
		return ErrNoChange
	}
	if t.room.Rules.CountdownTicks == 0 {
		return t.beginPlaying()
	}
	t.room.Countdown = t.room.Rules.CountdownTicks
	t.emit(EventCountdown, t.room.ActiveChefID, map[string]interface{}{"value": t.room.Countdown})
	return nil
}

func (t *transition) tickKitchen() error {
	r := t.room
	switch r.Status {
	case models.PhaseIntermission:
		if r.Countdown <= 0 {
			return ErrNoChange
		}
		r.Countdown--
		if r.Countdown == 0 {
			return t.beginPlaying()
		}
		t.emit(EventCountdown, r.ActiveChefID, map[string]interface{}{"value": r.Countdown})
		return nil
	case models.PhasePlaying:
		r.Timer--
		t.tickSabotages()
		if r.Timer <= 0 {
			return t.advanceTurn("timeout")
		}
		return nil
	}
	return ErrNoChange
}

func (t *transition) beginPlaying() error {
	t.room.Status = models.PhasePlaying
	t.room.Countdown = 0
	t.room.Timer = t.room.Rules.TurnSeconds
	return t.nextPrompt()
}

// nextPrompt draws the next ingredient for the active chef.
func (t *transition) nextPrompt() error {
	item, reshuffled, err := t.pantryPile().Draw(t.rng)
	if err != nil {
		return err
	}
	if reshuffled {
		t.emit(EventPoolReshuffled, "", map[string]interface{}{"deckSize": len(t.room.Deck) + 1})
	}
	t.room.ActiveIngredient = item
	t.emit(EventPromptDrawn, t.room.ActiveChefID, map[string]interface{}{"deckSize": len(t.room.Deck)})
	return nil
}

func (t *transition) guess() error {
	if err := t.requirePhase(models.PhasePlaying); err != nil {
		return err
	}
	p, err := t.player()
	if err != nil {
		return err
	}
	r := t.room
	if p.ID == r.ActiveChefID {
		return fmt.Errorf("%w: the chef cannot guess", ErrNotAllowed)
	}
	if p.IsLockedOut {
		return ErrLockedOut
	}
	if _, busy := r.Sabotages[p.ID]; busy {
		return ErrSabotaged
	}
	if strings.TrimSpace(t.in.Value) == "" {
		return fmt.Errorf("%w: blank guess", ErrValidation)
	}

	if !matches(t.in.Value, r.ActiveIngredient, r.Rules.LenientGuesses) {
		p.IsLockedOut = true
		penalize(r, p, r.Rules.WrongGuessPenalty)
		t.emit(EventGuessWrong, p.ID, map[string]interface{}{
			"guess": strings.TrimSpace(t.in.Value),
			"score": p.Score,
		})
		return nil
	}

	award(p, r.Rules.GuessPoints)
	if chef := r.Players[r.ActiveChefID]; chef != nil {
		award(chef, r.Rules.ChefPoints)
	}
	solved := r.ActiveIngredient
	r.Completed = append(r.Completed, solved)
	for _, other := range r.Players {
		other.IsLockedOut = false
	}
	t.emit(EventGuessCorrect, p.ID, map[string]interface{}{"item": solved})
	return t.nextPrompt()
}

func (t *transition) skip() error {
	if err := t.requirePhase(models.PhasePlaying); err != nil {
		return err
	}
	if t.in.Actor != t.room.ActiveChefID {
		return ErrNotYourTurn
	}
	t.emit(EventPromptSkipped, t.room.ActiveChefID, nil)
	return t.nextPrompt()
}

func (t *transition) endTurn() error {
	if err := t.requirePhase(models.PhaseIntermission, models.PhasePlaying); err != nil {
		return err
	}
	if t.in.Actor != t.room.HostID && t.in.Actor != t.room.ActiveChefID {
		return ErrNotAllowed
	}
	return t.advanceTurn("ended")
}

// advanceTurn rotates the chef cursor, clears per-turn state, and restocks
// the pool. Passing the last chef ends the game.
func (t *transition) advanceTurn(reason string) error {
	r := t.room
	t.emit(EventTurnEnded, r.ActiveChefID, map[string]interface{}{
		"reason":    reason,
		"completed": len(r.Completed),
	})

	r.CurrentChefIndex++
	r.Timer = 0
	r.Countdown = 0
	r.Completed = []string{}
	r.Sabotages = make(map[string]*models.Sabotage)
	r.ActiveIngredient = ""
	for _, p := range r.Players {
		p.IsLockedOut = false
	}

	if r.CurrentChefIndex >= len(r.TurnOrder) {
		t.gameOver()
		return nil
	}

	r.ActiveChefID = r.TurnOrder[r.CurrentChefIndex]
	r.CurrentRound++
	r.Status = models.PhaseIntermission
	if t.pantryPile().Restock(t.rng) {
		t.emit(EventPoolReshuffled, "", map[string]interface{}{"deckSize": len(r.Deck)})
	}
	t.emit(EventTurnStarted, r.ActiveChefID, map[string]interface{}{"round": r.CurrentRound})
	return nil
}

// removeFolded returns pool without one occurrence of each of items,
// compared by folded key.
func removeFolded(pool, items []string) []string {
	drop := make(map[string]int, len(items))
	for _, item := range items {
		drop[Fold(item)]++
	}
	out := make([]string, 0, len(pool))
	for _, item := range pool {
		key := Fold(item)
		if drop[key] > 0 {
			drop[key]--
			continue
		}
		out = append(out, item)
	}
	return out
}
