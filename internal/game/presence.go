// internal/game/presence.go
package game

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
)

// MaxNameLength bounds player names, in runes.
const MaxNameLength = 24

func (t *transition) join() error {
	name := strings.TrimSpace(t.in.Name)
	if name == "" {
		return fmt.Errorf("%w: name is blank", ErrValidation)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name longer than %d characters", ErrValidation, MaxNameLength)
	}
	id := t.in.Actor
	if id == "" || id == SystemActor {
		return ErrNotAllowed
	}
	if id == t.room.HostID {
		return ErrHostCannotPlay
	}

	// Re-joining overwrites the existing entry in any phase.
	if p := t.room.Players[id]; p != nil {
		if p.Left {
			p.Left = false
			p.Name = name
			t.emit(EventPlayerJoined, id, map[string]interface{}{"name": name, "rejoined": true})
			return nil
		}
		if p.Name == name {
			return ErrNoChange
		}
		old := p.Name
		p.Name = name
		t.emit(EventPlayerRenamed, id, map[string]interface{}{"from": old, "to": name})
		return nil
	}

	if t.room.Rules.EnforceLobbyJoin && t.room.Status != models.PhaseLobby {
		return ErrLobbyClosed
	}

	p := &models.Player{ID: id, Name: name, JoinedAt: t.now}
	if t.room.Status != models.PhaseLobby {
		// Late joiners play from the next deal.
		switch t.room.Variant {
		case models.VariantKitchen:
			p.SabotageCharges = t.room.Rules.SabotageCharges
		case models.VariantSaboteur:
			p.Role = models.RoleChef
		}
	}
	t.room.Players[id] = p
	t.emit(EventPlayerJoined, id, map[string]interface{}{"name": name})
	return nil
}

func (t *transition) leave() error {
	p, err := t.player()
	if err != nil {
		return err
	}
	if t.room.Status == models.PhaseLobby {
		t.room.Pantry = removeFolded(t.room.Pantry, p.PantryItems)
		delete(t.room.Players, p.ID)
		t.emit(EventPlayerLeft, p.ID, nil)
		return nil
	}
	if p.Left {
		return ErrNoChange
	}
	// Mid-game the entry stays so turn order and scores remain consistent.
	p.Ready = false
	p.Left = true
	t.emit(EventPlayerLeft, p.ID, map[string]interface{}{"kept": true})

	if t.room.Variant != models.VariantSaboteur {
		return nil
	}
	switch t.room.Status {
	case models.PhaseRound:
		if p.ID == t.room.ActiveChefID {
			t.rotateTurn()
		}
	case models.PhaseTasteTest, models.PhaseRoundEnd:
		if t.allVoted() {
			t.reveal()
		}
	}
	return nil
}

func (t *transition) updateRules() error {
	if err := t.requireHost(); err != nil {
		return err
	}
	if err := t.requirePhase(models.PhaseLobby); err != nil {
		return err
	}
	if len(t.in.Rules) == 0 {
		return fmt.Errorf("%w: no rules given", ErrValidation)
	}
	rules, err := models.ParseRules(t.in.Rules, t.room.Rules)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if rules == t.room.Rules {
		return ErrNoChange
	}

	// Submissions of the old size no longer satisfy start.
	cleared := 0
	if rules.PantryItemsPerPlayer != t.room.Rules.PantryItemsPerPlayer {
		for _, p := range t.room.SortedPlayers() {
			if len(p.PantryItems) == 0 {
				continue
			}
			t.room.Pantry = removeFolded(t.room.Pantry, p.PantryItems)
			p.PantryItems = nil
			p.Ready = false
			cleared++
		}
	}
	t.room.Rules = rules
	t.emit(EventRulesUpdated, "", map[string]interface{}{"rules": rules, "pantriesCleared": cleared})
	return nil
}

// reset returns the room to the lobby with every per-game field zeroed.
// Players stay seated.
func (t *transition) reset() error {
	if err := t.requireHost(); err != nil {
		return err
	}
	r := t.room
	for _, p := range r.Players {
		p.ResetTransient()
	}
	r.Status = models.PhaseLobby
	r.Pantry = []string{}
	r.Deck = []string{}
	r.Discard = []string{}
	r.Cards = nil
	r.CardDeck = nil
	r.CardDiscard = nil
	r.Pot = nil
	r.DishName = ""
	r.Recipe = nil
	r.RecipeDone = nil
	r.CurrentRound = 0
	r.CurrentChefIndex = 0
	r.TurnOrder = []string{}
	r.ActiveChefID = ""
	r.ActiveIngredient = ""
	r.Countdown = 0
	r.Timer = 0
	r.Completed = []string{}
	r.Sabotages = make(map[string]*models.Sabotage)
	r.StinkMeter = 0
	r.Votes = make(map[string]string)
	r.RoundWinner = ""
	t.emit(EventRoomReset, "", nil)
	return nil
}

// assignRoles deals the saboteur role to the head of a fresh permutation of
// ids. Everyone else, seated or not, becomes a chef.
func (t *transition) assignRoles(ids []string) {
	perm := shuffled(t.rng, ids)
	for _, p := range t.room.Players {
		p.Role = models.RoleChef
	}
	if len(perm) > 0 {
		t.room.Players[perm[0]].Role = models.RoleSaboteur
	}
}

func (t *transition) sabotage() error {
	if err := t.requirePhase(models.PhasePlaying); err != nil {
		return err
	}
	p, err := t.player()
	if err != nil {
		return err
	}
	target := t.room.Players[t.in.Target]
	if target == nil {
		return fmt.Errorf("%w: unknown target", ErrValidation)
	}
	if target.ID == p.ID {
		return fmt.Errorf("%w: cannot sabotage yourself", ErrNotAllowed)
	}
	if target.ID == t.room.ActiveChefID {
		return fmt.Errorf("%w: cannot sabotage the chef", ErrNotAllowed)
	}
	if !t.in.Task.Valid() {
		return fmt.Errorf("%w: unknown task %q", ErrValidation, t.in.Task)
	}
	if p.SabotageCharges <= 0 {
		return ErrNoCharges
	}
	if _, busy := t.room.Sabotages[target.ID]; busy {
		return ErrAlreadySabotaged
	}

	p.SabotageCharges--
	t.room.Sabotages[target.ID] = &models.Sabotage{
		By:        p.ID,
		Task:      t.in.Task,
		Remaining: t.room.Rules.SabotageSeconds,
	}
	t.emit(EventSabotageStarted, target.ID, map[string]interface{}{"task": t.in.Task})
	return nil
}

func (t *transition) sabotageProgress() error {
	if err := t.requirePhase(models.PhasePlaying); err != nil {
		return err
	}
	p, err := t.player()
	if err != nil {
		return err
	}
	s := t.room.Sabotages[p.ID]
	if s == nil {
		return fmt.Errorf("%w: no task outstanding", ErrNotAllowed)
	}
	v := t.in.Progress
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: bad progress value", ErrValidation)
	}
	if v <= s.Progress {
		return ErrNoChange
	}
	s.Progress = v
	if s.Progress >= s.Task.Goal() {
		delete(t.room.Sabotages, p.ID)
		t.emit(EventSabotageCleared, p.ID, map[string]interface{}{"task": s.Task})
	}
	return nil
}

// tickSabotages counts every outstanding task down and releases the expired ones.
func (t *transition) tickSabotages() {
	for _, id := range t.room.PlayerIDs() {
		s := t.room.Sabotages[id]
		if s == nil {
			continue
		}
		s.Remaining--
		if s.Remaining <= 0 {
			delete(t.room.Sabotages, id)
			t.emit(EventSabotageExpired, id, map[string]interface{}{"task": s.Task})
		}
	}
}
