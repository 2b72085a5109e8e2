// internal/game/saboteur.go
package game

import (
	"fmt"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
)

// cardPile is the saboteur draw engine. A reshuffle only uses cards that are
// neither held in a hand nor sitting in the pot.
func (t *transition) cardPile() *Pile[models.Card] {
	r := t.room
	return NewPile(func() []models.Card { return loose(r) }, &r.CardDeck, &r.CardDiscard)
}

// loose returns the pool cards not held by a player and not in the pot.
func loose(r *models.Room) []models.Card {
	held := make(map[string]bool)
	for _, p := range r.Players {
		for _, c := range p.Hand {
			held[c.ID] = true
		}
	}
	for _, pc := range r.Pot {
		held[pc.Card.ID] = true
	}
	out := make([]models.Card, 0, len(r.Cards))
	for _, c := range r.Cards {
		if !held[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// startRound deals a fresh round, or ends the game after the last one.
func (t *transition) startRound() error {
	if err := t.requireHost(); err != nil {
		return err
	}
	if err := t.requirePhase(models.PhaseLobby, models.PhaseVoteReveal); err != nil {
		return err
	}
	r := t.room
	if r.Status == models.PhaseLobby && len(r.Players) < r.Rules.MinPlayers {
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughPlayers, r.Rules.MinPlayers, len(r.Players))
	}
	if r.CurrentRound >= r.Rules.MaxRounds {
		t.gameOver()
		return nil
	}

	ids := r.SeatedIDs()
	if len(ids) == 0 {
		return fmt.Errorf("%w: every player has left", ErrNotEnoughPlayers)
	}

	r.CurrentRound++
	r.TurnOrder = shuffled(t.rng, ids)
	r.CurrentChefIndex = 0
	r.ActiveChefID = r.TurnOrder[0]

	sab := r.Players[r.Saboteur()]
	if r.CurrentRound == 1 || r.Rules.RotateSaboteur || sab == nil || sab.Left {
		t.assignRoles(ids)
	} else {
		for _, p := range r.Players {
			if p.Role == "" {
				p.Role = models.RoleChef
			}
		}
	}

	r.DishName, r.Recipe = pickDish(t.rng, r.Rules.RecipeSize)
	r.RecipeDone = []string{}
	r.StinkMeter = 0
	r.Pot = []models.PotCard{}
	r.Votes = make(map[string]string)
	r.RoundWinner = ""

	if len(r.Cards) == 0 {
		r.Cards = BuildCardPool()
	}
	for _, p := range r.Players {
		p.Hand = []models.Card{}
	}
	pile := t.cardPile()
	pile.Reset(t.rng)
	for i := 0; i < r.Rules.HandSize; i++ {
		for _, id := range r.TurnOrder {
			c, _, err := pile.Take(t.rng)
			if err != nil {
				break
			}
			r.Players[id].Hand = append(r.Players[id].Hand, c)
		}
	}

	r.Status = models.PhaseRound
	t.emit(EventRoundStarted, "", map[string]interface{}{
		"round":     r.CurrentRound,
		"dish":      r.DishName,
		"recipe":    r.Recipe,
		"turnOrder": r.TurnOrder,
	})
	return nil
}

// takeFromHand removes the named card from the acting turn holder's hand.
func (t *transition) takeFromHand() (*models.Player, models.Card, error) {
	if err := t.requirePhase(models.PhaseRound); err != nil {
		return nil, models.Card{}, err
	}
	p, err := t.player()
	if err != nil {
		return nil, models.Card{}, err
	}
	if p.ID != t.room.ActiveChefID {
		return nil, models.Card{}, ErrNotYourTurn
	}
	idx := p.HandIndex(t.in.CardID)
	if idx < 0 {
		return nil, models.Card{}, ErrCardNotInHand
	}
	card := p.Hand[idx]
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	return p, card, nil
}

func (t *transition) playCard() error {
	p, card, err := t.takeFromHand()
	if err != nil {
		return err
	}
	r := t.room
	r.Pot = append(r.Pot, models.PotCard{Card: card, PlayedBy: p.ID})

	switch {
	case card.Rotten:
		r.StinkMeter += card.Stink
	case needed(r, card.Name):
		r.RecipeDone = append(r.RecipeDone, card.Name)
	default:
		r.StinkMeter += offRecipeStink
	}
	t.emit(EventCardPlayed, p.ID, map[string]interface{}{
		"potSize":    len(r.Pot),
		"stinkMeter": r.StinkMeter,
		"recipeDone": len(r.RecipeDone),
	})

	t.replenish(p)
	t.rotateTurn()

	switch {
	case r.StinkMeter >= r.Rules.StinkThreshold:
		r.Status = models.PhaseTasteTest
		r.RoundWinner = models.RoleSaboteur
		t.emit(EventTasteTest, "", map[string]interface{}{"stinkMeter": r.StinkMeter})
	case len(r.RecipeDone) >= len(r.Recipe):
		r.Status = models.PhaseRoundEnd
		r.RoundWinner = models.RoleChef
		t.emit(EventRoundEnded, "", map[string]interface{}{"dish": r.DishName})
	}
	return nil
}

func (t *transition) tossCard() error {
	p, card, err := t.takeFromHand()
	if err != nil {
		return err
	}
	t.room.CardDiscard = append(t.room.CardDiscard, card)
	t.emit(EventCardTossed, p.ID, nil)
	t.replenish(p)
	t.rotateTurn()
	return nil
}

// needed reports whether the recipe still lacks an ingredient of this name.
func needed(r *models.Room, name string) bool {
	want := 0
	for _, ing := range r.Recipe {
		if ing == name {
			want++
		}
	}
	for _, done := range r.RecipeDone {
		if done == name {
			want--
		}
	}
	return want > 0
}

// replenish refills a hand one-for-one. An exhausted pool leaves it short.
func (t *transition) replenish(p *models.Player) {
	c, reshuffled, err := t.cardPile().Take(t.rng)
	if err != nil {
		return
	}
	if reshuffled {
		t.emit(EventPoolReshuffled, "", map[string]interface{}{"deckSize": len(t.room.CardDeck) + 1})
	}
	p.Hand = append(p.Hand, c)
}

// rotateTurn passes the turn to the next seat whose player has not left.
// With nobody seated the turn stays where it is.
func (t *transition) rotateTurn() {
	r := t.room
	n := len(r.TurnOrder)
	for step := 1; step <= n; step++ {
		i := (r.CurrentChefIndex + step) % n
		if p := r.Players[r.TurnOrder[i]]; p != nil && !p.Left {
			r.CurrentChefIndex = i
			r.ActiveChefID = r.TurnOrder[i]
			return
		}
	}
}

func (t *transition) vote() error {
	if err := t.requirePhase(models.PhaseTasteTest, models.PhaseRoundEnd); err != nil {
		return err
	}
	p, err := t.player()
	if err != nil {
		return err
	}
	r := t.room
	if _, done := r.Votes[p.ID]; done {
		return ErrAlreadyVoted
	}
	if r.Players[t.in.Target] == nil {
		return fmt.Errorf("%w: unknown suspect", ErrValidation)
	}
	if t.in.Target == p.ID {
		return fmt.Errorf("%w: cannot vote for yourself", ErrNotAllowed)
	}
	r.Votes[p.ID] = t.in.Target
	t.emit(EventVoteCast, p.ID, map[string]interface{}{"votes": len(r.Votes)})

	if t.allVoted() {
		t.reveal()
	}
	return nil
}

// allVoted reports whether every player still seated has cast a vote.
func (t *transition) allVoted() bool {
	for _, id := range t.room.SeatedIDs() {
		if _, ok := t.room.Votes[id]; !ok {
			return false
		}
	}
	return true
}

func (t *transition) forceReveal() error {
	if err := t.requireHost(); err != nil {
		return err
	}
	if err := t.requirePhase(models.PhaseTasteTest, models.PhaseRoundEnd); err != nil {
		return err
	}
	t.reveal()
	return nil
}

// reveal scores the round and exposes the saboteur.
func (t *transition) reveal() {
	r := t.room
	sab := r.Saboteur()

	switch r.RoundWinner {
	case models.RoleChef:
		for _, p := range r.Players {
			if p.Role == models.RoleChef {
				award(p, r.Rules.ChefPoints)
			}
		}
	case models.RoleSaboteur:
		if p := r.Players[sab]; p != nil {
			award(p, r.Rules.GuessPoints)
		}
	}

	for voter, suspect := range r.Votes {
		if suspect == sab {
			if p := r.Players[voter]; p != nil {
				award(p, r.Rules.WrongGuessPenalty)
			}
		}
	}

	suspect := plurality(r.Votes)
	caught := sab != "" && suspect == sab
	if caught {
		penalize(r, r.Players[sab], r.Rules.WrongGuessPenalty)
	}

	r.Status = models.PhaseVoteReveal
	t.emit(EventVotesRevealed, "", map[string]interface{}{
		"saboteur": sab,
		"suspect":  suspect,
		"caught":   caught,
		"votes":    r.Votes,
		"winner":   r.RoundWinner,
	})
}

// plurality returns the suspect with strictly the most votes, or "" on a tie.
func plurality(votes map[string]string) string {
	counts := make(map[string]int)
	for _, s := range votes {
		counts[s]++
	}
	best, top, tied := "", 0, false
	for s, n := range counts {
		switch {
		case n > top:
			best, top, tied = s, n, false
		case n == top:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return best
}
