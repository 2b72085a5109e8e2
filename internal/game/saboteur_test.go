package game

import (
	"math/rand"
	"testing"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cardIDs lists every card id held in deck, discard, hands, and pot.
func cardIDs(r *models.Room) []string {
	var ids []string
	for _, c := range r.CardDeck {
		ids = append(ids, c.ID)
	}
	for _, c := range r.CardDiscard {
		ids = append(ids, c.ID)
	}
	for _, p := range r.Players {
		for _, c := range p.Hand {
			ids = append(ids, c.ID)
		}
	}
	for _, pc := range r.Pot {
		ids = append(ids, pc.Card.ID)
	}
	return ids
}

func poolIDs(r *models.Room) []string {
	ids := make([]string, len(r.Cards))
	for i, c := range r.Cards {
		ids[i] = c.ID
	}
	return ids
}

func countSaboteurs(r *models.Room) int {
	n := 0
	for _, p := range r.Players {
		if p.Role == models.RoleSaboteur {
			n++
		}
	}
	return n
}

func startedSaboteur(t *testing.T, players ...string) *models.Room {
	t.Helper()
	rng := newRNG()
	r := newSaboteurRoom(t, rng, players...)
	r, _ = mustApply(t, r, Intent{Type: IntentStartRound, Actor: hostID}, rng)
	return r
}

func TestStartRoundDeals(t *testing.T) {
	r := startedSaboteur(t, "p1", "p2", "p3", "p4")

	assert.Equal(t, models.PhaseRound, r.Status)
	assert.Equal(t, 1, r.CurrentRound)
	assert.ElementsMatch(t, []string{"p1", "p2", "p3", "p4"}, r.TurnOrder)
	assert.Equal(t, r.TurnOrder[0], r.ActiveChefID)
	assert.Equal(t, 1, countSaboteurs(r))
	assert.NotContains(t, r.Players, hostID, "host never holds a seat")
	assert.NotEmpty(t, r.DishName)
	assert.Len(t, r.Recipe, 4)
	assert.Empty(t, r.RecipeDone)
	for _, p := range r.Players {
		assert.Len(t, p.Hand, 5)
	}
	assert.Len(t, r.CardDeck, len(r.Cards)-20)
	assert.ElementsMatch(t, poolIDs(r), cardIDs(r), "deck, hands and pot partition the pool")
}

func TestStartRoundValidation(t *testing.T) {
	rng := newRNG()
	r := newSaboteurRoom(t, rng, "p1")
	_, _, err := Apply(r, Intent{Type: IntentStartRound, Actor: hostID}, rng, t0)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	r = startedSaboteur(t, "p1", "p2")
	_, _, err = Apply(r, Intent{Type: IntentStartRound, Actor: hostID}, rng, t0)
	assert.ErrorIs(t, err, ErrInvalidPhase, "cannot redeal mid-round")
}

func TestPlayCardProgressAndRotation(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2", "p3")
	chef := r.ActiveChefID
	next := r.TurnOrder[1]

	r.Recipe = []string{"Tomato", "Onion"}
	r.Players[chef].Hand[0] = models.Card{ID: "x1", Name: "Tomato"}

	_, _, err := Apply(r, Intent{Type: IntentPlayCard, Actor: next, CardID: "x1"}, rng, t0)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	_, _, err = Apply(r, Intent{Type: IntentPlayCard, Actor: chef, CardID: "missing"}, rng, t0)
	assert.ErrorIs(t, err, ErrCardNotInHand)

	r, evs := mustApply(t, r, Intent{Type: IntentPlayCard, Actor: chef, CardID: "x1"}, rng)
	assert.Equal(t, []string{"Tomato"}, r.RecipeDone)
	assert.Zero(t, r.StinkMeter)
	assert.Len(t, r.Pot, 1)
	assert.Equal(t, chef, r.Pot[0].PlayedBy)
	assert.Len(t, r.Players[chef].Hand, 5, "hand replenished one-for-one")
	assert.Equal(t, next, r.ActiveChefID)
	assert.Equal(t, models.PhaseRound, r.Status)
	assert.True(t, hasEvent(evs, EventCardPlayed))
}

func TestRecipeCompleteEndsRound(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2", "p3")
	chef := r.ActiveChefID
	r.Recipe = []string{"Tomato"}
	r.Players[chef].Hand[0] = models.Card{ID: "x1", Name: "Tomato"}

	r, evs := mustApply(t, r, Intent{Type: IntentPlayCard, Actor: chef, CardID: "x1"}, rng)
	assert.Equal(t, models.PhaseRoundEnd, r.Status)
	assert.Equal(t, models.RoleChef, r.RoundWinner)
	assert.True(t, hasEvent(evs, EventRoundEnded))
}

func TestStinkPreemptsCompletion(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2", "p3")
	chef := r.ActiveChefID
	r.Recipe = []string{"Tomato"}
	r.StinkMeter = 95
	r.Players[chef].Hand[0] = models.Card{ID: "x1", Name: "Garlic"}

	r, evs := mustApply(t, r, Intent{Type: IntentPlayCard, Actor: chef, CardID: "x1"}, rng)
	assert.Equal(t, 105, r.StinkMeter, "off-recipe ingredient adds stink")
	assert.Equal(t, models.PhaseTasteTest, r.Status)
	assert.Equal(t, models.RoleSaboteur, r.RoundWinner)
	assert.True(t, hasEvent(evs, EventTasteTest))
}

func TestRottenCardAddsItsStink(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2")
	chef := r.ActiveChefID
	r.Players[chef].Hand[0] = models.Card{ID: "x1", Name: "Old Fish", Stink: 40, Rotten: true}

	r, _ = mustApply(t, r, Intent{Type: IntentPlayCard, Actor: chef, CardID: "x1"}, rng)
	assert.Equal(t, 40, r.StinkMeter)
	assert.Equal(t, models.PhaseRound, r.Status)
}

func TestTossCard(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2")
	chef := r.ActiveChefID
	card := r.Players[chef].Hand[2]

	r, evs := mustApply(t, r, Intent{Type: IntentTossCard, Actor: chef, CardID: card.ID}, rng)
	require.True(t, hasEvent(evs, EventCardTossed))
	for _, ev := range evs {
		if ev.Type == EventCardTossed {
			assert.Equal(t, chef, ev.Actor)
			assert.Empty(t, ev.Payload, "a tossed card stays hidden")
		}
	}
	assert.Equal(t, []models.Card{card}, r.CardDiscard)
	assert.Empty(t, r.Pot)
	assert.Equal(t, -1, r.Players[chef].HandIndex(card.ID))
	assert.Len(t, r.Players[chef].Hand, 5)
	assert.NotEqual(t, chef, r.ActiveChefID)
	assert.ElementsMatch(t, poolIDs(r), cardIDs(r))
}

func TestCardDeckReshufflesLooseCards(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2")
	for len(r.CardDeck) > 0 {
		chef := r.ActiveChefID
		r, _ = mustApply(t, r, Intent{Type: IntentTossCard, Actor: chef, CardID: r.Players[chef].Hand[0].ID}, rng)
	}
	chef := r.ActiveChefID
	r, evs := mustApply(t, r, Intent{Type: IntentTossCard, Actor: chef, CardID: r.Players[chef].Hand[0].ID}, rng)
	assert.True(t, hasEvent(evs, EventPoolReshuffled))
	assert.Empty(t, r.CardDiscard)
	assert.ElementsMatch(t, poolIDs(r), cardIDs(r), "reshuffle excludes held cards")
}

// reachRoundEnd forces the room into ROUND_END with the chefs winning.
func reachRoundEnd(t *testing.T, rng *rand.Rand, r *models.Room) *models.Room {
	t.Helper()
	chef := r.ActiveChefID
	r.Recipe = []string{"Tomato"}
	r.RecipeDone = []string{}
	r.StinkMeter = 0
	r.Players[chef].Hand[0] = models.Card{ID: "x1", Name: "Tomato"}
	r, _ = mustApply(t, r, Intent{Type: IntentPlayCard, Actor: chef, CardID: "x1"}, rng)
	require.Equal(t, models.PhaseRoundEnd, r.Status)
	return r
}

func TestVotingRevealsAndScores(t *testing.T) {
	rng := newRNG()
	r := newSaboteurRoom(t, rng, "p1", "p2", "p3", "p4")
	r, _ = mustApply(t, r, Intent{Type: IntentStartRound, Actor: hostID}, rng)
	r = reachRoundEnd(t, rng, r)
	sab := r.Saboteur()
	require.NotEmpty(t, sab)

	var chefs []string
	for _, id := range r.PlayerIDs() {
		if id != sab {
			chefs = append(chefs, id)
		}
	}

	_, _, err := Apply(r, Intent{Type: IntentVote, Actor: chefs[0], Target: chefs[0]}, rng, t0)
	assert.ErrorIs(t, err, ErrNotAllowed)

	for i, id := range chefs {
		r, _ = mustApply(t, r, Intent{Type: IntentVote, Actor: id, Target: sab}, rng)
		if i == 0 {
			_, _, err = Apply(r, Intent{Type: IntentVote, Actor: id, Target: sab}, rng, t0)
			assert.ErrorIs(t, err, ErrAlreadyVoted)
		}
	}
	assert.Equal(t, models.PhaseRoundEnd, r.Status, "waiting on the last vote")

	r, evs := mustApply(t, r, Intent{Type: IntentVote, Actor: sab, Target: chefs[0]}, rng)
	assert.Equal(t, models.PhaseVoteReveal, r.Status)
	assert.True(t, hasEvent(evs, EventVotesRevealed))

	for _, id := range chefs {
		assert.Equal(t, 300+100, r.Players[id].Score, "round bonus plus correct vote")
	}
	assert.Equal(t, -100, r.Players[sab].Score, "saboteur variant does not clamp")
}

func TestSaboteurClampedPenalty(t *testing.T) {
	rng := newRNG()
	r := newSaboteurRoom(t, rng, "p1", "p2", "p3")
	r.Rules.ClampScores = true
	r, _ = mustApply(t, r, Intent{Type: IntentStartRound, Actor: hostID}, rng)
	r = reachRoundEnd(t, rng, r)
	sab := r.Saboteur()
	for _, id := range r.PlayerIDs() {
		if id != sab {
			r, _ = mustApply(t, r, Intent{Type: IntentVote, Actor: id, Target: sab}, rng)
		}
	}
	r, _ = mustApply(t, r, Intent{Type: IntentReveal, Actor: hostID}, rng)
	assert.Equal(t, models.PhaseVoteReveal, r.Status)
	assert.Zero(t, r.Players[sab].Score)
}

func TestTasteTestRewardsSaboteur(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2", "p3")
	chef := r.ActiveChefID
	r.StinkMeter = 99
	r.Players[chef].Hand[0] = models.Card{ID: "x1", Name: "Rotten Egg", Stink: 35, Rotten: true}
	r, _ = mustApply(t, r, Intent{Type: IntentPlayCard, Actor: chef, CardID: "x1"}, rng)
	require.Equal(t, models.PhaseTasteTest, r.Status)

	_, _, err := Apply(r, Intent{Type: IntentReveal, Actor: chef}, rng, t0)
	assert.ErrorIs(t, err, ErrNotHost)

	r, _ = mustApply(t, r, Intent{Type: IntentReveal, Actor: hostID}, rng)
	sab := r.Saboteur()
	assert.Equal(t, 500, r.Players[sab].Score, "no votes, so only the win bonus")
	for _, id := range r.PlayerIDs() {
		if id != sab {
			assert.Zero(t, r.Players[id].Score)
		}
	}
}

func TestRoundsEndAfterMax(t *testing.T) {
	rng := newRNG()
	r := newSaboteurRoom(t, rng, "p1", "p2", "p3")
	r.Rules.MaxRounds = 2

	r, _ = mustApply(t, r, Intent{Type: IntentStartRound, Actor: hostID}, rng)
	first := r.Saboteur()
	r = reachRoundEnd(t, rng, r)
	r, _ = mustApply(t, r, Intent{Type: IntentReveal, Actor: hostID}, rng)

	r, _ = mustApply(t, r, Intent{Type: IntentStartRound, Actor: hostID}, rng)
	assert.Equal(t, 2, r.CurrentRound)
	assert.Equal(t, first, r.Saboteur(), "saboteur kept for the whole game")
	assert.Equal(t, 1, countSaboteurs(r))

	r = reachRoundEnd(t, rng, r)
	r, _ = mustApply(t, r, Intent{Type: IntentReveal, Actor: hostID}, rng)
	r, evs := mustApply(t, r, Intent{Type: IntentStartRound, Actor: hostID}, rng)
	assert.Equal(t, models.PhaseGameOver, r.Status)
	assert.Equal(t, 2, r.CurrentRound)
	assert.True(t, hasEvent(evs, EventGameOver))
}

func TestSaboteurReset(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2")
	r, _ = mustApply(t, r, Intent{Type: IntentReset, Actor: hostID}, rng)
	assert.Equal(t, models.PhaseLobby, r.Status)
	assert.Empty(t, r.Cards)
	assert.Empty(t, r.CardDeck)
	assert.Empty(t, r.Pot)
	assert.Empty(t, r.Recipe)
	for _, p := range r.Players {
		assert.Empty(t, p.Hand)
		assert.Empty(t, p.Role)
	}
}

func TestPlurality(t *testing.T) {
	assert.Equal(t, "a", plurality(map[string]string{"x": "a", "y": "a", "z": "b"}))
	assert.Equal(t, "", plurality(map[string]string{"x": "a", "y": "b"}))
	assert.Equal(t, "", plurality(nil))
}

func TestBuildCardPoolIsStable(t *testing.T) {
	a, b := BuildCardPool(), BuildCardPool()
	assert.Equal(t, a, b)
	seen := map[string]bool{}
	for _, c := range a {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

// tossFirst has the turn holder throw away the first card in their hand.
func tossFirst(t *testing.T, rng *rand.Rand, r *models.Room) *models.Room {
	t.Helper()
	chef := r.ActiveChefID
	r, _ = mustApply(t, r, Intent{Type: IntentTossCard, Actor: chef, CardID: r.Players[chef].Hand[0].ID}, rng)
	return r
}

func TestTurnHolderLeavingPassesTheTurn(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2", "p3")
	order := append([]string{}, r.TurnOrder...)
	holder := order[0]

	r, evs := mustApply(t, r, Intent{Type: IntentLeave, Actor: holder}, rng)
	assert.True(t, hasEvent(evs, EventPlayerLeft))
	require.Contains(t, r.Players, holder, "mid-game leave keeps the seat")
	assert.True(t, r.Players[holder].Left)
	assert.Equal(t, models.PhaseRound, r.Status)
	assert.Equal(t, order[1], r.ActiveChefID)

	r = tossFirst(t, rng, r)
	assert.Equal(t, order[2], r.ActiveChefID)
	r = tossFirst(t, rng, r)
	assert.Equal(t, order[1], r.ActiveChefID, "the empty seat is skipped")

	_, _, err := Apply(r, Intent{Type: IntentLeave, Actor: holder}, rng, t0)
	assert.ErrorIs(t, err, ErrNoChange)

	r, evs = mustApply(t, r, Intent{Type: IntentJoin, Actor: holder, Name: "Back Again"}, rng)
	assert.True(t, hasEvent(evs, EventPlayerJoined))
	assert.False(t, r.Players[holder].Left)
	r = tossFirst(t, rng, r)
	r = tossFirst(t, rng, r)
	assert.Equal(t, holder, r.ActiveChefID, "a returning player gets the seat back")
}

func TestOtherPlayerLeavingKeepsTheTurn(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2", "p3")
	chef := r.ActiveChefID
	r, _ = mustApply(t, r, Intent{Type: IntentLeave, Actor: r.TurnOrder[2]}, rng)
	assert.Equal(t, chef, r.ActiveChefID)
	r = tossFirst(t, rng, r)
	r = tossFirst(t, rng, r)
	assert.Equal(t, chef, r.ActiveChefID)
}

func TestLastVoteOwedByLeaverReveals(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2", "p3", "p4")
	r = reachRoundEnd(t, rng, r)
	ids := r.PlayerIDs()

	for i, id := range ids[:3] {
		r, _ = mustApply(t, r, Intent{Type: IntentVote, Actor: id, Target: ids[(i+1)%3]}, rng)
	}
	assert.Equal(t, models.PhaseRoundEnd, r.Status, "waiting on the last vote")

	r, evs := mustApply(t, r, Intent{Type: IntentLeave, Actor: ids[3]}, rng)
	assert.Equal(t, models.PhaseVoteReveal, r.Status)
	assert.True(t, hasEvent(evs, EventVotesRevealed))
}

func TestNextRoundDealsOnlySeatedPlayers(t *testing.T) {
	rng := newRNG()
	r := startedSaboteur(t, "p1", "p2", "p3")
	r = reachRoundEnd(t, rng, r)
	r, _ = mustApply(t, r, Intent{Type: IntentReveal, Actor: hostID}, rng)
	sab := r.Saboteur()
	require.NotEmpty(t, sab)

	r, _ = mustApply(t, r, Intent{Type: IntentLeave, Actor: sab}, rng)
	r, _ = mustApply(t, r, Intent{Type: IntentStartRound, Actor: hostID}, rng)

	assert.Len(t, r.TurnOrder, 2)
	assert.NotContains(t, r.TurnOrder, sab)
	assert.Empty(t, r.Players[sab].Hand)
	assert.Equal(t, models.RoleChef, r.Players[sab].Role)
	assert.Equal(t, 1, countSaboteurs(r), "a departed saboteur is replaced")
	assert.NotEqual(t, sab, r.Saboteur())
	assert.ElementsMatch(t, poolIDs(r), cardIDs(r))
}
