// internal/models/room.go
package models

import (
	"sort"
	"time"
)

// Variant selects which of the two party games a room plays.
type Variant string

const (
	// VariantKitchen is the describe-the-ingredient party game with sabotage mini-games.
	VariantKitchen Variant = "kitchen"
	// VariantSaboteur is the card-based bluffing game about a hidden saboteur.
	VariantSaboteur Variant = "saboteur"
)

// Valid reports whether v names a known variant.
func (v Variant) Valid() bool {
	return v == VariantKitchen || v == VariantSaboteur
}

// Phase is the room status shared by host and players.
type Phase string

const (
	PhaseLobby        Phase = "LOBBY"
	PhaseIntermission Phase = "INTERMISSION"
	PhasePlaying      Phase = "PLAYING"
	PhaseRound        Phase = "ROUND1"
	PhaseTasteTest    Phase = "TASTE_TEST"
	PhaseRoundEnd     Phase = "ROUND_END"
	PhaseVoteReveal   Phase = "VOTE_REVEAL"
	PhaseGameOver     Phase = "GAME_OVER"
)

// Room is the single shared document of a game session. Every transition
// produces a new Room; the document is never deleted.
type Room struct {
	Code    string  `json:"code"`
	Variant Variant `json:"variant"`
	Status  Phase   `json:"status"`
	HostID  string  `json:"hostId"`

	Players map[string]*Player `json:"players"`
	Rules   Rules              `json:"rules"`

	// Kitchen pools. Deck and Discard are working copies of Pantry.
	Pantry  []string `json:"pantry"`
	Deck    []string `json:"deck"`
	Discard []string `json:"discard"`

	// Saboteur pools. CardDeck and CardDiscard are working copies of Cards;
	// cards held in hands or sitting in the pot are in neither.
	Cards       []Card    `json:"cards,omitempty"`
	CardDeck    []Card    `json:"cardDeck,omitempty"`
	CardDiscard []Card    `json:"cardDiscard,omitempty"`
	Pot         []PotCard `json:"pot,omitempty"`
	DishName    string    `json:"dishName,omitempty"`
	Recipe      []string  `json:"recipe,omitempty"`
	RecipeDone  []string  `json:"recipeDone,omitempty"`

	CurrentRound     int      `json:"currentRound"`
	CurrentChefIndex int      `json:"currentChefIndex"`
	TurnOrder        []string `json:"turnOrder"`
	ActiveChefID     string   `json:"activeChefId"`

	ActiveIngredient string               `json:"activeIngredient"`
	Countdown        int                  `json:"countdown"`
	Timer            int                  `json:"timer"`
	Completed        []string             `json:"completed"`
	Sabotages        map[string]*Sabotage `json:"sabotages"`
	StinkMeter       int                  `json:"stinkMeter"`
	Votes            map[string]string    `json:"votes"`
	RoundWinner      Role                 `json:"roundWinner,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRoom returns a lobby-phase room owned by hostID.
func NewRoom(code string, variant Variant, hostID string, rules Rules, now time.Time) *Room {
	return &Room{
		Code:      code,
		Variant:   variant,
		Status:    PhaseLobby,
		HostID:    hostID,
		Players:   make(map[string]*Player),
		Rules:     rules,
		Pantry:    []string{},
		Deck:      []string{},
		Discard:   []string{},
		TurnOrder: []string{},
		Completed: []string{},
		Sabotages: make(map[string]*Sabotage),
		Votes:     make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PlayerIDs returns player ids ordered by join time, then id. Map order is
// never used for anything that feeds the random generator.
func (r *Room) PlayerIDs() []string {
	players := r.SortedPlayers()
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

// SeatedIDs returns the ids of players who have not left, ordered like
// PlayerIDs.
func (r *Room) SeatedIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.SortedPlayers() {
		if !p.Left {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// SortedPlayers returns players ordered by join time, then id.
func (r *Room) SortedPlayers() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Saboteur returns the id of the player holding the saboteur role, if any.
func (r *Room) Saboteur() string {
	for id, p := range r.Players {
		if p.Role == RoleSaboteur {
			return id
		}
	}
	return ""
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make(map[string]*Player, len(r.Players))
	for id, p := range r.Players {
		c.Players[id] = p.Clone()
	}
	c.Pantry = cloneStrings(r.Pantry)
	c.Deck = cloneStrings(r.Deck)
	c.Discard = cloneStrings(r.Discard)
	c.Cards = cloneCards(r.Cards)
	c.CardDeck = cloneCards(r.CardDeck)
	c.CardDiscard = cloneCards(r.CardDiscard)
	if r.Pot != nil {
		c.Pot = make([]PotCard, len(r.Pot))
		copy(c.Pot, r.Pot)
	}
	c.Recipe = cloneStrings(r.Recipe)
	c.RecipeDone = cloneStrings(r.RecipeDone)
	c.TurnOrder = cloneStrings(r.TurnOrder)
	c.Completed = cloneStrings(r.Completed)
	c.Sabotages = make(map[string]*Sabotage, len(r.Sabotages))
	for id, s := range r.Sabotages {
		cp := *s
		c.Sabotages[id] = &cp
	}
	c.Votes = make(map[string]string, len(r.Votes))
	for k, v := range r.Votes {
		c.Votes[k] = v
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneCards(in []Card) []Card {
	if in == nil {
		return nil
	}
	out := make([]Card, len(in))
	copy(out, in)
	return out
}
