// internal/models/view.go
package models

import "time"

// PlayerView is a player entry as seen by one viewer.
type PlayerView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Score           int    `json:"score"`
	Role            Role   `json:"role,omitempty"`
	Ready           bool   `json:"ready"`
	IsLockedOut     bool   `json:"isLockedOut"`
	Left            bool   `json:"left,omitempty"`
	SabotageCharges int    `json:"sabotageCharges"`
	HandSize        int    `json:"handSize"`
	Hand            []Card `json:"hand,omitempty"`
	PantryItems     int    `json:"pantryItems"`
	HasVoted        bool   `json:"hasVoted,omitempty"`
}

// SabotageView is an outstanding task without the name of who imposed it.
type SabotageView struct {
	Task      SabotageTask `json:"task"`
	Remaining int          `json:"remaining"`
	Progress  float64      `json:"progress"`
}

// RoomView is the obfuscated room snapshot pushed to one viewer. It hides
// the active ingredient from everyone but the chef, deck contents, other
// players' hands, roles until the reveal, and vote targets until the reveal.
type RoomView struct {
	Code    string  `json:"code"`
	Variant Variant `json:"variant"`
	Status  Phase   `json:"status"`
	HostID  string  `json:"hostId"`
	You     string  `json:"you"`
	IsHost  bool    `json:"isHost"`

	Players []PlayerView `json:"players"`
	Rules   Rules        `json:"rules"`

	PantrySize  int `json:"pantrySize"`
	DeckSize    int `json:"deckSize"`
	DiscardSize int `json:"discardSize"`

	CurrentRound     int      `json:"currentRound"`
	CurrentChefIndex int      `json:"currentChefIndex"`
	TurnOrder        []string `json:"turnOrder"`
	ActiveChefID     string   `json:"activeChefId"`
	ActiveIngredient string   `json:"activeIngredient,omitempty"`
	Countdown        int      `json:"countdown"`
	Timer            int      `json:"timer"`
	Completed        []string `json:"completed"`

	Sabotages map[string]SabotageView `json:"sabotages"`

	DishName    string            `json:"dishName,omitempty"`
	Recipe      []string          `json:"recipe,omitempty"`
	RecipeDone  []string          `json:"recipeDone,omitempty"`
	PotSize     int               `json:"potSize"`
	Pot         []PotCard         `json:"pot,omitempty"`
	StinkMeter  int               `json:"stinkMeter"`
	Votes       map[string]string `json:"votes,omitempty"`
	RoundWinner Role              `json:"roundWinner,omitempty"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Revealed reports whether hidden roles and votes are public.
func (r *Room) Revealed() bool {
	return r.Status == PhaseVoteReveal || r.Status == PhaseGameOver
}

// ViewFor builds the snapshot a given participant may see. An empty
// viewerID yields the spectator view.
func (r *Room) ViewFor(viewerID string) RoomView {
	revealed := r.Revealed()
	v := RoomView{
		Code:             r.Code,
		Variant:          r.Variant,
		Status:           r.Status,
		HostID:           r.HostID,
		You:              viewerID,
		IsHost:           viewerID != "" && viewerID == r.HostID,
		Players:          make([]PlayerView, 0, len(r.Players)),
		Rules:            r.Rules,
		PantrySize:       len(r.Pantry),
		DeckSize:         len(r.Deck),
		DiscardSize:      len(r.Discard),
		CurrentRound:     r.CurrentRound,
		CurrentChefIndex: r.CurrentChefIndex,
		TurnOrder:        cloneStrings(r.TurnOrder),
		ActiveChefID:     r.ActiveChefID,
		Countdown:        r.Countdown,
		Timer:            r.Timer,
		Completed:        cloneStrings(r.Completed),
		Sabotages:        make(map[string]SabotageView, len(r.Sabotages)),
		DishName:         r.DishName,
		Recipe:           cloneStrings(r.Recipe),
		RecipeDone:       cloneStrings(r.RecipeDone),
		PotSize:          len(r.Pot),
		StinkMeter:       r.StinkMeter,
		RoundWinner:      r.RoundWinner,
		Version:          r.Version,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Variant == VariantSaboteur {
		v.DeckSize = len(r.CardDeck)
		v.DiscardSize = len(r.CardDiscard)
	}
	if viewerID != "" && viewerID == r.ActiveChefID && r.Status == PhasePlaying {
		v.ActiveIngredient = r.ActiveIngredient
	}
	for id, s := range r.Sabotages {
		v.Sabotages[id] = SabotageView{Task: s.Task, Remaining: s.Remaining, Progress: s.Progress}
	}
	if revealed {
		if r.Pot != nil {
			v.Pot = make([]PotCard, len(r.Pot))
			copy(v.Pot, r.Pot)
		}
		v.Votes = make(map[string]string, len(r.Votes))
		for voter, suspect := range r.Votes {
			v.Votes[voter] = suspect
		}
	}

	for _, p := range r.SortedPlayers() {
		pv := PlayerView{
			ID:              p.ID,
			Name:            p.Name,
			Score:           p.Score,
			Ready:           p.Ready,
			IsLockedOut:     p.IsLockedOut,
			Left:            p.Left,
			SabotageCharges: p.SabotageCharges,
			HandSize:        len(p.Hand),
			PantryItems:     len(p.PantryItems),
		}
		if _, voted := r.Votes[p.ID]; voted {
			pv.HasVoted = true
		}
		if revealed || p.ID == viewerID {
			pv.Role = p.Role
		}
		if p.ID == viewerID {
			pv.Hand = cloneCards(p.Hand)
		}
		v.Players = append(v.Players, pv)
	}
	return v
}
