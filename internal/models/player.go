package models

import "time"

// Role is the explicit role of a player in the saboteur variant.
type Role string

const (
	RoleChef     Role = "CHEF"
	RoleSaboteur Role = "SABOTEUR"
)

// Player is one participant entry in a room. The host never has one.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Role  Role   `json:"role,omitempty"`

	Ready           bool     `json:"ready"`
	IsLockedOut     bool     `json:"isLockedOut"`
	Left            bool     `json:"left,omitempty"` // left mid-game; the seat is kept but skipped
	SabotageCharges int      `json:"sabotageCharges"`
	Hand            []Card   `json:"hand,omitempty"`
	PantryItems     []string `json:"pantryItems,omitempty"`

	JoinedAt time.Time `json:"joinedAt"`
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	c := *p
	c.Hand = cloneCards(p.Hand)
	c.PantryItems = cloneStrings(p.PantryItems)
	return &c
}

// ResetTransient zeroes every per-game mutable field.
func (p *Player) ResetTransient() {
	p.Score = 0
	p.Role = ""
	p.Ready = false
	p.IsLockedOut = false
	p.Left = false
	p.SabotageCharges = 0
	p.Hand = nil
	p.PantryItems = nil
}

// HandIndex returns the index of cardID in the player's hand, or -1.
func (p *Player) HandIndex(cardID string) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// Card is one ingredient card of the saboteur variant.
type Card struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Stink  int    `json:"stink,omitempty"`
	Rotten bool   `json:"rotten,omitempty"`
}

// PotCard is a card played into the pot, remembering who played it.
type PotCard struct {
	Card     Card   `json:"card"`
	PlayedBy string `json:"playedBy"`
}

// SabotageTask names the mini-task imposed on a sabotaged player.
type SabotageTask string

const (
	TaskShake SabotageTask = "shake"
	TaskScrub SabotageTask = "scrub"
	TaskTap   SabotageTask = "tap"
)

// Goal returns the progress value at which the task counts as done.
func (t SabotageTask) Goal() float64 {
	switch t {
	case TaskShake, TaskScrub:
		return 1.0
	case TaskTap:
		return 30
	}
	return 0
}

// Valid reports whether t names a known task.
func (t SabotageTask) Valid() bool {
	return t.Goal() > 0
}

// Sabotage is the outstanding mini-task of one player.
type Sabotage struct {
	By        string       `json:"by"`
	Task      SabotageTask `json:"task"`
	Remaining int          `json:"remaining"`
	Progress  float64      `json:"progress"`
}
