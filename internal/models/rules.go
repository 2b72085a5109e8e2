// internal/models/rules.go
package models

import "fmt"

// Rules is the per-room configuration chosen by the host before the game.
type Rules struct {
	ClampScores      bool `json:"clampScores"`      // never let a penalty drive a score below zero
	EnforceLobbyJoin bool `json:"enforceLobbyJoin"` // reject joins once the room has left the lobby
	LenientGuesses   bool `json:"lenientGuesses"`   // compare guesses case- and accent-insensitively

	PantryItemsPerPlayer int `json:"pantryItemsPerPlayer"`
	MinPlayers           int `json:"minPlayers"`
	CountdownTicks       int `json:"countdownTicks"`
	TurnSeconds          int `json:"turnSeconds"`
	GuessPoints          int `json:"guessPoints"`
	ChefPoints           int `json:"chefPoints"`
	WrongGuessPenalty    int `json:"wrongGuessPenalty"`
	SabotageCharges      int `json:"sabotageCharges"`
	SabotageSeconds      int `json:"sabotageSeconds"`

	HandSize       int  `json:"handSize"`
	MaxRounds      int  `json:"maxRounds"`
	StinkThreshold int  `json:"stinkThreshold"`
	RecipeSize     int  `json:"recipeSize"`
	RotateSaboteur bool `json:"rotateSaboteur"` // deal a new saboteur every round instead of once per game

	Seed int64 `json:"seed"` // 0 seeds from the clock
}

// DefaultRules returns the stock rules of a variant. The two prototypes
// disagreed on score floors and lobby-only joins; the defaults keep each
// variant's own behaviour.
func DefaultRules(v Variant) Rules {
	r := Rules{
		PantryItemsPerPlayer: 5,
		MinPlayers:           2,
		CountdownTicks:       5,
		TurnSeconds:          60,
		GuessPoints:          500,
		ChefPoints:           300,
		WrongGuessPenalty:    100,
		SabotageCharges:      2,
		SabotageSeconds:      10,
		HandSize:             5,
		MaxRounds:            3,
		StinkThreshold:       100,
		RecipeSize:           4,
	}
	if v == VariantKitchen {
		r.ClampScores = true
		r.EnforceLobbyJoin = true
	}
	return r
}

// Update applies a partial rule set, e.g. decoded from JSON. Keys that are
// absent keep their old value.
func (rules *Rules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64:
			if v != float64(int(v)) {
				return fmt.Errorf("%s must be a whole number", key)
			}
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		*field = n
		return nil
	}

	bools := []struct {
		field *bool
		key   string
	}{
		{&rules.ClampScores, "clampScores"},
		{&rules.EnforceLobbyJoin, "enforceLobbyJoin"},
		{&rules.LenientGuesses, "lenientGuesses"},
		{&rules.RotateSaboteur, "rotateSaboteur"},
	}
	for _, b := range bools {
		if err := assignBool(b.field, b.key); err != nil {
			return err
		}
	}

	ints := []struct {
		field *int
		key   string
		min   int
	}{
		{&rules.PantryItemsPerPlayer, "pantryItemsPerPlayer", 1},
		{&rules.MinPlayers, "minPlayers", 1},
		{&rules.CountdownTicks, "countdownTicks", 0},
		{&rules.TurnSeconds, "turnSeconds", 1},
		{&rules.GuessPoints, "guessPoints", 0},
		{&rules.ChefPoints, "chefPoints", 0},
		{&rules.WrongGuessPenalty, "wrongGuessPenalty", 0},
		{&rules.SabotageCharges, "sabotageCharges", 0},
		{&rules.SabotageSeconds, "sabotageSeconds", 1},
		{&rules.HandSize, "handSize", 1},
		{&rules.MaxRounds, "maxRounds", 1},
		{&rules.StinkThreshold, "stinkThreshold", 1},
		{&rules.RecipeSize, "recipeSize", 1},
	}
	for _, i := range ints {
		if err := assignInt(i.field, i.key, i.min); err != nil {
			return err
		}
	}

	if val, exists := newRules["seed"]; exists && val != nil {
		f, ok := val.(float64)
		if !ok {
			return fmt.Errorf("invalid type for seed")
		}
		rules.Seed = int64(f)
	}
	return nil
}

// ParseRules applies a partial rule map on top of current and returns the result.
func ParseRules(rules map[string]interface{}, current Rules) (Rules, error) {
	r := current
	err := r.Update(rules)
	return r, err
}
