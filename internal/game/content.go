// internal/game/content.go
package game

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
)

// dish is one recipe the chefs may be asked to cook in the saboteur variant.
type dish struct {
	Name        string
	Ingredients []string
}

var dishes = []dish{
	{"Grandma's Minestrone", []string{"Tomato", "Carrot", "Celery", "Onion", "Garlic", "Basil", "Beans"}},
	{"Midnight Curry", []string{"Onion", "Garlic", "Ginger", "Chili", "Coconut", "Tomato", "Rice"}},
	{"Sunday Pancakes", []string{"Flour", "Egg", "Milk", "Butter", "Sugar", "Honey", "Berries"}},
	{"Harbor Chowder", []string{"Potato", "Onion", "Milk", "Butter", "Clams", "Celery", "Thyme"}},
	{"Garden Stir Fry", []string{"Broccoli", "Carrot", "Ginger", "Garlic", "Soy Sauce", "Rice", "Chili"}},
	{"Lemon Herb Chicken", []string{"Chicken", "Lemon", "Thyme", "Garlic", "Butter", "Potato", "Basil"}},
}

var rottenIngredients = []struct {
	Name  string
	Stink int
}{
	{"Moldy Cheese", 30},
	{"Spoiled Milk", 25},
	{"Old Fish", 40},
	{"Rotten Egg", 35},
	{"Sour Cabbage", 20},
}

const (
	copiesPerIngredient = 2
	copiesPerRotten     = 2

	// offRecipeStink is added when a good ingredient the dish does not need lands in the pot.
	offRecipeStink = 10
)

// BuildCardPool returns the full saboteur card pool. Card ids are stable so
// that seeded games replay identically.
func BuildCardPool() []models.Card {
	seen := make(map[string]bool)
	var names []string
	for _, d := range dishes {
		for _, ing := range d.Ingredients {
			if !seen[ing] {
				seen[ing] = true
				names = append(names, ing)
			}
		}
	}
	sort.Strings(names)

	var pool []models.Card
	next := func() string {
		return fmt.Sprintf("c%02d", len(pool)+1)
	}
	for _, name := range names {
		for i := 0; i < copiesPerIngredient; i++ {
			pool = append(pool, models.Card{ID: next(), Name: name})
		}
	}
	for _, r := range rottenIngredients {
		for i := 0; i < copiesPerRotten; i++ {
			pool = append(pool, models.Card{ID: next(), Name: r.Name, Stink: r.Stink, Rotten: true})
		}
	}
	return pool
}

// pickDish chooses a dish and a recipe of up to size of its ingredients.
func pickDish(rng *rand.Rand, size int) (string, []string) {
	d := dishes[rng.Intn(len(dishes))]
	ings := shuffled(rng, d.Ingredients)
	if size > len(ings) {
		size = len(ings)
	}
	return d.Name, ings[:size]
}
