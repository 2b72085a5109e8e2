package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

const hostID = "host"

func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// mustApply runs an intent that is expected to succeed.
func mustApply(t *testing.T, r *models.Room, in Intent, rng *rand.Rand) (*models.Room, []Event) {
	t.Helper()
	next, evs, err := Apply(r, in, rng, t0)
	require.NoError(t, err, "intent %s by %s", in.Type, in.Actor)
	return next, evs
}

// hasEvent reports whether evs contains an event of the given type.
func hasEvent(evs []Event, typ EventType) bool {
	for _, ev := range evs {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func newKitchenRoom(t *testing.T, rng *rand.Rand, players ...string) *models.Room {
	t.Helper()
	r := models.NewRoom("ABCD", models.VariantKitchen, hostID, models.DefaultRules(models.VariantKitchen), t0)
	for _, id := range players {
		r, _ = mustApply(t, r, Intent{Type: IntentJoin, Actor: id, Name: "Player " + id}, rng)
	}
	return r
}

var pantries = map[string][]string{
	"p1": {"Honey", "Garlic", "Basil", "Lemon", "Salt"},
	"p2": {"Pepper", "Butter", "Thyme", "Flour", "Sugar"},
	"p3": {"Cumin", "Mint", "Olive", "Rice", "Vinegar"},
}

// startedKitchen returns a kitchen room past start with the given players.
func startedKitchen(t *testing.T, rng *rand.Rand, players ...string) *models.Room {
	t.Helper()
	r := newKitchenRoom(t, rng, players...)
	for _, id := range players {
		r, _ = mustApply(t, r, Intent{Type: IntentSubmitPantry, Actor: id, Items: pantries[id]}, rng)
	}
	r, _ = mustApply(t, r, Intent{Type: IntentStart, Actor: hostID}, rng)
	return r
}

// playingKitchen drives a started room through the ready countdown.
func playingKitchen(t *testing.T, rng *rand.Rand, players ...string) *models.Room {
	t.Helper()
	r := startedKitchen(t, rng, players...)
	r, _ = mustApply(t, r, Intent{Type: IntentReady, Actor: r.ActiveChefID}, rng)
	for r.Status == models.PhaseIntermission {
		r, _ = mustApply(t, r, Intent{Type: IntentTick, Actor: SystemActor}, rng)
	}
	require.Equal(t, models.PhasePlaying, r.Status)
	return r
}

// guessers returns the players other than the active chef, in join order.
func guessers(r *models.Room) []string {
	var out []string
	for _, id := range r.PlayerIDs() {
		if id != r.ActiveChefID {
			out = append(out, id)
		}
	}
	return out
}

func newSaboteurRoom(t *testing.T, rng *rand.Rand, players ...string) *models.Room {
	t.Helper()
	r := models.NewRoom("WXYZ", models.VariantSaboteur, hostID, models.DefaultRules(models.VariantSaboteur), t0)
	for _, id := range players {
		r, _ = mustApply(t, r, Intent{Type: IntentJoin, Actor: id, Name: "Player " + id}, rng)
	}
	return r
}
