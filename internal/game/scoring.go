package game

import (
	"sort"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
)

// award adds points to a player.
func award(p *models.Player, points int) {
	p.Score += points
}

// penalize deducts points, flooring at zero when the room clamps scores.
func penalize(room *models.Room, p *models.Player, points int) {
	p.Score -= points
	if room.Rules.ClampScores && p.Score < 0 {
		p.Score = 0
	}
}

// Standing is one line of the final leaderboard.
type Standing struct {
	PlayerID string      `json:"playerId"`
	Name     string      `json:"name"`
	Score    int         `json:"score"`
	Rank     int         `json:"rank"`
	Role     models.Role `json:"role,omitempty"`
}

// Standings ranks players by score, ties sharing a rank.
func Standings(room *models.Room) []Standing {
	players := room.SortedPlayers()
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})
	out := make([]Standing, len(players))
	for i, p := range players {
		rank := i + 1
		if i > 0 && p.Score == players[i-1].Score {
			rank = out[i-1].Rank
		}
		out[i] = Standing{PlayerID: p.ID, Name: p.Name, Score: p.Score, Rank: rank, Role: p.Role}
	}
	return out
}

func (t *transition) gameOver() {
	t.room.Status = models.PhaseGameOver
	t.room.ActiveChefID = ""
	t.room.ActiveIngredient = ""
	t.room.Timer = 0
	t.room.Countdown = 0
	t.emit(EventGameOver, "", map[string]interface{}{
		"standings": Standings(t.room),
	})
}
