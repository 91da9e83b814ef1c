// Package scripted implements the built-in opponent for local play: a
// beatable picker that prefers promotions, then captures, and otherwise
// plays a uniformly random legal move.
package scripted

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pawnme/pawnme-server/internal/rules"
)

type Bot struct {
	randMu sync.Mutex
	rand   *rand.Rand
}

func New() *Bot {
	return &Bot{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeeded returns a bot with a fixed seed, for deterministic tests.
func NewSeeded(seed int64) *Bot {
	return &Bot{rand: rand.New(rand.NewSource(seed))}
}

// Pick chooses a move for the side to play in g. Returns false when the
// position has no legal moves.
func (b *Bot) Pick(g *rules.Game) (rules.Candidate, bool) {
	candidates := g.Candidates()
	if len(candidates) == 0 {
		return rules.Candidate{}, false
	}

	var promotions, captures []rules.Candidate
	for _, c := range candidates {
		switch {
		case c.IsPromotion:
			promotions = append(promotions, c)
		case c.IsCapture:
			captures = append(captures, c)
		}
	}

	pool := candidates
	if len(promotions) > 0 {
		pool = promotions
	} else if len(captures) > 0 {
		pool = captures
	}

	b.randMu.Lock()
	choice := pool[b.rand.Intn(len(pool))]
	b.randMu.Unlock()
	return choice, true
}
