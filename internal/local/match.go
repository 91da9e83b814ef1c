// Package local runs a single-participant match against the scripted
// opponent. No session store and no transport: the caller drives the match
// synchronously.
package local

import (
	"errors"

	"github.com/pawnme/pawnme-server/internal/rules"
	"github.com/pawnme/pawnme-server/internal/scripted"
	"github.com/pawnme/pawnme-server/pkg/gamedto"
)

var (
	ErrNotYourTurn = errors.New("not your turn")
	ErrGameOver    = errors.New("game is over")
)

// Match is one local game: a human side and the scripted opponent.
type Match struct {
	game  *rules.Game
	human rules.Side
	bot   *scripted.Bot
}

// NewMatch starts a match with the human on the given side. When the bot
// has the first move it plays immediately.
func NewMatch(human rules.Side, bot *scripted.Bot) *Match {
	m := &Match{game: rules.NewGame(), human: human, bot: bot}
	if m.game.Turn() != human {
		m.playBot()
	}
	return m
}

// Play applies the human's move, then the bot's reply if the game
// continues. Either applied move may be nil when the game ends first.
func (m *Match) Play(from, to, promotion string) (*rules.Applied, *rules.Applied, error) {
	if m.game.Status().GameOver {
		return nil, nil, ErrGameOver
	}
	if m.game.Turn() != m.human {
		return nil, nil, ErrNotYourTurn
	}
	humanMove, err := m.game.Apply(from, to, promotion)
	if err != nil {
		return nil, nil, err
	}
	if m.game.Status().GameOver {
		return humanMove, nil, nil
	}
	return humanMove, m.playBot(), nil
}

func (m *Match) playBot() *rules.Applied {
	pick, ok := m.bot.Pick(m.game)
	if !ok {
		return nil
	}
	applied, err := m.game.Apply(pick.From, pick.To, pick.Promotion)
	if err != nil {
		// The pick came from the engine's own legal-move list.
		return nil
	}
	return applied
}

// State returns the current snapshot, with last as the most recent move to
// attach (callers track it since the bot may have moved last).
func (m *Match) State(last *rules.Applied) *gamedto.GameState {
	return rules.BuildState(m.game, last)
}

// Turn reports the side to move.
func (m *Match) Turn() rules.Side { return m.game.Turn() }

// HumanSide reports which side the human plays.
func (m *Match) HumanSide() rules.Side { return m.human }

// Over reports whether the game has concluded.
func (m *Match) Over() bool { return m.game.Status().GameOver }
