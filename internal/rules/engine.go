package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/pawnme/pawnme-server/pkg/gamedto"
)

// Side identifies one of the two seats in a game.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrIllegalMove = errors.New("illegal move")

// Game wraps a single chess game. The authoritative history is the UCI move
// list; FEN is derived for presentation and snapshots.
type Game struct {
	inner *nchess.Game
}

// NewGame returns a game at the starting position.
func NewGame() *Game {
	return &Game{inner: nchess.NewGame()}
}

// Reconstruct replays a stored UCI move list from the starting position.
// Applying a saved FEN here instead could double-apply moves, so the list
// is the single source of truth.
func Reconstruct(moves []string) (*Game, error) {
	g := nchess.NewGame()
	for _, mv := range moves {
		if err := g.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay %q: %w", mv, err)
		}
	}
	return &Game{inner: g}, nil
}

// FEN returns the current position.
func (g *Game) FEN() string { return g.inner.FEN() }

// Turn returns the side to move.
func (g *Game) Turn() Side {
	if g.inner.Position().Turn() == nchess.White {
		return White
	}
	return Black
}

// Applied describes a move that has been validated and played.
type Applied struct {
	From      string
	To        string
	Promotion string
	UCI       string
	SAN       string
	Side      Side
}

// Apply validates and plays from→to. An empty promotion on a promoting
// pawn move defaults to queen.
func (g *Game) Apply(from, to, promotion string) (*Applied, error) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	promotion = strings.ToLower(strings.TrimSpace(promotion))
	if from == "" || to == "" {
		return nil, ErrIllegalMove
	}

	mover := g.Turn()
	pos := g.inner.Position()
	notation := nchess.UCINotation{}

	// Decode is syntax-only; legality is enforced by Move, which leaves
	// the game untouched when validation fails.
	play := func(candidate string) (*nchess.Move, error) {
		mv, err := notation.Decode(pos, candidate)
		if err != nil {
			return nil, err
		}
		if err := g.inner.Move(mv, nil); err != nil {
			return nil, err
		}
		return mv, nil
	}

	uci := from + to + promotion
	mv, err := play(uci)
	if err != nil && promotion == "" {
		// Bare from/to on a promoting pawn move means queen.
		if mv, err = play(from + to + "q"); err == nil {
			uci = from + to + "q"
			promotion = "q"
		}
	}
	if err != nil {
		return nil, ErrIllegalMove
	}

	san := nchess.AlgebraicNotation{}.Encode(pos, mv)

	return &Applied{
		From:      from,
		To:        to,
		Promotion: promotion,
		UCI:       uci,
		SAN:       san,
		Side:      mover,
	}, nil
}

// Status reports the terminal classification of the current position.
type Status struct {
	InCheck   bool
	GameOver  bool
	Checkmate bool
	Draw      bool
}

// Status reports the game condition after the latest move.
func (g *Game) Status() Status {
	var st Status
	if moves := g.inner.Moves(); len(moves) > 0 {
		st.InCheck = moves[len(moves)-1].HasTag(nchess.Check)
	}
	outcome := g.inner.Outcome()
	st.GameOver = outcome != nchess.NoOutcome
	st.Checkmate = g.inner.Method() == nchess.Checkmate
	st.Draw = outcome == nchess.Draw
	return st
}

// Candidate is one legal move in the current position.
type Candidate struct {
	From        string
	To          string
	Promotion   string
	IsCapture   bool
	IsPromotion bool
}

// Candidates lists every legal move in the current position.
func (g *Game) Candidates() []Candidate {
	valid := g.inner.ValidMoves()
	out := make([]Candidate, 0, len(valid))
	for _, mv := range valid {
		uci := mv.String()
		if len(uci) < 4 {
			continue
		}
		c := Candidate{
			From:      uci[:2],
			To:        uci[2:4],
			IsCapture: mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant),
		}
		if len(uci) > 4 {
			c.Promotion = uci[4:]
			c.IsPromotion = true
		}
		out = append(out, c)
	}
	return out
}

// LegalIndex groups legal destination squares by origin square. Advisory
// only; Apply re-validates against the engine.
func (g *Game) LegalIndex() map[string][]string {
	index := make(map[string][]string)
	seen := make(map[string]map[string]struct{})
	for _, c := range g.Candidates() {
		if seen[c.From] == nil {
			seen[c.From] = make(map[string]struct{})
		}
		if _, dup := seen[c.From][c.To]; dup {
			continue
		}
		seen[c.From][c.To] = struct{}{}
		index[c.From] = append(index[c.From], c.To)
	}
	for from := range index {
		sort.Strings(index[from])
	}
	return index
}

// BuildState assembles the broadcast snapshot for the current position.
func BuildState(g *Game, last *Applied) *gamedto.GameState {
	st := g.Status()
	state := &gamedto.GameState{
		FEN:        g.FEN(),
		Turn:       string(g.Turn()),
		LegalMoves: g.LegalIndex(),
		InCheck:    st.InCheck,
		GameOver:   st.GameOver,
		Checkmate:  st.Checkmate,
		Draw:       st.Draw,
	}
	if last != nil {
		state.LastMove = &gamedto.Move{
			From:      last.From,
			To:        last.To,
			Promotion: last.Promotion,
			SAN:       last.SAN,
			Side:      string(last.Side),
		}
	}
	return state
}
