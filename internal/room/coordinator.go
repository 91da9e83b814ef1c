package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawnme/pawnme-server/internal/msgcat"
	"github.com/pawnme/pawnme-server/internal/obslog"
	"github.com/pawnme/pawnme-server/internal/rules"
	"github.com/pawnme/pawnme-server/pkg/gamedto"
)

// Broadcaster delivers an event to a set of connections. The coordinator
// always names recipients explicitly, so the transport needs no room index
// of its own.
type Broadcaster interface {
	ToConns(connIDs []string, event string, payload any)
}

// Options carries the two policy decisions left open by the protocol:
// whether join may create unknown rooms, and whether reset is gated to
// room participants.
type Options struct {
	JoinAutoCreate           bool
	ResetRequiresParticipant bool
}

// Coordinator owns every mutation of the session store. All methods are
// invoked from the transport's single dispatch loop, so handlers for
// different events never interleave.
type Coordinator struct {
	store Store
	bcast Broadcaster
	opts  Options
	repo  *Repository
	cat   *msgcat.Catalog
}

func NewCoordinator(store Store, bcast Broadcaster, opts Options) *Coordinator {
	return &Coordinator{store: store, bcast: bcast, opts: opts}
}

// AttachRepository wires an optional sink for finished-game results.
func (c *Coordinator) AttachRepository(r *Repository) {
	if c != nil {
		c.repo = r
	}
}

// AttachCatalog enables system chat announcements.
func (c *Coordinator) AttachCatalog(cat *msgcat.Catalog) {
	if c != nil {
		c.cat = cat
	}
}

// Create opens a fresh room with the requesting connection seated as white.
func (c *Coordinator) Create(ctx context.Context, connID string) (string, rules.Side, error) {
	roomID, err := c.freshRoomID(ctx)
	if err != nil {
		return "", "", err
	}
	now := time.Now()
	s := &Session{
		RoomID:       roomID,
		GameUID:      uuid.NewString(),
		Participants: []Participant{{ConnID: connID, Side: rules.White}},
		FEN:          rules.StartFEN,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.store.Save(ctx, s); err != nil {
		return "", "", fmt.Errorf("save session: %w", err)
	}
	obslog.L().Info("room_create",
		zap.String("room_id", roomID),
		zap.String("conn_id", connID),
	)
	c.broadcastRoster(s)
	return roomID, rules.White, nil
}

// Join seats a connection in an existing room, assigning whichever side is
// free. The returned room id is the normalized form, which clients should
// use for every later request. Unknown rooms fail with ErrNoSuchRoom unless
// JoinAutoCreate is set.
func (c *Coordinator) Join(ctx context.Context, connID, roomID string) (string, rules.Side, error) {
	roomID = normalizeRoomID(roomID)
	if roomID == "" {
		return "", "", ErrNoSuchRoom
	}
	s, err := c.store.Get(ctx, roomID)
	if err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		if !c.opts.JoinAutoCreate {
			return "", "", ErrNoSuchRoom
		}
		now := time.Now()
		s = &Session{
			RoomID:    roomID,
			GameUID:   uuid.NewString(),
			FEN:       rules.StartFEN,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if len(s.Participants) >= 2 {
		return "", "", ErrRoomFull
	}

	side := rules.White
	if s.SideTaken(rules.White) {
		side = rules.Black
	}
	s.Participants = append(s.Participants, Participant{ConnID: connID, Side: side})
	s.UpdatedAt = time.Now()
	if err := c.store.Save(ctx, s); err != nil {
		return "", "", fmt.Errorf("save session: %w", err)
	}

	obslog.L().Info("room_join",
		zap.String("room_id", roomID),
		zap.String("conn_id", connID),
		zap.String("side", string(side)),
	)
	c.broadcastRoster(s)

	// Synchronize everyone, including the seat that was already waiting.
	g, err := rules.Reconstruct(s.MovesUCI)
	if err != nil {
		return "", "", fmt.Errorf("reconstruct: %w", err)
	}
	c.bcast.ToConns(s.ConnIDs(), gamedto.EventGameState, rules.BuildState(g, nil))
	c.announce(s.ConnIDs(), "system.player_joined", map[string]any{"Side": string(side)})
	return roomID, side, nil
}

// ApplyMove validates turn ownership, plays the move through the rules
// engine, persists the new position, and broadcasts the snapshot plus any
// terminal result. The store is untouched on every rejection path.
func (c *Coordinator) ApplyMove(ctx context.Context, connID, roomID, from, to, promotion string) (*gamedto.Move, error) {
	s, err := c.store.Get(ctx, normalizeRoomID(roomID))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return nil, ErrNoSuchRoom
	}
	p, ok := s.Participant(connID)
	if !ok {
		return nil, ErrNotAParticipant
	}

	g, err := rules.Reconstruct(s.MovesUCI)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}
	if g.Turn() != p.Side {
		return nil, ErrOutOfTurn
	}
	applied, err := g.Apply(from, to, promotion)
	if err != nil {
		if errors.Is(err, rules.ErrIllegalMove) {
			return nil, ErrIllegalMove
		}
		return nil, err
	}

	s.MovesUCI = append(s.MovesUCI, applied.UCI)
	s.MovesSAN = append(s.MovesSAN, applied.SAN)
	s.FEN = g.FEN()
	s.UpdatedAt = time.Now()
	if err := c.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	state := rules.BuildState(g, applied)
	obslog.L().Info("room_move",
		zap.String("room_id", s.RoomID),
		zap.String("conn_id", connID),
		zap.String("uci", applied.UCI),
		zap.String("san", applied.SAN),
		zap.String("turn", state.Turn),
		zap.Bool("game_over", state.GameOver),
	)
	c.bcast.ToConns(s.ConnIDs(), gamedto.EventGameState, state)

	if state.GameOver {
		c.concludeGame(ctx, s, state, applied)
	}

	return state.LastMove, nil
}

// concludeGame emits the terminal result once and records it if a result
// repository is attached. Checkmate names the mover as winner; every other
// game-over classification is reported as a draw.
func (c *Coordinator) concludeGame(ctx context.Context, s *Session, state *gamedto.GameState, applied *rules.Applied) {
	var end gamedto.GameEnd
	method := "draw"
	if state.Checkmate {
		end.Winner = string(applied.Side)
		method = "checkmate"
		c.announce(s.ConnIDs(), "system.checkmate", map[string]any{"Winner": end.Winner})
	} else {
		end.Draw = true
		c.announce(s.ConnIDs(), "system.draw", nil)
	}
	c.bcast.ToConns(s.ConnIDs(), gamedto.EventGameEnd, end)
	obslog.L().Info("room_game_end",
		zap.String("room_id", s.RoomID),
		zap.String("winner", end.Winner),
		zap.Bool("draw", end.Draw),
		zap.String("method", method),
	)

	if c.repo != nil {
		if err := c.repo.SaveResult(ctx, s, &end, method); err != nil {
			obslog.L().Error("room_result_persist_error",
				zap.String("room_id", s.RoomID),
				zap.String("game_uid", s.GameUID),
				zap.Error(err),
			)
		}
	}
}

// Reset restores the starting position, leaving the roster untouched. A new
// game uid is minted so a later conclusion records as a separate game.
func (c *Coordinator) Reset(ctx context.Context, connID, roomID string) error {
	s, err := c.store.Get(ctx, normalizeRoomID(roomID))
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return ErrNoSuchRoom
	}
	if c.opts.ResetRequiresParticipant {
		if _, ok := s.Participant(connID); !ok {
			return ErrNotAParticipant
		}
	}

	s.GameUID = uuid.NewString()
	s.MovesUCI = nil
	s.MovesSAN = nil
	s.FEN = rules.StartFEN
	s.UpdatedAt = time.Now()
	if err := c.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	obslog.L().Info("room_reset",
		zap.String("room_id", s.RoomID),
		zap.String("conn_id", connID),
	)
	g, err := rules.Reconstruct(nil)
	if err != nil {
		return fmt.Errorf("reconstruct: %w", err)
	}
	c.bcast.ToConns(s.ConnIDs(), gamedto.EventGameState, rules.BuildState(g, nil))
	c.announce(s.ConnIDs(), "system.reset", nil)
	return nil
}

// Participants resolves the connection ids of a room, for the chat relay.
func (c *Coordinator) Participants(ctx context.Context, roomID string) ([]string, error) {
	s, err := c.store.Get(ctx, normalizeRoomID(roomID))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return nil, ErrNoSuchRoom
	}
	return s.ConnIDs(), nil
}

// Disconnect removes the connection from every session it occupies,
// broadcasting the shrunken roster and deleting sessions that reach zero
// participants. The full scan is fine at the expected room counts; a
// conn→room index would make this O(1) if that ever changes.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) error {
	sessions, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, s := range sessions {
		kept := s.Participants[:0:0]
		var removed bool
		for _, p := range s.Participants {
			if p.ConnID == connID {
				removed = true
				continue
			}
			kept = append(kept, p)
		}
		if !removed {
			continue
		}
		s.Participants = kept
		if len(s.Participants) == 0 {
			if err := c.store.Delete(ctx, s.RoomID); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			obslog.L().Info("room_delete",
				zap.String("room_id", s.RoomID),
				zap.String("conn_id", connID),
			)
			continue
		}
		s.UpdatedAt = time.Now()
		if err := c.store.Save(ctx, s); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		obslog.L().Info("room_leave",
			zap.String("room_id", s.RoomID),
			zap.String("conn_id", connID),
		)
		c.broadcastRoster(s)
		c.announce(s.ConnIDs(), "system.player_left", nil)
	}
	return nil
}

func (c *Coordinator) broadcastRoster(s *Session) {
	c.bcast.ToConns(s.ConnIDs(), gamedto.EventRoomState, gamedto.RoomState{Players: s.Sides()})
}

func (c *Coordinator) announce(connIDs []string, key string, data map[string]any) {
	if c.cat == nil {
		return
	}
	text, err := c.cat.Render(key, data)
	if err != nil || strings.TrimSpace(text) == "" {
		return
	}
	c.bcast.ToConns(connIDs, gamedto.EventChat, gamedto.ChatMessage{
		Name:    "server",
		Message: text,
		TS:      time.Now().UnixMilli(),
	})
}

func (c *Coordinator) freshRoomID(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		code, err := roomCode()
		if err != nil {
			return "", err
		}
		existing, err := c.store.Get(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to allocate room code")
}

// roomCode returns 6 uppercase alphanumerics.
func roomCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}

func normalizeRoomID(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}
