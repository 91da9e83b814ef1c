package room

import (
	"context"
	"errors"
	"testing"

	"github.com/pawnme/pawnme-server/internal/rules"
	"github.com/pawnme/pawnme-server/pkg/gamedto"
)

type emitted struct {
	conns   []string
	event   string
	payload any
}

type fakeBroadcast struct {
	events []emitted
}

func (f *fakeBroadcast) ToConns(connIDs []string, event string, payload any) {
	f.events = append(f.events, emitted{conns: connIDs, event: event, payload: payload})
}

func (f *fakeBroadcast) last(event string) *emitted {
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].event == event {
			return &f.events[i]
		}
	}
	return nil
}

func newTestCoordinator(t *testing.T, opts Options) (*Coordinator, *fakeBroadcast, Store) {
	t.Helper()
	store := NewMemoryStore()
	b := &fakeBroadcast{}
	return NewCoordinator(store, b, opts), b, store
}

func activeRoom(t *testing.T, c *Coordinator) (roomID string) {
	t.Helper()
	ctx := context.Background()
	roomID, side, err := c.Create(ctx, "connA")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if side != rules.White {
		t.Fatalf("creator got side %s", side)
	}
	if _, _, err := c.Join(ctx, "connB", roomID); err != nil {
		t.Fatalf("Join: %v", err)
	}
	return roomID
}

func TestCreateSeatsCreatorAsWhite(t *testing.T) {
	c, b, store := newTestCoordinator(t, Options{})
	ctx := context.Background()

	roomID, side, err := c.Create(ctx, "connA")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(roomID) != 6 {
		t.Fatalf("unexpected room code %q", roomID)
	}
	if side != rules.White {
		t.Fatalf("expected white, got %s", side)
	}

	s, err := store.Get(ctx, roomID)
	if err != nil || s == nil {
		t.Fatalf("session not stored: %v", err)
	}
	if len(s.Participants) != 1 || s.Participants[0].Side != rules.White {
		t.Fatalf("unexpected roster: %+v", s.Participants)
	}
	if s.FEN != rules.StartFEN {
		t.Fatalf("unexpected start position: %s", s.FEN)
	}

	roster := b.last(gamedto.EventRoomState)
	if roster == nil {
		t.Fatalf("missing roster broadcast")
	}
	if rs := roster.payload.(gamedto.RoomState); len(rs.Players) != 1 || rs.Players[0] != "white" {
		t.Fatalf("unexpected roster payload: %+v", roster.payload)
	}
}

func TestJoinAssignsFreeSide(t *testing.T) {
	c, b, store := newTestCoordinator(t, Options{})
	ctx := context.Background()

	roomID, _, err := c.Create(ctx, "connA")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	joined, side, err := c.Join(ctx, "connB", roomID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if side != rules.Black {
		t.Fatalf("expected black for second join, got %s", side)
	}
	if joined != roomID {
		t.Fatalf("join echoed %q, want %q", joined, roomID)
	}

	s, _ := store.Get(ctx, roomID)
	if len(s.Participants) != 2 || s.Participants[0].Side == s.Participants[1].Side {
		t.Fatalf("sides not disjoint: %+v", s.Participants)
	}

	roster := b.last(gamedto.EventRoomState)
	if rs := roster.payload.(gamedto.RoomState); len(rs.Players) != 2 {
		t.Fatalf("unexpected roster payload: %+v", roster.payload)
	}
	state := b.last(gamedto.EventGameState)
	if state == nil {
		t.Fatalf("missing state broadcast on join")
	}
	if gs := state.payload.(*gamedto.GameState); gs.Turn != "white" || len(gs.LegalMoves) == 0 {
		t.Fatalf("unexpected state payload: %+v", gs)
	}
	if len(state.conns) != 2 {
		t.Fatalf("state broadcast should reach both participants, got %v", state.conns)
	}
}

func TestJoinFullRoom(t *testing.T) {
	c, _, store := newTestCoordinator(t, Options{})
	ctx := context.Background()
	roomID := activeRoom(t, c)

	if _, _, err := c.Join(ctx, "connC", roomID); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	s, _ := store.Get(ctx, roomID)
	if len(s.Participants) != 2 {
		t.Fatalf("roster mutated by rejected join: %+v", s.Participants)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	c, _, _ := newTestCoordinator(t, Options{})
	if _, _, err := c.Join(context.Background(), "connA", "ZZZZZZ"); !errors.Is(err, ErrNoSuchRoom) {
		t.Fatalf("expected ErrNoSuchRoom, got %v", err)
	}
}

func TestJoinAutoCreateWhenEnabled(t *testing.T) {
	c, _, store := newTestCoordinator(t, Options{JoinAutoCreate: true})
	ctx := context.Background()

	joined, side, err := c.Join(ctx, "connA", "abc123")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if side != rules.White {
		t.Fatalf("expected white for sole participant, got %s", side)
	}
	if joined != "ABC123" {
		t.Fatalf("join echoed %q, want normalized id", joined)
	}
	s, _ := store.Get(ctx, "ABC123")
	if s == nil {
		t.Fatalf("auto-created session not stored under normalized id")
	}
}

func TestApplyMoveValidations(t *testing.T) {
	c, _, store := newTestCoordinator(t, Options{})
	ctx := context.Background()
	roomID := activeRoom(t, c)

	if _, err := c.ApplyMove(ctx, "connA", "NOPE", "e2", "e4", ""); !errors.Is(err, ErrNoSuchRoom) {
		t.Fatalf("expected ErrNoSuchRoom, got %v", err)
	}
	if _, err := c.ApplyMove(ctx, "connC", roomID, "e2", "e4", ""); !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("expected ErrNotAParticipant, got %v", err)
	}
	// Black may not open.
	if _, err := c.ApplyMove(ctx, "connB", roomID, "e7", "e5", ""); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("expected ErrOutOfTurn, got %v", err)
	}
	if _, err := c.ApplyMove(ctx, "connA", roomID, "e2", "e5", ""); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}

	s, _ := store.Get(ctx, roomID)
	if len(s.MovesUCI) != 0 || s.FEN != rules.StartFEN {
		t.Fatalf("rejected moves mutated the session: %+v", s)
	}
}

func TestApplyMoveAlternatesSides(t *testing.T) {
	c, b, store := newTestCoordinator(t, Options{})
	ctx := context.Background()
	roomID := activeRoom(t, c)

	mv, err := c.ApplyMove(ctx, "connA", roomID, "e2", "e4", "")
	if err != nil {
		t.Fatalf("white move: %v", err)
	}
	if mv.Side != "white" || mv.SAN != "e4" {
		t.Fatalf("unexpected move ack: %+v", mv)
	}
	state := b.last(gamedto.EventGameState).payload.(*gamedto.GameState)
	if state.Turn != "black" {
		t.Fatalf("expected black to move, got %s", state.Turn)
	}

	// Same side again is out of turn and leaves the position alone.
	before, _ := store.Get(ctx, roomID)
	if _, err := c.ApplyMove(ctx, "connA", roomID, "d2", "d4", ""); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("expected ErrOutOfTurn, got %v", err)
	}
	after, _ := store.Get(ctx, roomID)
	if after.FEN != before.FEN || len(after.MovesUCI) != len(before.MovesUCI) {
		t.Fatalf("out-of-turn move mutated the session")
	}

	if _, err := c.ApplyMove(ctx, "connB", roomID, "e7", "e5", ""); err != nil {
		t.Fatalf("black move: %v", err)
	}
	s, _ := store.Get(ctx, roomID)
	if len(s.MovesUCI) != 2 {
		t.Fatalf("expected 2 stored moves, got %v", s.MovesUCI)
	}
}

func TestCheckmateEmitsWinner(t *testing.T) {
	c, b, _ := newTestCoordinator(t, Options{})
	ctx := context.Background()
	roomID := activeRoom(t, c)

	seq := []struct {
		conn     string
		from, to string
	}{
		{"connA", "f2", "f3"},
		{"connB", "e7", "e5"},
		{"connA", "g2", "g4"},
		{"connB", "d8", "h4"},
	}
	for _, m := range seq {
		if _, err := c.ApplyMove(ctx, m.conn, roomID, m.from, m.to, ""); err != nil {
			t.Fatalf("move %s%s: %v", m.from, m.to, err)
		}
	}

	state := b.last(gamedto.EventGameState).payload.(*gamedto.GameState)
	if !state.Checkmate || !state.GameOver {
		t.Fatalf("final snapshot not terminal: %+v", state)
	}
	end := b.last(gamedto.EventGameEnd)
	if end == nil {
		t.Fatalf("missing terminal broadcast")
	}
	if ge := end.payload.(gamedto.GameEnd); ge.Winner != "black" || ge.Draw {
		t.Fatalf("unexpected terminal result: %+v", ge)
	}
}

func TestMoveAfterConclusionRejected(t *testing.T) {
	c, _, store := newTestCoordinator(t, Options{})
	ctx := context.Background()
	roomID := activeRoom(t, c)

	seq := []struct {
		conn     string
		from, to string
	}{
		{"connA", "f2", "f3"},
		{"connB", "e7", "e5"},
		{"connA", "g2", "g4"},
		{"connB", "d8", "h4"},
	}
	for _, m := range seq {
		if _, err := c.ApplyMove(ctx, m.conn, roomID, m.from, m.to, ""); err != nil {
			t.Fatalf("move %s%s: %v", m.from, m.to, err)
		}
	}

	before, _ := store.Get(ctx, roomID)
	if _, err := c.ApplyMove(ctx, "connA", roomID, "a2", "a3", ""); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove after mate, got %v", err)
	}
	after, _ := store.Get(ctx, roomID)
	if after.FEN != before.FEN || len(after.MovesUCI) != len(before.MovesUCI) {
		t.Fatalf("concluded session mutated: %+v", after)
	}
}

func TestResetRestoresStartPosition(t *testing.T) {
	c, b, store := newTestCoordinator(t, Options{ResetRequiresParticipant: true})
	ctx := context.Background()
	roomID := activeRoom(t, c)

	if _, err := c.ApplyMove(ctx, "connA", roomID, "e2", "e4", ""); err != nil {
		t.Fatalf("move: %v", err)
	}
	prev, _ := store.Get(ctx, roomID)

	if err := c.Reset(ctx, "connC", roomID); !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("expected ErrNotAParticipant for outsider reset, got %v", err)
	}
	if err := c.Reset(ctx, "connB", roomID); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	s, _ := store.Get(ctx, roomID)
	if s.FEN != rules.StartFEN || len(s.MovesUCI) != 0 {
		t.Fatalf("reset did not restore start position: %+v", s)
	}
	if s.GameUID == prev.GameUID {
		t.Fatalf("reset must mint a new game uid")
	}
	if len(s.Participants) != 2 {
		t.Fatalf("reset touched the roster: %+v", s.Participants)
	}
	state := b.last(gamedto.EventGameState).payload.(*gamedto.GameState)
	if state.FEN != rules.StartFEN || state.Turn != "white" {
		t.Fatalf("unexpected reset snapshot: %+v", state)
	}
}

func TestResetOpenWhenUngated(t *testing.T) {
	c, _, _ := newTestCoordinator(t, Options{ResetRequiresParticipant: false})
	ctx := context.Background()
	roomID := activeRoom(t, c)
	if err := c.Reset(ctx, "connC", roomID); err != nil {
		t.Fatalf("ungated reset: %v", err)
	}
}

func TestDisconnectShrinksAndDeletes(t *testing.T) {
	c, b, store := newTestCoordinator(t, Options{})
	ctx := context.Background()
	roomID := activeRoom(t, c)

	if err := c.Disconnect(ctx, "connB"); err != nil {
		t.Fatalf("Disconnect connB: %v", err)
	}
	s, _ := store.Get(ctx, roomID)
	if s == nil || len(s.Participants) != 1 || s.Participants[0].ConnID != "connA" {
		t.Fatalf("unexpected roster after leave: %+v", s)
	}
	roster := b.last(gamedto.EventRoomState).payload.(gamedto.RoomState)
	if len(roster.Players) != 1 || roster.Players[0] != "white" {
		t.Fatalf("unexpected roster broadcast: %+v", roster)
	}

	if err := c.Disconnect(ctx, "connA"); err != nil {
		t.Fatalf("Disconnect connA: %v", err)
	}
	s, _ = store.Get(ctx, roomID)
	if s != nil {
		t.Fatalf("empty session not deleted")
	}
}

func TestParticipantsForChatRelay(t *testing.T) {
	c, _, _ := newTestCoordinator(t, Options{})
	ctx := context.Background()
	roomID := activeRoom(t, c)

	conns, err := c.Participants(ctx, roomID)
	if err != nil {
		t.Fatalf("Participants: %v", err)
	}
	if len(conns) != 2 {
		t.Fatalf("expected 2 connections, got %v", conns)
	}
	if _, err := c.Participants(ctx, "NOPE"); !errors.Is(err, ErrNoSuchRoom) {
		t.Fatalf("expected ErrNoSuchRoom, got %v", err)
	}
}
