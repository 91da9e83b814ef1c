package room

import (
	"errors"
	"time"

	"github.com/pawnme/pawnme-server/internal/rules"
)

var (
	ErrRoomFull        = errors.New("room already has two participants")
	ErrNoSuchRoom      = errors.New("no such room")
	ErrNotAParticipant = errors.New("connection is not a participant of this room")
	ErrOutOfTurn       = errors.New("not your turn")
	ErrIllegalMove     = errors.New("illegal move")
)

// Participant is one connected actor seated in a session. The side is
// assigned at join time and never changes for the participant's lifetime.
type Participant struct {
	ConnID string     `json:"conn_id"`
	Side   rules.Side `json:"side"`
}

// Session is the authoritative record for one room: position history plus
// up to two participants in join order. The UCI move list is the source of
// truth for the position; FEN is maintained for snapshots.
type Session struct {
	RoomID       string        `json:"room_id"`
	GameUID      string        `json:"game_uid"`
	Participants []Participant `json:"participants"`
	MovesUCI     []string      `json:"moves_uci"`
	MovesSAN     []string      `json:"moves_san"`
	FEN          string        `json:"fen"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Participant finds the seat bound to connID.
func (s *Session) Participant(connID string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ConnID == connID {
			return p, true
		}
	}
	return Participant{}, false
}

// SideTaken reports whether a seat already holds the given side.
func (s *Session) SideTaken(side rules.Side) bool {
	for _, p := range s.Participants {
		if p.Side == side {
			return true
		}
	}
	return false
}

// Sides lists the occupied sides in join order, for roster broadcasts.
func (s *Session) Sides() []string {
	out := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		out = append(out, string(p.Side))
	}
	return out
}

// ConnIDs lists the connection ids of all participants.
func (s *Session) ConnIDs() []string {
	out := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		out = append(out, p.ConnID)
	}
	return out
}

// Clone deep-copies the session so store callers never share slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = append([]Participant(nil), s.Participants...)
	c.MovesUCI = append([]string(nil), s.MovesUCI...)
	c.MovesSAN = append([]string(nil), s.MovesSAN...)
	return &c
}
