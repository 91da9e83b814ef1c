package gamedto

// Move describes a single applied move on the wire.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san,omitempty"`
	Side      string `json:"side"`
}

// GameState is the authoritative position snapshot broadcast to a room
// after every accepted move, join, and reset.
type GameState struct {
	FEN        string              `json:"fen"`
	Turn       string              `json:"turn"`
	LastMove   *Move               `json:"last_move,omitempty"`
	LegalMoves map[string][]string `json:"legal_moves"`
	InCheck    bool                `json:"in_check"`
	GameOver   bool                `json:"game_over"`
	Checkmate  bool                `json:"checkmate"`
	Draw       bool                `json:"draw"`
}

// RoomState lists the sides currently seated in a room, join order.
type RoomState struct {
	Players []string `json:"players"`
}

// GameEnd is broadcast once when a move concludes the game.
type GameEnd struct {
	Winner string `json:"winner,omitempty"`
	Draw   bool   `json:"draw,omitempty"`
}

// ChatMessage is the relayed chat line. TS is unix milliseconds.
type ChatMessage struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	TS      int64  `json:"ts"`
}

type CreateRoomAck struct {
	RoomID string `json:"room_id,omitempty"`
	Side   string `json:"side,omitempty"`
	Error  string `json:"error,omitempty"`
}

type JoinRoomAck struct {
	RoomID string `json:"room_id,omitempty"`
	Side   string `json:"side,omitempty"`
	Error  string `json:"error,omitempty"`
}

type MakeMoveAck struct {
	OK    bool   `json:"ok"`
	Move  *Move  `json:"move,omitempty"`
	Error string `json:"error,omitempty"`
}

type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
