package gamedto

import "encoding/json"

// Envelope is the wire frame for every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client-originated events.
const (
	EventCreateRoom = "create_room"
	EventJoinRoom   = "join_room"
	EventMakeMove   = "make_move"
	EventResetGame  = "reset_game"
	EventChat       = "chat_message"
)

// Server-originated events. Acks go only to the requesting connection,
// the rest are room broadcasts.
const (
	EventCreateAck = "create_room_ack"
	EventJoinAck   = "join_room_ack"
	EventMoveAck   = "make_move_ack"
	EventResetAck  = "reset_game_ack"
	EventChatAck   = "chat_message_ack"
	EventRoomState = "room_state"
	EventGameState = "game_state"
	EventGameEnd   = "game_end"
)

// MustEnvelope marshals payload into an Envelope and the Envelope into
// bytes. Payload types are under our control, so a marshal failure is a
// programming error and panics.
func MustEnvelope(event string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		panic(err)
	}
	return raw
}
