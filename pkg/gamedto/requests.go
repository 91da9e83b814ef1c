package gamedto

type JoinRoomRequest struct {
	RoomID string `json:"room_id"`
}

type MakeMoveRequest struct {
	RoomID    string `json:"room_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type ResetGameRequest struct {
	RoomID string `json:"room_id"`
}

type ChatRequest struct {
	RoomID  string `json:"room_id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}
