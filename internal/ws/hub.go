package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/pawnme/pawnme-server/internal/obslog"
	"github.com/pawnme/pawnme-server/internal/room"
	"github.com/pawnme/pawnme-server/pkg/gamedto"
)

// inbound is one connection event queued for the dispatch loop. A nil env
// with gone=true marks a closed connection.
type inbound struct {
	c    *client
	env  gamedto.Envelope
	gone bool
}

// Hub accepts websocket connections and funnels every connection event
// into a single dispatch loop, so coordinator handlers for different
// events never interleave. The hub itself keeps no room membership; the
// coordinator names broadcast recipients explicitly.
type Hub struct {
	allowOrigins map[string]bool

	mu      sync.RWMutex
	clients map[string]*client

	events chan inbound
	coord  *room.Coordinator
}

func NewHub(allowOrigins []string) *Hub {
	m := make(map[string]bool, len(allowOrigins))
	for _, a := range allowOrigins {
		if a != "" {
			m[a] = true
		}
	}
	return &Hub{
		allowOrigins: m,
		clients:      make(map[string]*client),
		events:       make(chan inbound, 256),
	}
}

// AttachCoordinator wires the protocol handler. Must be called before Run.
func (h *Hub) AttachCoordinator(c *room.Coordinator) { h.coord = c }

// Run drains the event queue until ctx is cancelled. Every event is
// handled to completion before the next is dequeued.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			if ev.gone {
				if err := h.coord.Disconnect(ctx, ev.c.id); err != nil {
					obslog.L().Warn("ws_disconnect_error", zap.String("conn_id", ev.c.id), zap.Error(err))
				}
				continue
			}
			h.dispatch(ctx, ev.c, ev.env)
		}
	}
}

// ServeWS upgrades the request and runs the connection's read loop.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && len(h.allowOrigins) > 0 && !h.allowOrigins[origin] {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	obslog.L().Info("ws_connect", zap.String("conn_id", c.id))

	go c.writeLoop(r.Context())

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			break
		}
		var env gamedto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		h.events <- inbound{c: c, env: env}
	}

	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	close(c.send)
	obslog.L().Info("ws_disconnect", zap.String("conn_id", c.id))
	h.events <- inbound{c: c, gone: true}
}

func (h *Hub) dispatch(ctx context.Context, c *client, env gamedto.Envelope) {
	switch env.Event {
	case gamedto.EventCreateRoom:
		h.handleCreate(ctx, c)
	case gamedto.EventJoinRoom:
		h.handleJoin(ctx, c, env.Data)
	case gamedto.EventMakeMove:
		h.handleMove(ctx, c, env.Data)
	case gamedto.EventResetGame:
		h.handleReset(ctx, c, env.Data)
	case gamedto.EventChat:
		h.handleChat(ctx, c, env.Data)
	default:
		obslog.L().Debug("ws_unknown_event", zap.String("conn_id", c.id), zap.String("event", env.Event))
	}
}

func (h *Hub) handleCreate(ctx context.Context, c *client) {
	roomID, side, err := h.coord.Create(ctx, c.id)
	if err != nil {
		h.sendTo(c.id, gamedto.EventCreateAck, gamedto.CreateRoomAck{Error: wireError(err)})
		return
	}
	h.sendTo(c.id, gamedto.EventCreateAck, gamedto.CreateRoomAck{RoomID: roomID, Side: string(side)})
}

func (h *Hub) handleJoin(ctx context.Context, c *client, data json.RawMessage) {
	var req gamedto.JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendTo(c.id, gamedto.EventJoinAck, gamedto.JoinRoomAck{Error: "Bad request"})
		return
	}
	roomID, side, err := h.coord.Join(ctx, c.id, req.RoomID)
	if err != nil {
		h.sendTo(c.id, gamedto.EventJoinAck, gamedto.JoinRoomAck{Error: wireError(err)})
		return
	}
	h.sendTo(c.id, gamedto.EventJoinAck, gamedto.JoinRoomAck{RoomID: roomID, Side: string(side)})
}

func (h *Hub) handleMove(ctx context.Context, c *client, data json.RawMessage) {
	var req gamedto.MakeMoveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendTo(c.id, gamedto.EventMoveAck, gamedto.MakeMoveAck{Error: "Bad request"})
		return
	}
	mv, err := h.coord.ApplyMove(ctx, c.id, req.RoomID, req.From, req.To, req.Promotion)
	if err != nil {
		h.sendTo(c.id, gamedto.EventMoveAck, gamedto.MakeMoveAck{Error: wireError(err)})
		return
	}
	h.sendTo(c.id, gamedto.EventMoveAck, gamedto.MakeMoveAck{OK: true, Move: mv})
}

func (h *Hub) handleReset(ctx context.Context, c *client, data json.RawMessage) {
	var req gamedto.ResetGameRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendTo(c.id, gamedto.EventResetAck, gamedto.Ack{Error: "Bad request"})
		return
	}
	if err := h.coord.Reset(ctx, c.id, req.RoomID); err != nil {
		h.sendTo(c.id, gamedto.EventResetAck, gamedto.Ack{Error: wireError(err)})
		return
	}
	h.sendTo(c.id, gamedto.EventResetAck, gamedto.Ack{OK: true})
}

// handleChat relays a chat line to every participant of the room. Pure
// broadcast; no game state is touched.
func (h *Hub) handleChat(ctx context.Context, c *client, data json.RawMessage) {
	var req gamedto.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendTo(c.id, gamedto.EventChatAck, gamedto.Ack{Error: "Bad request"})
		return
	}
	members, err := h.coord.Participants(ctx, req.RoomID)
	if err != nil {
		h.sendTo(c.id, gamedto.EventChatAck, gamedto.Ack{Error: wireError(err)})
		return
	}
	h.ToConns(members, gamedto.EventChat, gamedto.ChatMessage{
		Name:    req.Name,
		Message: req.Message,
		TS:      time.Now().UnixMilli(),
	})
}

// ToConns implements room.Broadcaster.
func (h *Hub) ToConns(connIDs []string, event string, payload any) {
	frame := gamedto.MustEnvelope(event, payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range connIDs {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case c.send <- frame:
		default:
			// Slow consumer; drop rather than stall the loop.
		}
	}
}

func (h *Hub) sendTo(connID, event string, payload any) {
	h.ToConns([]string{connID}, event, payload)
}

// wireError maps coordinator errors onto the protocol's error strings.
func wireError(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomFull):
		return "Room full"
	case errors.Is(err, room.ErrNoSuchRoom):
		return "No such room"
	case errors.Is(err, room.ErrNotAParticipant):
		return "You are not in this room"
	case errors.Is(err, room.ErrOutOfTurn):
		return "Not your turn"
	case errors.Is(err, room.ErrIllegalMove):
		return "Illegal move"
	default:
		return "Internal error"
	}
}
