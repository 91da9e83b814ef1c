package ws

import (
	"context"
	"time"

	"nhooyr.io/websocket"
)

// client is one accepted websocket connection. The reader lives in the
// HTTP handler goroutine; writes go through the send channel so a slow
// consumer never blocks the dispatch loop.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writeLoop(ctx context.Context) {
	ping := time.NewTicker(15 * time.Second)
	defer func() {
		ping.Stop()
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
