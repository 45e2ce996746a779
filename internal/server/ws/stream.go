// Package ws exposes per-order lifecycle event streams over WebSocket.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/swaprouter/internal/bus"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message. Clients are
	// not expected to send anything beyond control frames.
	maxMessageSize = 512
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// Stream serves one WebSocket connection per order id, relaying lifecycle
// status events from the bus until the order reaches a terminal state.
type Stream struct {
	bus    *bus.Bus
	logger *slog.Logger
}

// NewStream creates a Stream backed by the given event bus.
func NewStream(b *bus.Bus, logger *slog.Logger) *Stream {
	return &Stream{
		bus:    b,
		logger: logger.With(slog.String("component", "ws")),
	}
}

// HandleOrderStream upgrades the request and streams status events for the
// order named in the path. The first frame is always the current pending
// snapshot; the connection closes from the server side once a terminal event
// has been delivered.
// GET /ws/orders/{id}
func (s *Stream) HandleOrderStream(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		http.Error(w, `{"error":"missing order id"}`, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		return
	}

	sub := s.bus.Subscribe(orderID)

	s.logger.Info("client subscribed", slog.String("order_id", orderID))

	// The read pump only services control frames and detects disconnects;
	// clients have nothing to say on this stream.
	go s.readPump(conn, sub, orderID)
	s.writePump(conn, sub, orderID)
}

// readPump discards inbound frames and cancels the subscription when the
// client goes away.
func (s *Stream) readPump(conn *websocket.Conn, sub *bus.Subscription, orderID string) {
	defer sub.Cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("unexpected close",
					slog.String("order_id", orderID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// writePump sends status events as JSON text frames and periodic pings. It
// returns when the subscription channel closes (terminal event or cancel) or
// a write fails.
func (s *Stream) writePump(conn *websocket.Conn, sub *bus.Subscription, orderID string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Terminal event delivered (or subscription cancelled);
				// close the connection cleanly.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "order finished"))
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("marshal event failed",
					slog.String("order_id", orderID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
