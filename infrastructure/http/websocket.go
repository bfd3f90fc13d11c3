package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chat-backend/sink"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are drained, never parsed; anything bigger is abuse.
	maxMessageSize = 512
)

// stream bridges a chat's event feed onto a WebSocket. The
// subscription happens before the upgrade, so an unknown chat is
// refused with a regular 404 instead of a broken socket.
func (h *Handlers) stream(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chat_id")

	channelSink := sink.NewChannelSink(h.sinkBufferSize)
	if err := h.service.Subscribe(chatID, channelSink); err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.service.Unsubscribe(chatID, channelSink)
		h.log.Warn("WebSocket upgrade failed", "chat_id", chatID, "error", err)
		return
	}

	h.metrics.SubscriberConnected()
	h.log.Info("Subscriber connected", "chat_id", chatID, "remote", conn.RemoteAddr().String())

	go h.writePump(chatID, conn, channelSink)
	h.readPump(chatID, conn, channelSink)
}

// readPump drains inbound frames for liveness only; the protocol is
// one-way. It owns teardown: when the client goes away or misses its
// pong deadline, the sink is closed and unsubscribed, which in turn
// stops the write pump.
func (h *Handlers) readPump(chatID string, conn *websocket.Conn, channelSink *sink.ChannelSink) {
	defer func() {
		h.service.Unsubscribe(chatID, channelSink)
		channelSink.Close()
		_ = conn.Close()
		h.metrics.SubscriberDisconnected()
		h.log.Info("Subscriber disconnected", "chat_id", chatID)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("Subscriber read error", "chat_id", chatID, "error", err)
			}
			return
		}
	}
}

// writePump forwards sink frames to the socket and keeps the connection
// alive with pings. When the sink closes, whatever is still buffered is
// flushed before the goodbye frame.
func (h *Handlers) writePump(chatID string, conn *websocket.Conn, channelSink *sink.ChannelSink) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame := <-channelSink.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.log.Warn("Subscriber write error", "chat_id", chatID, "error", err)
				return
			}

		case <-channelSink.Done():
			for {
				select {
				case frame := <-channelSink.Frames():
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
						return
					}
				default:
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"))
					return
				}
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
