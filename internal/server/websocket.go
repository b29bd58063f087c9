package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vinayprograms/growwit/internal/campaign"
)

// Message types sent over the WebSocket.
const (
	MessageChunk    = "chunk"
	MessageComplete = "complete"
	MessageError    = "error"
)

// ServerMessage is one frame sent to a WebSocket client.
type ServerMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// wsWriter turns stream writes into chunk messages.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) Write(p []byte) (int, error) {
	if err := w.send(ServerMessage{Type: MessageChunk, Content: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsWriter) send(msg ServerMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(msg)
}

// handleWebSocket runs one campaign pass per connection. The first text
// message carries the request; the pass is cancelled when the client
// closes the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()
	out := &wsWriter{conn: conn}

	conn.SetReadLimit(s.cfg.MaxBodyBytes)
	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var req campaign.Request
	if err := json.Unmarshal(data, &req); err != nil {
		out.send(ServerMessage{Type: MessageError, Content: "Invalid message format"})
		return
	}
	if err := req.Validate(); err != nil {
		out.send(ServerMessage{Type: MessageError, Content: msgMissingFields})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Any read error, including a close frame, ends the pass.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	res, err := s.pipeline.Run(ctx, req, out)
	fields := map[string]interface{}{"product": req.ProductName, "transport": "websocket"}
	if res != nil {
		fields["session"] = res.Session.ID
	}
	if err != nil {
		fields["error"] = err.Error()
		if ctx.Err() != nil {
			s.logger.Warn("client disconnected", fields)
			return
		}
		s.logger.Error("generation failed", fields)
		out.send(ServerMessage{Type: MessageError, Content: err.Error()})
		return
	}
	s.logger.Info("campaign streamed", fields)
	out.send(ServerMessage{Type: MessageComplete, SessionID: res.Session.ID})
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
