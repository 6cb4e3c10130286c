package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// groupingEventsWS streams the same events as the SSE endpoint over a
// WebSocket. The first message is "subscribed" (or the final event when the
// grouping is already done); the server closes after "grouping.finished".
func (s *Server) groupingEventsWS(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.Store.GetGrouping(r.Context(), id); err != nil {
		s.notFound(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	// Read loop only drives control frames and notices the client leaving
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg wsMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(msg)
	}
	bye := func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "grouping finished"),
			time.Now().Add(time.Second))
	}

	g, err := s.Store.GetGrouping(r.Context(), id)
	if err == nil && g.Done() {
		_ = write(wsMessage{Type: eventFinished, Data: finishedData(g)})
		bye()
		return
	}
	if err := write(wsMessage{Type: "subscribed", Data: map[string]any{"id": id}}); err != nil {
		return
	}

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(wsMessage{Type: evt.Type, Data: evt.Data}); err != nil {
				s.Log.Debug("ws write", zap.String("grouping", id), zap.Error(err))
				return
			}
			if evt.Type == eventFinished {
				bye()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
