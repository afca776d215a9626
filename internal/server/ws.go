package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browsers talk to the API from arbitrary origins; auth lives elsewhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSink adapts a WebSocket connection to the coordinator's Sink. gorilla
// connections allow one concurrent writer, so Send serializes under a mutex;
// the dispatcher emits from several goroutines at once.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(chunk models.StreamChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(chunk)
}

// handleWS upgrades the connection and pumps inbound frames into the
// conversation's coordinator until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conversationID, coord, ok := s.lookupConversation(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}
	defer conn.Close()

	sink := &wsSink{conn: conn}
	coord.OnConnectionOpen(sink)
	defer coord.OnConnectionClose(sink)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read failed", zap.String("conversation_id", conversationID), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		coord.OnClientMessage(sink, payload)
	}
}
