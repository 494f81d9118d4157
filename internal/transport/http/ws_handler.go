package http

import (
	"net/http"

	"adaptive-quiz-service/internal/app"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler streams live score-leaderboard snapshots to websocket
// clients. Every committed answer pushes a fresh snapshot.
type WSHandler struct {
	leaderboard *app.LeaderboardService
	upgrader    websocket.Upgrader
	log         *zap.Logger
}

func NewWSHandler(leaderboard *app.LeaderboardService, log *zap.Logger) *WSHandler {
	return &WSHandler{
		leaderboard: leaderboard,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type outboundMessage struct {
	Type    string                `json:"type"`
	Payload app.LeaderboardUpdate `json:"payload"`
}

// ServeWS upgrades the connection and forwards leaderboard updates until
// the client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel, err := h.leaderboard.Subscribe(r.Context())
	if err != nil {
		h.log.Warn("leaderboard subscribe failed", zap.Error(err))
		return
	}
	defer cancel()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			// Clients only listen; reads exist to detect the close frame.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
				h.log.Debug("ws write failed", zap.Error(err))
				return
			}
		case <-readerDone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
