package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Lothnic/hack-the-throne/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 4 * 1024,
	// Devices connect directly, not from browsers
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleIngress upgrades the connection and pumps binary media frames
// into the session pipeline. The session lives exactly as long as the
// socket: closing the connection flushes and tears the session down.
func (s *Server) handleIngress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	if _, err := s.manager.Open(sessionID); err != nil {
		s.logger.Warn("Rejecting connection",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(time.Second))
		return
	}
	defer s.manager.CloseSession(sessionID)

	conn.SetReadLimit(s.cfg.Ingress.ReadLimitBytes)
	s.logger.Info("Ingress connected",
		slog.String("session_id", sessionID),
		slog.String("remote", r.RemoteAddr))

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Ingress read error",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()))
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		frame, err := protocol.ParseFrame(data)
		if err != nil {
			s.logger.Warn("Dropping malformed frame",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
			continue
		}
		if err := protocol.ValidateHeader(frame.Header); err != nil {
			s.logger.Warn("Dropping invalid frame",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
			continue
		}

		if err := s.manager.HandleFrame(sessionID, frame); err != nil {
			s.logger.Warn("Frame routing failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
			return
		}
	}
}
