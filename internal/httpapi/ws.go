package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/studychat/internal/chat"
	"github.com/ent0n29/studychat/internal/protocol"
	"github.com/ent0n29/studychat/internal/study"
)

const (
	wsReadLimit    = 1 << 20
	wsIdleTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleChatWS serves chat turns over a websocket. Participant, session, task
// type and memory flag are fixed for the connection by its query string; each
// chat_turn frame is answered before the next one is read.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := chat.TurnRequest{
		ParticipantID: q.Get("prolific_id"),
		Session:       study.ParseSession(q.Get("session_id")),
		TaskType:      q.Get("task_type"),
		UseMemory:     study.ParseMemoryFlag(q.Get("use_memory")),
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()
	log := s.log.With("request_id", requestIDFrom(ctx), "transport", "websocket")
	log.InfoContext(ctx, "chat websocket connected", "prolific_id", base.ParticipantID, "session_id", base.Session.String())

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.DebugContext(ctx, "chat websocket read ended", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		var reply any
		parsed, err := protocol.ParseClientMessage(data)
		switch {
		case err != nil:
			reply = protocol.NewErrorMessage(err.Error())
		default:
			turn := parsed.(protocol.ChatTurn)
			req := base
			req.Messages = turn.Messages
			req.RequestID = requestIDFrom(ctx)
			res, err := s.chat.Turn(ctx, req)
			if err != nil {
				reply = protocol.NewErrorMessage(msgProcessFailed)
			} else {
				reply = protocol.NewAssistantMessage(res.Message, res.TaskType)
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			log.WarnContext(ctx, "chat websocket write failed", "error", err)
			return
		}
	}
}
