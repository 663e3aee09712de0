package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const socketWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the identity layer in front of the service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatSocket runs conversation turns over a websocket. Each client frame
// {"content": "..."} produces one envelope, same as POST .../messages.
func (h *handler) chatSocket(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	userID := currentUser(c)
	ctx := c.Request.Context()
	// Ownership is checked before the upgrade so failures get a plain HTTP answer.
	if _, err := h.Conversations.Get(ctx, userID, id); err != nil {
		fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "conversation_id", id, "error", err.Error())
		return
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	slog.Info("websocket connected", "conversation_id", id, "user_id", userID)
	for {
		var frame sendRequest
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read ended", "conversation_id", id, "error", err.Error())
			}
			return
		}

		var env Envelope
		messages, err := h.Chat.SendMessage(ctx, userID, id, frame.Content)
		if err != nil {
			env = errorEnvelope(c, err)
		} else {
			env = successEnvelope(c, http.StatusOK, messages, "")
		}

		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
		if err := conn.WriteJSON(env); err != nil {
			slog.Warn("websocket write failed", "conversation_id", id, "error", err.Error())
			return
		}
	}
}
