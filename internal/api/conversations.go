package api

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/companion-chat/internal/conversation"
	"github.com/easeaico/companion-chat/internal/types"
)

type transitionFunc func(s *conversation.Service, ctx context.Context, userID, conversationID int64) (*types.Conversation, error)

func (h *handler) createConversation(c *gin.Context) {
	var req conversation.CreateRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	result, err := h.Conversations.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, result)
}

func (h *handler) listConversations(c *gin.Context) {
	var page types.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		fail(c, badRequest("分页参数格式错误"))
		return
	}
	var status *types.ConversationStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		s := types.ConversationStatus(strings.ToUpper(raw))
		status = &s
	}
	result, err := h.Conversations.List(c.Request.Context(), currentUser(c), status, page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) searchConversations(c *gin.Context) {
	result, err := h.Conversations.Search(c.Request.Context(), currentUser(c), c.Query("title"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) recentConversations(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.Conversations.Recent(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) conversationStats(c *gin.Context) {
	result, err := h.Conversations.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) batchDeleteConversations(c *gin.Context) {
	var req struct {
		ConversationIDs []int64 `json:"conversation_ids"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	n, err := h.Conversations.BatchDelete(c.Request.Context(), currentUser(c), req.ConversationIDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"deleted": n})
}

func (h *handler) getConversation(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.Conversations.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) updateConversation(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req conversation.UpdateRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	result, err := h.Conversations.Update(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) deleteConversation(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Conversations.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// lifecycle adapts a status transition to a handler.
func (h *handler) lifecycle(transition transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		result, err := transition(h.Conversations, c.Request.Context(), currentUser(c), id)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, result)
	}
}

func (h *handler) getConversationSettings(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.Conversations.GetSettings(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) updateConversationSettings(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req conversation.SettingsUpdate
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	result, err := h.Conversations.UpdateSettings(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) listMessages(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var page types.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		fail(c, badRequest("分页参数格式错误"))
		return
	}
	result, err := h.Conversations.Messages(c.Request.Context(), currentUser(c), id, page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

// sendRequest is the body of a turn, over HTTP or websocket.
type sendRequest struct {
	Content string `json:"content"`
}

func (h *handler) sendMessage(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req sendRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	result, err := h.Chat.SendMessage(c.Request.Context(), currentUser(c), id, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) conversationEmotions(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.Emotions.ConversationEmotions(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}
