// Package api exposes the services over HTTP and websocket.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/companion-chat/internal/character"
	"github.com/easeaico/companion-chat/internal/chat"
	"github.com/easeaico/companion-chat/internal/conversation"
	"github.com/easeaico/companion-chat/internal/emotion"
	"github.com/easeaico/companion-chat/internal/user"
)

// Services are the handlers' dependencies.
type Services struct {
	Characters    *character.Service
	Conversations *conversation.Service
	Chat          *chat.Service
	Emotions      *emotion.Service
	Users         *user.Service
	// Ping checks the backing store for /health; nil skips the check.
	Ping func(ctx context.Context) error
}

type handler struct {
	Services
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc Services) *gin.Engine {
	h := &handler{Services: svc}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger())
	r.GET("/health", h.health)

	api := r.Group("/api", requireUser())

	characters := api.Group("/characters")
	characters.POST("", h.createCharacter)
	characters.GET("", h.listCharacters)
	characters.GET("/search", h.searchCharacters)
	characters.GET("/popular", h.popularCharacters)
	characters.GET("/:id", h.getCharacter)
	characters.PUT("/:id", h.updateCharacter)
	characters.DELETE("/:id", h.deleteCharacter)
	characters.POST("/:id/clone", h.cloneCharacter)
	characters.POST("/:id/test", h.testCharacter)
	characters.PUT("/:id/status", h.setCharacterStatus)

	conversations := api.Group("/conversations")
	conversations.POST("", h.createConversation)
	conversations.GET("", h.listConversations)
	conversations.GET("/search", h.searchConversations)
	conversations.GET("/recent", h.recentConversations)
	conversations.GET("/stats", h.conversationStats)
	conversations.POST("/batch-delete", h.batchDeleteConversations)
	conversations.GET("/:id", h.getConversation)
	conversations.PUT("/:id", h.updateConversation)
	conversations.DELETE("/:id", h.deleteConversation)
	conversations.POST("/:id/pause", h.lifecycle((*conversation.Service).Pause))
	conversations.POST("/:id/resume", h.lifecycle((*conversation.Service).Resume))
	conversations.POST("/:id/archive", h.lifecycle((*conversation.Service).Archive))
	conversations.POST("/:id/restore", h.lifecycle((*conversation.Service).Restore))
	conversations.GET("/:id/settings", h.getConversationSettings)
	conversations.PUT("/:id/settings", h.updateConversationSettings)
	conversations.GET("/:id/messages", h.listMessages)
	conversations.POST("/:id/messages", h.sendMessage)
	conversations.GET("/:id/emotions", h.conversationEmotions)
	conversations.GET("/:id/ws", h.chatSocket)

	emotions := api.Group("/emotions")
	emotions.POST("/messages/:id/analyze", h.analyzeMessage)
	emotions.GET("/messages/:id", h.messageEmotion)
	emotions.GET("/stats", h.emotionStats)
	emotions.GET("/trend", h.emotionTrend)

	users := api.Group("/users/me")
	users.GET("/preferences", h.getPreferences)
	users.PUT("/preferences", h.updatePreferences)
	users.GET("/preferences/schema", h.preferencesSchema)

	return r
}

func (h *handler) health(c *gin.Context) {
	status := gin.H{"status": "ok", "time": time.Now()}
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, Envelope{
				Success:   false,
				Message:   "数据库不可用",
				Code:      http.StatusServiceUnavailable,
				Timestamp: time.Now(),
				RequestID: c.GetString(requestIDKey),
			})
			return
		}
	}
	ok(c, status)
}
