package types

import "time"

// SenderType tags who produced a message.
type SenderType string

const (
	SenderUser   SenderType = "USER"
	SenderAI     SenderType = "AI"
	SenderSystem SenderType = "SYSTEM"
)

// MessageType tags the payload kind.
type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageImage  MessageType = "IMAGE"
	MessageAudio  MessageType = "AUDIO"
	MessageVideo  MessageType = "VIDEO"
	MessageFile   MessageType = "FILE"
	MessageSystem MessageType = "SYSTEM"
)

// Message is one append-only entry of a conversation.
type Message struct {
	ID               int64       `json:"id"`
	ConversationID   int64       `json:"conversation_id"`
	Content          string      `json:"content"`
	SenderType       SenderType  `json:"sender_type"`
	MessageType      MessageType `json:"message_type"`
	EmotionScore     *float64    `json:"emotion_score,omitempty"`
	TokenCount       *int        `json:"token_count,omitempty"`
	ProcessingTimeMs *int64      `json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Role maps the sender to a completion role.
func (m *Message) Role() string {
	if m.SenderType == SenderUser {
		return RoleUser
	}
	return RoleAssistant
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged unit of text sent to a completion provider.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
