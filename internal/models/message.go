package models

import (
	"time"
)

// Sender identifies who authored a message
type Sender string

// Message senders. System prompts are never persisted.
const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Valid reports whether s is one of the two persisted senders
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// Message is an immutable entry in a conversation transcript.
// Seq is an insertion counter used only to break createdAt ties.
type Message struct {
	Seq            uint64    `json:"-" gorm:"primaryKey;autoIncrement"`
	ID             string    `json:"id" gorm:"type:varchar(36);uniqueIndex;not null"`
	ConversationID string    `json:"conversationId" gorm:"type:varchar(36);not null;index:idx_messages_conversation_order,priority:1"`
	Sender         Sender    `json:"sender" gorm:"type:varchar(8);not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"createdAt" gorm:"not null;index:idx_messages_conversation_order,priority:2"`

	Conversation *Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnDelete:CASCADE"`
}
