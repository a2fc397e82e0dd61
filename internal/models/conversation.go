package models

import "time"

// Conversation is a persistent, identifier-addressed chat session
type Conversation struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;index"`
}

// All returns every model managed by AutoMigrate, parents first
func All() []any {
	return []any{&Conversation{}, &Message{}}
}
