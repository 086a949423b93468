package models

import "time"

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one side of a conversation turn
type ChatMessage struct {
	ID        string    `bson:"_id" json:"id"`
	Content   string    `bson:"content" json:"content"`
	Role      string    `bson:"role" json:"role"` // "user" or "assistant"
	Sources   []Source  `bson:"sources" json:"sources"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Source attributes an assistant answer to a document
type Source struct {
	DocumentID string  `bson:"document_id" json:"documentId"`
	Name       string  `bson:"name" json:"name"`
	Similarity float64 `bson:"similarity" json:"similarity"`
}

// ChatRequest is the body of a send-message call
type ChatRequest struct {
	Content      string `json:"content" binding:"required,min=1,max=4000"`
	LanguageHint string `json:"languageHint,omitempty"`
}

// ChatResponse returns both persisted messages of a turn
type ChatResponse struct {
	UserMessage      *ChatMessage `json:"userMessage"`
	AssistantMessage *ChatMessage `json:"assistantMessage"`
}
