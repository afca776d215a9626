// Package models defines the shared data types for Quorum: conversation
// messages, agent tasks, agent responses, and the client-facing stream chunks.
package models

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser is a message sent by the end user.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the synthesis pipeline.
	RoleAssistant Role = "assistant"
	// RoleSystem is an injected system message.
	RoleSystem Role = "system"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is a single conversation message. Messages are immutable once
// created; they are appended to the conversation history, persisted to the
// relational store, and embedded into the vector index.
type Message struct {
	// ID is the unique identifier for this message.
	ID string `json:"id"`
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Metadata carries optional per-message annotations, such as the
	// synthesis sources and completeness for assistant messages.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ConversationContext is the mutable state owned by one conversation
// coordinator. Messages are append-only; Tasks are replaced each turn.
type ConversationContext struct {
	// ConversationID is the identifier assigned by the relational store.
	ConversationID string `json:"conversationId"`
	// UserID is the owner of the conversation.
	UserID string `json:"userId"`
	// Messages is the ordered conversation history.
	Messages []Message `json:"messages"`
	// Tasks is the task set of the current turn.
	Tasks []*AgentTask `json:"tasks"`
	// Metadata carries conversation-level annotations.
	Metadata map[string]any `json:"metadata"`
}
