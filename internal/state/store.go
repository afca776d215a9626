package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quorumlabs/quorum/pkg/models"
)

// CreateConversation inserts a new conversation owned by userID and returns
// its identifier.
func (db *DB) CreateConversation(userID string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	conversationID := models.NewID("conv")
	now := time.Now().UnixMilli()

	_, err := db.conn.Exec(
		`INSERT INTO conversations (id, user_id, created_at, updated_at, metadata) VALUES (?, ?, ?, ?, ?)`,
		conversationID, userID, now, now, "{}",
	)
	if err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}

	return conversationID, nil
}

// SaveMessage appends a message to the conversation log and touches the
// conversation's updated_at timestamp.
func (db *DB) SaveMessage(conversationID string, msg models.Message) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	metadata := "{}"
	if msg.Metadata != nil {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("marshal message metadata: %w", err)
		}
		metadata = string(raw)
	}

	_, err := db.conn.Exec(
		`INSERT INTO messages (id, conversation_id, role, content, created_at, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, string(msg.Role), msg.Content, msg.Timestamp, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	_, err = db.conn.Exec(
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), conversationID,
	)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	return nil
}

// GetMessages returns up to limit most-recent messages for the conversation,
// oldest first.
func (db *DB) GetMessages(conversationID string, limit int) ([]models.Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(
		`SELECT id, role, content, created_at, metadata FROM messages
		 WHERE conversation_id = ? ORDER BY created_at DESC LIMIT ?`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var role, metadata string
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = models.Role(role)
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal message metadata: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// SaveAgentExecution records one worker execution for audit and analysis.
func (db *DB) SaveAgentExecution(conversationID, agentType, input, output string, durationMs, tokensUsed int64, status, errMsg string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		`INSERT INTO agent_executions
		 (id, conversation_id, agent_type, input, output, duration_ms, tokens_used, created_at, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		models.NewID("exec"), conversationID, agentType, input, output,
		durationMs, tokensUsed, time.Now().UnixMilli(), status, errMsg,
	)
	if err != nil {
		return fmt.Errorf("insert agent execution: %w", err)
	}
	return nil
}

// GetConversationContext rebuilds a ConversationContext from the store with
// an empty task list. Returns ErrNotFound for unknown conversations.
func (db *DB) GetConversationContext(conversationID string) (*models.ConversationContext, error) {
	db.mu.RLock()
	var userID, metadata string
	err := db.conn.QueryRow(
		`SELECT user_id, metadata FROM conversations WHERE id = ?`, conversationID,
	).Scan(&userID, &metadata)
	db.mu.RUnlock()

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	messages, err := db.GetMessages(conversationID, 50)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
			return nil, fmt.Errorf("unmarshal conversation metadata: %w", err)
		}
	}

	return &models.ConversationContext{
		ConversationID: conversationID,
		UserID:         userID,
		Messages:       messages,
		Tasks:          nil,
		Metadata:       meta,
	}, nil
}
