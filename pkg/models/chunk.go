package models

import "time"

// ChunkType tags a StreamChunk on the wire.
type ChunkType string

const (
	// ChunkAgentStart announces that a task is about to execute.
	ChunkAgentStart ChunkType = "agent_start"
	// ChunkAgentComplete announces that a task reached a terminal status.
	ChunkAgentComplete ChunkType = "agent_complete"
	// ChunkToken carries one word of the streamed answer.
	ChunkToken ChunkType = "token"
	// ChunkDone closes a turn and reports the parallel-phase duration.
	ChunkDone ChunkType = "done"
	// ChunkError reports a protocol-level failure.
	ChunkError ChunkType = "error"
)

// StreamChunk is the wire representation of every coordinator-to-client
// event. Chunks are JSON-encoded, one per WebSocket frame.
type StreamChunk struct {
	Type      ChunkType `json:"type"`
	Data      any       `json:"data"`
	Timestamp int64     `json:"timestamp"`
}

// AgentStartData is the payload of an agent_start chunk.
type AgentStartData struct {
	TaskID    string `json:"taskId"`
	AgentType string `json:"agentType"`
}

// AgentCompleteData is the payload of an agent_complete chunk.
type AgentCompleteData struct {
	TaskID string `json:"taskId"`
	Result any    `json:"result"`
	Status string `json:"status"`
}

// DoneData is the payload of a done chunk.
type DoneData struct {
	ExecutionTimeMs int64 `json:"executionTimeMs"`
}

// ErrorData is the payload of an error chunk.
type ErrorData struct {
	Error string `json:"error"`
}

func now() int64 { return time.Now().UnixMilli() }

// NewAgentStartChunk builds an agent_start chunk for the given task.
func NewAgentStartChunk(taskID string, agentType TaskType) StreamChunk {
	return StreamChunk{
		Type:      ChunkAgentStart,
		Data:      AgentStartData{TaskID: taskID, AgentType: string(agentType)},
		Timestamp: now(),
	}
}

// NewAgentCompleteChunk builds an agent_complete chunk carrying the task's
// result and terminal status.
func NewAgentCompleteChunk(taskID string, result any, status string) StreamChunk {
	return StreamChunk{
		Type:      ChunkAgentComplete,
		Data:      AgentCompleteData{TaskID: taskID, Result: result, Status: status},
		Timestamp: now(),
	}
}

// NewTokenChunk builds a token chunk carrying one word of the answer.
func NewTokenChunk(token string) StreamChunk {
	return StreamChunk{Type: ChunkToken, Data: token, Timestamp: now()}
}

// NewDoneChunk builds the closing chunk of a turn.
func NewDoneChunk(executionTimeMs int64) StreamChunk {
	return StreamChunk{
		Type:      ChunkDone,
		Data:      DoneData{ExecutionTimeMs: executionTimeMs},
		Timestamp: now(),
	}
}

// NewErrorChunk builds an error chunk for protocol-level failures.
func NewErrorChunk(message string) StreamChunk {
	return StreamChunk{Type: ChunkError, Data: ErrorData{Error: message}, Timestamp: now()}
}
