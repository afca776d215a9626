package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewAgentStartChunk(t *testing.T) {
	chunk := NewAgentStartChunk("task_1", TaskResearch)

	if chunk.Type != ChunkAgentStart {
		t.Errorf("Type = %q, want %q", chunk.Type, ChunkAgentStart)
	}
	if chunk.Timestamp == 0 {
		t.Error("Timestamp should be set")
	}

	data, ok := chunk.Data.(AgentStartData)
	if !ok {
		t.Fatalf("Data has type %T, want AgentStartData", chunk.Data)
	}
	if data.TaskID != "task_1" || data.AgentType != "research" {
		t.Errorf("Data = %+v, want taskId=task_1 agentType=research", data)
	}
}

func TestChunkWireFormat(t *testing.T) {
	chunk := NewErrorChunk("boom")

	raw, err := json.Marshal(chunk)
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal chunk: %v", err)
	}
	if decoded["type"] != "error" {
		t.Errorf("type = %v, want error", decoded["type"])
	}
	data, ok := decoded["data"].(map[string]any)
	if !ok {
		t.Fatalf("data has type %T, want object", decoded["data"])
	}
	if data["error"] != "boom" {
		t.Errorf("data.error = %v, want boom", data["error"])
	}
}

func TestNewTokenChunkCarriesRawString(t *testing.T) {
	chunk := NewTokenChunk("hello ")
	raw, err := json.Marshal(chunk)
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}
	if !strings.Contains(string(raw), `"data":"hello "`) {
		t.Errorf("token chunk should carry the raw string, got %s", raw)
	}
}

func TestNewID(t *testing.T) {
	id := NewID("msg")
	if !strings.HasPrefix(id, "msg_") {
		t.Errorf("NewID prefix missing: %q", id)
	}
	if NewID("msg") == id {
		t.Error("NewID should be unique per call")
	}
	if strings.Contains(NewID(""), "_") {
		t.Error("NewID without prefix should have no separator")
	}
}
