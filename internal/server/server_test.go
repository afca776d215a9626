package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/internal/agents"
	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/search"
	"github.com/quorumlabs/quorum/internal/state"
)

type fixedCompleter struct {
	text string
}

func (c fixedCompleter) Complete(ctx context.Context, prompt string, opts llm.Options) llm.Result {
	return llm.Result{Success: true, Text: c.text, TokensUsed: 1}
}

type emptySearcher struct{}

func (emptySearcher) Search(ctx context.Context, query string, maxResults int) []search.Result {
	return nil
}

func newTestServer(t *testing.T, limit int) (*Server, *Registry) {
	t.Helper()

	db, err := state.Open(filepath.Join(t.TempDir(), "quorum.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	workers := agents.New(fixedCompleter{text: "A short test answer."}, emptySearcher{}, 3, zap.NewNop())
	registry := NewRegistry(workers, db, nil, zap.NewNop(), 0)
	return New(registry, NewRateLimiter(limit, time.Minute), zap.NewNop()), registry
}

func TestHealthAndInfo(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	defer resp.Body.Close()
	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info["name"] != "quorum" {
		t.Errorf("name = %v", info["name"])
	}
}

func TestNewConversation(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/conversation/new?userId=alice", "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(body["conversationId"], "conv_") {
		t.Errorf("conversationId = %q", body["conversationId"])
	}
	if body["userId"] != "alice" {
		t.Errorf("userId = %q", body["userId"])
	}
}

func TestNewConversationRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, 2)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	var last int
	for i := 0; i < 3; i++ {
		resp, err := http.Post(ts.URL+"/api/conversation/new?userId=alice", "", nil)
		if err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}

	// Other users are unaffected.
	resp, err := http.Post(ts.URL+"/api/conversation/new?userId=bob", "", nil)
	if err != nil {
		t.Fatalf("post bob: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("bob status = %d", resp.StatusCode)
	}
}

func TestWSUnknownConversation(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/ws?conversationId=conv_missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/ws")
	if err != nil {
		t.Fatalf("get without id: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// wireChunk mirrors the serialized chunk format for test decoding.
type wireChunk struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func TestWSTurnRoundTrip(t *testing.T) {
	srv, registry := newTestServer(t, 10)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conversationID, err := registry.Create("alice")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?conversationId=" + conversationID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"user_message","content":"hello"}`))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var chunks []wireChunk
	for {
		var chunk wireChunk
		if err := conn.ReadJSON(&chunk); err != nil {
			t.Fatalf("read: %v (got %d chunks)", err, len(chunks))
		}
		chunks = append(chunks, chunk)
		if chunk.Type == "done" {
			break
		}
	}

	// "hello" decomposes to a lone synthesis task.
	counts := map[string]int{}
	var answer strings.Builder
	for _, chunk := range chunks {
		counts[chunk.Type]++
		if chunk.Type == "token" {
			var token string
			if err := json.Unmarshal(chunk.Data, &token); err != nil {
				t.Fatalf("decode token: %v", err)
			}
			answer.WriteString(token)
		}
	}
	if counts["agent_start"] != 1 || counts["agent_complete"] != 1 {
		t.Errorf("counts = %v, want one synthesis start and complete", counts)
	}
	if counts["error"] != 0 {
		t.Errorf("unexpected error chunks: %v", counts)
	}
	if answer.String() != "A short test answer." {
		t.Errorf("reassembled answer = %q", answer.String())
	}

	var start struct {
		TaskID    string `json:"taskId"`
		AgentType string `json:"agentType"`
	}
	if err := json.Unmarshal(chunks[0].Data, &start); err != nil {
		t.Fatalf("decode agent_start: %v", err)
	}
	if start.AgentType != "synthesis" {
		t.Errorf("first agent = %q, want synthesis", start.AgentType)
	}
}

func TestWSMalformedFrame(t *testing.T) {
	srv, registry := newTestServer(t, 10)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conversationID, err := registry.Create("alice")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?conversationId=" + conversationID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var chunk wireChunk
	if err := conn.ReadJSON(&chunk); err != nil {
		t.Fatalf("read: %v", err)
	}
	if chunk.Type != "error" {
		t.Errorf("chunk type = %q, want error", chunk.Type)
	}
}
