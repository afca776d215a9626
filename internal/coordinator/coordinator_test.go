package coordinator

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/internal/agents"
	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/search"
	"github.com/quorumlabs/quorum/pkg/models"
)

// memSink collects chunks in emission order.
type memSink struct {
	mu     sync.Mutex
	chunks []models.StreamChunk
}

func (s *memSink) Send(chunk models.StreamChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *memSink) all() []models.StreamChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StreamChunk(nil), s.chunks...)
}

func (s *memSink) byType(t models.ChunkType) []models.StreamChunk {
	var out []models.StreamChunk
	for _, c := range s.all() {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// scriptedCompleter returns a per-role result keyed by system prompt.
type scriptedCompleter struct {
	mu      sync.Mutex
	results map[string]llm.Result
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string, opts llm.Options) llm.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[opts.SystemPrompt]; ok {
		return r
	}
	return llm.Result{Success: true, Text: "ok"}
}

type nopSearcher struct{}

func (nopSearcher) Search(ctx context.Context, query string, maxResults int) []search.Result {
	return nil
}

func newTestCoordinator(t *testing.T, completer llm.Completer) (*Coordinator, *memSink) {
	t.Helper()
	workers := agents.New(completer, nopSearcher{}, 3, zap.NewNop())
	coord := New("conv_test", workers, nil, nil, zap.NewNop(), 0)
	coord.Initialize("user_test")
	sink := &memSink{}
	coord.OnConnectionOpen(sink)
	return coord, sink
}

func userMessage(content string) []byte {
	return []byte(`{"type":"user_message","content":"` + content + `"}`)
}

func TestTurnEventShape(t *testing.T) {
	answer := "The final synthesized answer here."
	completer := &scriptedCompleter{results: map[string]llm.Result{
		llm.ResearchPrompt:  {Success: true, Text: "Findings. More findings. Even more. Extra."},
		llm.AnalysisPrompt:  {Success: true, Text: "A clear pattern emerged."},
		llm.SynthesisPrompt: {Success: true, Text: answer},
	}}
	coord, sink := newTestCoordinator(t, completer)

	coord.OnClientMessage(sink, userMessage("What are the latest trends in AI and analyze the pros and cons"))

	chunks := sink.all()
	if len(chunks) == 0 {
		t.Fatal("no chunks emitted")
	}

	starts := sink.byType(models.ChunkAgentStart)
	completes := sink.byType(models.ChunkAgentComplete)
	if len(starts) != 3 {
		t.Errorf("agent_start count = %d, want 3", len(starts))
	}
	if len(completes) != 3 {
		t.Errorf("agent_complete count = %d, want 3", len(completes))
	}
	if errs := sink.byType(models.ChunkError); len(errs) != 0 {
		t.Errorf("unexpected error chunks: %v", errs)
	}
	if dones := sink.byType(models.ChunkDone); len(dones) != 1 {
		t.Errorf("done count = %d, want 1", len(dones))
	}
	if last := chunks[len(chunks)-1]; last.Type != models.ChunkDone {
		t.Errorf("last chunk type = %s, want done", last.Type)
	}

	// Every parallel agent_start must precede every agent_complete.
	lastParallelStart := -1
	firstComplete := len(chunks)
	for i, c := range chunks {
		switch c.Type {
		case models.ChunkAgentStart:
			data := c.Data.(models.AgentStartData)
			if data.AgentType != string(models.TaskSynthesis) && i > lastParallelStart {
				lastParallelStart = i
			}
		case models.ChunkAgentComplete:
			if i < firstComplete {
				firstComplete = i
			}
		}
	}
	if lastParallelStart > firstComplete {
		t.Errorf("parallel agent_start at index %d after first agent_complete at %d", lastParallelStart, firstComplete)
	}

	// Token chunks reassemble the answer exactly.
	var sb strings.Builder
	for _, c := range sink.byType(models.ChunkToken) {
		sb.WriteString(c.Data.(string))
	}
	if sb.String() != answer {
		t.Errorf("reassembled answer = %q, want %q", sb.String(), answer)
	}
}

func TestPartialFailureDegradesGracefully(t *testing.T) {
	completer := &scriptedCompleter{results: map[string]llm.Result{
		llm.ResearchPrompt:  {Success: false, Error: "search backend down"},
		llm.AnalysisPrompt:  {Success: true, Text: "A clear conclusion."},
		llm.SynthesisPrompt: {Success: true, Text: "Partial but useful answer."},
	}}
	coord, sink := newTestCoordinator(t, completer)

	coord.OnClientMessage(sink, userMessage("What are the latest trends and analyze the pros and cons"))

	var failed, completed int
	var synthesisStatus string
	for _, c := range sink.byType(models.ChunkAgentComplete) {
		data := c.Data.(models.AgentCompleteData)
		if strings.HasPrefix(data.TaskID, "task_") && data.Status == string(models.TaskFailed) {
			failed++
		}
		if data.Status == string(models.TaskCompleted) {
			completed++
		}
	}
	// Third agent_complete is synthesis, which always reports completed.
	completes := sink.byType(models.ChunkAgentComplete)
	if len(completes) != 3 {
		t.Fatalf("agent_complete count = %d, want 3", len(completes))
	}
	synthesisStatus = completes[2].Data.(models.AgentCompleteData).Status
	if failed != 1 || completed != 2 {
		t.Errorf("failed = %d completed = %d, want 1 and 2", failed, completed)
	}
	if synthesisStatus != string(models.TaskCompleted) {
		t.Errorf("synthesis status = %q, want completed", synthesisStatus)
	}

	// A failed sibling still yields an answer with completeness 0.5.
	coord.mu.Lock()
	messages := coord.context.Messages
	coord.mu.Unlock()
	if len(messages) != 2 {
		t.Fatalf("context messages = %d, want user + assistant", len(messages))
	}
	assistant := messages[1]
	if assistant.Role != models.RoleAssistant {
		t.Fatalf("second message role = %s", assistant.Role)
	}
	completeness, _ := assistant.Metadata["completeness"].(float64)
	if math.Abs(completeness-0.5) > 1e-9 {
		t.Errorf("completeness = %v, want 0.5", completeness)
	}
}

func TestSynthesisFailureProducesNoAnswer(t *testing.T) {
	completer := &scriptedCompleter{results: map[string]llm.Result{
		llm.SynthesisPrompt: {Success: false, Error: "overloaded"},
	}}
	coord, sink := newTestCoordinator(t, completer)

	coord.OnClientMessage(sink, userMessage("hello there"))

	// Task-level failures never surface as error chunks.
	if errs := sink.byType(models.ChunkError); len(errs) != 0 {
		t.Errorf("error chunks emitted: %d", len(errs))
	}
	if tokens := sink.byType(models.ChunkToken); len(tokens) != 0 {
		t.Errorf("tokens emitted despite synthesis failure: %d", len(tokens))
	}
	// The turn still closes with done.
	if dones := sink.byType(models.ChunkDone); len(dones) != 1 {
		t.Errorf("done count = %d, want 1", len(dones))
	}

	// The synthesis agent_complete still reports completed; the task record
	// carries the real status.
	completes := sink.byType(models.ChunkAgentComplete)
	if len(completes) != 1 {
		t.Fatalf("agent_complete count = %d, want 1", len(completes))
	}
	if status := completes[0].Data.(models.AgentCompleteData).Status; status != string(models.TaskCompleted) {
		t.Errorf("synthesis chunk status = %q, want completed", status)
	}
	coord.mu.Lock()
	tasks := coord.context.Tasks
	messages := coord.context.Messages
	coord.mu.Unlock()
	if got := tasks[len(tasks)-1].Status; got != models.TaskFailed {
		t.Errorf("synthesis task status = %s, want failed", got)
	}
	if len(messages) != 1 {
		t.Errorf("messages = %d, want only the user message", len(messages))
	}
}

func TestMalformedPayload(t *testing.T) {
	coord, sink := newTestCoordinator(t, &scriptedCompleter{})

	coord.OnClientMessage(sink, []byte("{not json"))

	chunks := sink.all()
	if len(chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(chunks))
	}
	if chunks[0].Type != models.ChunkError {
		t.Fatalf("chunk type = %s, want error", chunks[0].Type)
	}
	if msg := chunks[0].Data.(models.ErrorData).Error; msg != "Invalid message format" {
		t.Errorf("error = %q", msg)
	}
}

func TestUninitializedContext(t *testing.T) {
	workers := agents.New(&scriptedCompleter{}, nopSearcher{}, 3, zap.NewNop())
	coord := New("conv_test", workers, nil, nil, zap.NewNop(), 0)
	sink := &memSink{}

	coord.OnClientMessage(sink, userMessage("hello"))

	chunks := sink.all()
	if len(chunks) != 1 || chunks[0].Type != models.ChunkError {
		t.Fatalf("chunks = %v, want single error", chunks)
	}
	if msg := chunks[0].Data.(models.ErrorData).Error; msg != "No conversation context initialized" {
		t.Errorf("error = %q", msg)
	}
}

func TestUnknownMessageType(t *testing.T) {
	coord, sink := newTestCoordinator(t, &scriptedCompleter{})

	coord.OnClientMessage(sink, []byte(`{"type":"ping"}`))

	chunks := sink.all()
	if len(chunks) != 1 || chunks[0].Type != models.ChunkError {
		t.Fatalf("chunks = %v, want single error", chunks)
	}
	if msg := chunks[0].Data.(models.ErrorData).Error; !strings.Contains(msg, "ping") {
		t.Errorf("error = %q", msg)
	}
}

func TestStreamResponseSplitting(t *testing.T) {
	coord, sink := newTestCoordinator(t, &scriptedCompleter{})

	tests := []string{
		"one two three",
		"single",
		"double  space inside",
		"",
	}
	for _, text := range tests {
		sink.mu.Lock()
		sink.chunks = nil
		sink.mu.Unlock()

		coord.streamResponse(sink, text)

		var sb strings.Builder
		for _, c := range sink.byType(models.ChunkToken) {
			sb.WriteString(c.Data.(string))
		}
		if sb.String() != text {
			t.Errorf("reassembled %q from %q", sb.String(), text)
		}
	}
}
