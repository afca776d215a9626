// Package coordinator runs one conversation's turn loop. A Coordinator owns
// the in-memory conversation context, decomposes incoming user messages into
// specialist tasks, fans the parallel tasks out to the workers, synthesizes
// their results, and streams the final answer back word by word.
//
// A Coordinator serializes turns: a second user message queues behind the
// first. Event emission within a turn follows a fixed shape that clients rely
// on: every parallel agent_start precedes every agent_complete, synthesis
// events bracket the token stream, and exactly one done chunk closes the turn.
package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/internal/agents"
	"github.com/quorumlabs/quorum/internal/decompose"
	"github.com/quorumlabs/quorum/pkg/models"
)

// Sink receives stream chunks for one connected client. Implementations must
// be safe for concurrent Send calls; the dispatcher emits agent_complete
// chunks from worker goroutines.
type Sink interface {
	Send(chunk models.StreamChunk) error
}

// Store is the slice of the persistence layer the coordinator writes through.
// All writes are best-effort: a storage failure is logged and the turn
// continues on the in-memory context.
type Store interface {
	SaveMessage(conversationID string, msg models.Message) error
	SaveAgentExecution(conversationID, agentType, input, output string, durationMs, tokensUsed int64, status, errMsg string) error
}

// Embedder indexes messages for similarity search. Optional; a nil Embedder
// disables indexing.
type Embedder interface {
	EmbedMessage(ctx context.Context, conversationID string, msg models.Message) error
}

// Coordinator orchestrates the turns of a single conversation.
type Coordinator struct {
	conversationID string
	agents         *agents.Agents
	store          Store
	embedder       Embedder
	log            *zap.Logger
	tokenDelay     time.Duration

	// turnMu serializes turn processing.
	turnMu sync.Mutex

	mu      sync.Mutex
	context *models.ConversationContext
	sinks   map[Sink]struct{}
}

// New creates a coordinator for one conversation. store and embedder may be
// nil to disable persistence and vector indexing.
func New(conversationID string, workers *agents.Agents, store Store, embedder Embedder, log *zap.Logger, tokenDelay time.Duration) *Coordinator {
	return &Coordinator{
		conversationID: conversationID,
		agents:         workers,
		store:          store,
		embedder:       embedder,
		log:            log.With(zap.String("conversation_id", conversationID)),
		tokenDelay:     tokenDelay,
		sinks:          make(map[Sink]struct{}),
	}
}

// Initialize creates a fresh conversation context owned by userID. It
// replaces any previous context.
func (c *Coordinator) Initialize(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context = &models.ConversationContext{
		ConversationID: c.conversationID,
		UserID:         userID,
		Metadata:       map[string]any{},
	}
}

// Restore installs a context rebuilt from the store, typically when a client
// reconnects to an existing conversation after the coordinator was recreated.
func (c *Coordinator) Restore(cc *models.ConversationContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.context = cc
}

// Initialized reports whether the coordinator has a conversation context.
func (c *Coordinator) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.context != nil
}

// OnConnectionOpen registers a client sink.
func (c *Coordinator) OnConnectionOpen(sink Sink) {
	c.mu.Lock()
	c.sinks[sink] = struct{}{}
	n := len(c.sinks)
	c.mu.Unlock()
	c.log.Info("client connected", zap.Int("sessions", n))
}

// OnConnectionClose deregisters a client sink.
func (c *Coordinator) OnConnectionClose(sink Sink) {
	c.mu.Lock()
	delete(c.sinks, sink)
	n := len(c.sinks)
	c.mu.Unlock()
	c.log.Info("client disconnected", zap.Int("sessions", n))
}

// clientMessage is the inbound frame format.
type clientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// OnClientMessage handles one inbound frame from sink. Protocol errors are
// reported as error chunks on the same sink; they never tear down the
// connection.
func (c *Coordinator) OnClientMessage(sink Sink, payload []byte) {
	var msg clientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.send(sink, models.NewErrorChunk("Invalid message format"))
		return
	}

	if !c.Initialized() {
		c.send(sink, models.NewErrorChunk("No conversation context initialized"))
		return
	}

	switch msg.Type {
	case "user_message":
		c.processUserMessage(sink, msg.Content)
	default:
		c.send(sink, models.NewErrorChunk("Unknown message type: "+msg.Type))
	}
}

// processUserMessage runs one full turn: record the user message, decompose
// it, dispatch the parallel tasks, synthesize, stream the answer, close with
// done.
func (c *Coordinator) processUserMessage(sink Sink, content string) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	// The turn outlives the triggering frame, so it runs on a background
	// context rather than any connection-scoped one.
	ctx := context.Background()

	userMsg := models.Message{
		ID:        models.NewID("msg"),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
	c.appendMessage(ctx, userMsg)

	tasks := decompose.Decompose(content)
	c.mu.Lock()
	c.context.Tasks = tasks
	c.mu.Unlock()

	parallel := tasks[:len(tasks)-1]
	synthesisTask := tasks[len(tasks)-1]

	c.log.Info("turn decomposed",
		zap.Int("parallel_tasks", len(parallel)),
		zap.String("synthesis_task", synthesisTask.ID))

	parallelMs := c.dispatch(ctx, sink, parallel)

	c.runSynthesis(ctx, sink, synthesisTask, content, parallel, parallelMs)

	c.send(sink, models.NewDoneChunk(parallelMs))
}

// runSynthesis executes the turn's final task and streams its answer. The
// synthesis agent_complete chunk always reports status "completed" for
// compatibility with existing clients; the task record carries the true
// status.
func (c *Coordinator) runSynthesis(ctx context.Context, sink Sink, task *models.AgentTask, userQuery string, parallel []*models.AgentTask, parallelMs int64) {
	c.send(sink, models.NewAgentStartChunk(task.ID, task.Type))

	task.Status = models.TaskRunning
	task.StartTime = time.Now().UnixMilli()

	resp := c.agents.Synthesis.Execute(ctx, userQuery, parallel)
	c.settle(task, resp)

	c.send(sink, models.NewAgentCompleteChunk(task.ID, task.Result, string(models.TaskCompleted)))

	// A failed synthesis yields no assistant message and no tokens; the turn
	// still closes with done. Error chunks are reserved for protocol-level
	// failures.
	if !resp.Success {
		c.log.Warn("synthesis failed", zap.String("error", resp.Error))
		return
	}

	answer, _ := resp.Data["synthesized"].(string)

	assistantMsg := models.Message{
		ID:        models.NewID("msg"),
		Role:      models.RoleAssistant,
		Content:   answer,
		Timestamp: time.Now().UnixMilli(),
		Metadata: map[string]any{
			"sourcesUsed":         resp.Data["sourcesUsed"],
			"completeness":        resp.Data["completeness"],
			"parallelExecutionMs": parallelMs,
		},
	}
	c.appendMessage(ctx, assistantMsg)

	c.streamResponse(sink, answer)
}

// appendMessage records a message in the in-memory context and, best-effort,
// in the store and the vector index.
func (c *Coordinator) appendMessage(ctx context.Context, msg models.Message) {
	c.mu.Lock()
	c.context.Messages = append(c.context.Messages, msg)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveMessage(c.conversationID, msg); err != nil {
			c.log.Warn("save message failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	if c.embedder != nil {
		if err := c.embedder.EmbedMessage(ctx, c.conversationID, msg); err != nil {
			c.log.Warn("embed message failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}

// send writes one chunk to the sink. Send failures mean the client is gone;
// the turn keeps running so its results still reach the store.
func (c *Coordinator) send(sink Sink, chunk models.StreamChunk) {
	if err := sink.Send(chunk); err != nil {
		c.log.Debug("sink send failed", zap.String("chunk_type", string(chunk.Type)), zap.Error(err))
	}
}
