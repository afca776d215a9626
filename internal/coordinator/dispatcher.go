package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/pkg/models"
)

// dispatch runs the parallel tasks concurrently and returns the wall-clock
// duration of the phase in milliseconds. All agent_start chunks are emitted
// before any worker runs, so clients see the full task set up front;
// agent_complete chunks follow in completion order.
func (c *Coordinator) dispatch(ctx context.Context, sink Sink, tasks []*models.AgentTask) int64 {
	start := time.Now()

	for _, task := range tasks {
		c.send(sink, models.NewAgentStartChunk(task.ID, task.Type))
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task *models.AgentTask) {
			defer wg.Done()
			c.executeTask(ctx, task)
			c.send(sink, models.NewAgentCompleteChunk(task.ID, task.Result, string(task.Status)))
		}(task)
	}
	wg.Wait()

	return time.Since(start).Milliseconds()
}

// executeTask runs one parallel task to a terminal state. Worker failures
// land in the task record; they never propagate as panics or errors.
func (c *Coordinator) executeTask(ctx context.Context, task *models.AgentTask) {
	task.Status = models.TaskRunning
	task.StartTime = time.Now().UnixMilli()

	var resp models.AgentResponse
	switch task.Type {
	case models.TaskResearch:
		resp = c.agents.Research.Execute(ctx, task.Input)
	case models.TaskAnalysis:
		resp = c.agents.Analysis.Execute(ctx, task.Input)
	case models.TaskCode:
		resp = c.agents.Code.Execute(ctx, task.Input)
	default:
		resp = models.AgentResponse{Success: false, Error: "unknown agent type: " + string(task.Type)}
	}

	c.settle(task, resp)
}

// settle moves a task to its terminal state from a worker response and
// records the execution best-effort.
func (c *Coordinator) settle(task *models.AgentTask, resp models.AgentResponse) {
	task.EndTime = time.Now().UnixMilli()

	if resp.Success {
		raw, err := json.Marshal(resp.Data)
		if err != nil {
			task.Status = models.TaskFailed
			task.Error = "marshal result: " + err.Error()
		} else {
			task.Status = models.TaskCompleted
			task.Result = string(raw)
		}
	} else {
		task.Status = models.TaskFailed
		task.Error = resp.Error
	}

	c.log.Info("task settled",
		zap.String("task_id", task.ID),
		zap.String("agent_type", string(task.Type)),
		zap.String("status", string(task.Status)),
		zap.Int64("duration_ms", resp.DurationMs),
		zap.Int64("tokens_used", resp.TokensUsed))

	if c.store == nil {
		return
	}
	err := c.store.SaveAgentExecution(
		c.conversationID, string(task.Type), task.Input, task.Result,
		resp.DurationMs, resp.TokensUsed, string(task.Status), task.Error,
	)
	if err != nil {
		c.log.Warn("save agent execution failed", zap.String("task_id", task.ID), zap.Error(err))
	}
}
