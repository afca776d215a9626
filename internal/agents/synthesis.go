package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/pkg/models"
)

// resultSeparator joins rendered task results in the synthesis prompt.
const resultSeparator = "\n\n---\n\n"

// SynthesisAgent merges the terminal parallel tasks of a turn into one
// coherent answer. Failed tasks are excluded from the prompt but still count
// against the completeness score.
type SynthesisAgent struct {
	llm llm.Completer
}

// NewSynthesisAgent creates a synthesis worker.
func NewSynthesisAgent(completer llm.Completer) *SynthesisAgent {
	return &SynthesisAgent{llm: completer}
}

// Execute combines the completed tasks' results into a formatted answer to
// the original query. The tasks slice is the turn's parallel (non-synthesis)
// task list, already in a terminal state.
func (a *SynthesisAgent) Execute(ctx context.Context, userQuery string, tasks []*models.AgentTask) models.AgentResponse {
	start := time.Now()

	resultsText := renderResults(tasks)

	prompt := fmt.Sprintf(
		"Original User Query: %s\n\nAgent Results:\n%s\n\nSynthesize these results into a well-formatted markdown response. If there is code, wrap it in markdown code blocks with the language specified (e.g., ```python). Keep the response concise and well-structured.",
		userQuery, resultsText,
	)

	reply := a.llm.Complete(ctx, prompt, llm.Options{
		SystemPrompt: llm.SynthesisPrompt,
		Temperature:  0.6,
		MaxTokens:    2000,
	})
	if !reply.Success {
		return models.AgentResponse{
			Success:    false,
			Error:      reply.Error,
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	sourcesUsed := make([]string, 0, len(tasks))
	for _, task := range tasks {
		sourcesUsed = append(sourcesUsed, string(task.Type))
	}

	return models.AgentResponse{
		Success: true,
		Data: map[string]any{
			"synthesized":  reply.Text,
			"sourcesUsed":  sourcesUsed,
			"completeness": Completeness(tasks),
		},
		TokensUsed: reply.TokensUsed,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// renderResults builds the combined context string: one block per completed
// task, joined by a separator line.
func renderResults(tasks []*models.AgentTask) string {
	var blocks []string
	for _, task := range tasks {
		if task.Status != models.TaskCompleted || task.Result == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("%s Agent Result:\n%s",
			strings.ToUpper(string(task.Type)), renderTaskData(task)))
	}
	return strings.Join(blocks, resultSeparator)
}

// renderTaskData renders one task's serialized result: code tasks become a
// fenced block plus explanation, everything else is pretty-printed JSON.
// Unparseable results pass through verbatim.
func renderTaskData(task *models.AgentTask) string {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(task.Result), &parsed); err != nil {
		return task.Result
	}

	if task.Type == models.TaskCode {
		if code, ok := parsed["code"].(string); ok && code != "" {
			language, _ := parsed["language"].(string)
			if language == "" {
				language = "python"
			}
			explanation, _ := parsed["explanation"].(string)
			return fmt.Sprintf("Code (%s):\n```%s\n%s\n```\n\nExplanation: %s",
				language, language, code, explanation)
		}
	}

	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return task.Result
	}
	return string(pretty)
}

// Completeness is the fraction of the given tasks that completed. A turn
// with no parallel tasks is vacuously complete.
func Completeness(tasks []*models.AgentTask) float64 {
	if len(tasks) == 0 {
		return 1
	}
	completed := 0
	for _, task := range tasks {
		if task.Status == models.TaskCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(tasks))
}
