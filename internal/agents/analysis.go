package agents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/pkg/models"
)

// AnalysisAgent handles evaluation tasks: it extracts key insight lines and
// estimates a confidence score from the model's hedging language.
type AnalysisAgent struct {
	llm llm.Completer
}

// NewAnalysisAgent creates an analysis worker.
func NewAnalysisAgent(completer llm.Completer) *AnalysisAgent {
	return &AnalysisAgent{llm: completer}
}

// Execute runs one analysis task.
func (a *AnalysisAgent) Execute(ctx context.Context, input string) models.AgentResponse {
	start := time.Now()

	prompt := fmt.Sprintf(
		"Analysis Type: general\n\nData to Analyze:\n%s\n\nProvide detailed analysis including patterns, insights, and conclusions.",
		input,
	)

	reply := a.llm.Complete(ctx, prompt, llm.Options{
		SystemPrompt: llm.AnalysisPrompt,
		Temperature:  0.4,
		MaxTokens:    1500,
	})
	if !reply.Success {
		return models.AgentResponse{
			Success:    false,
			Error:      reply.Error,
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	return models.AgentResponse{
		Success: true,
		Data: map[string]any{
			"analysis":   reply.Text,
			"insights":   extractInsights(reply.Text),
			"confidence": calculateConfidence(reply.Text),
		},
		TokensUsed: reply.TokensUsed,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// extractInsights returns up to five non-empty lines that mention an
// insight, pattern, or conclusion.
func extractInsights(text string) []string {
	insights := []string{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, "insight") || strings.Contains(line, "pattern") || strings.Contains(line, "conclusion") {
			insights = append(insights, strings.TrimSpace(line))
			if len(insights) == 5 {
				break
			}
		}
	}
	return insights
}

var certainWords = []string{"clearly", "definitely", "certainly", "obviously", "evidently"}
var hedgeWords = []string{"might", "maybe", "possibly", "perhaps", "unclear", "uncertain"}

// calculateConfidence starts at 0.5, adds 0.1 per distinct certainty word
// present in the text, subtracts 0.1 per distinct hedge word, and clamps the
// result to [0, 1].
func calculateConfidence(text string) float64 {
	lower := strings.ToLower(text)

	score := 0.5
	for _, word := range certainWords {
		if strings.Contains(lower, word) {
			score += 0.1
		}
	}
	for _, word := range hedgeWords {
		if strings.Contains(lower, word) {
			score -= 0.1
		}
	}

	return math.Max(0, math.Min(1, score))
}
