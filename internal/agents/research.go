package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/search"
	"github.com/quorumlabs/quorum/pkg/models"
)

// defaultSearchResults is the number of web hits folded into research prompts
// when no limit is configured.
const defaultSearchResults = 3

// ResearchAgent answers fact-finding tasks. It issues a web search first and
// folds the top snippets into the completion prompt.
type ResearchAgent struct {
	llm        llm.Completer
	searcher   search.Searcher
	maxResults int
	log        *zap.Logger
}

// NewResearchAgent creates a research worker folding up to maxResults search
// hits into each prompt.
func NewResearchAgent(completer llm.Completer, searcher search.Searcher, maxResults int, log *zap.Logger) *ResearchAgent {
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	return &ResearchAgent{llm: completer, searcher: searcher, maxResults: maxResults, log: log}
}

// Execute runs one research task.
func (a *ResearchAgent) Execute(ctx context.Context, query string) models.AgentResponse {
	start := time.Now()

	results := a.searcher.Search(ctx, query, a.maxResults)
	if len(results) == 0 {
		a.log.Debug("research proceeding without search context", zap.String("query", query))
	}

	var searchContext strings.Builder
	if len(results) > 0 {
		searchContext.WriteString("Web Search Results:\n\n")
		for i, result := range results {
			fmt.Fprintf(&searchContext, "%d. %s\n", i+1, result.Title)
			fmt.Fprintf(&searchContext, "   %s\n", result.Snippet)
			fmt.Fprintf(&searchContext, "   URL: %s\n\n", result.URL)
		}
	}

	prompt := fmt.Sprintf(
		"Research Query: %s\n\n%s\n\nProvide detailed research findings based on the search results.",
		query, searchContext.String(),
	)

	reply := a.llm.Complete(ctx, prompt, llm.Options{
		SystemPrompt: llm.ResearchPrompt,
		Temperature:  0.3,
		MaxTokens:    1500,
	})
	if !reply.Success {
		return models.AgentResponse{
			Success:    false,
			Error:      reply.Error,
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	sources := make([]map[string]string, 0, len(results))
	for _, result := range results {
		sources = append(sources, map[string]string{"title": result.Title, "url": result.URL})
	}

	return models.AgentResponse{
		Success: true,
		Data: map[string]any{
			"findings":           reply.Text,
			"sources":            sources,
			"summary":            summarize(reply.Text),
			"searchResultsCount": len(results),
		},
		TokensUsed: reply.TokensUsed,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// summarize returns the first three sentences of the text.
func summarize(text string) string {
	var sentences []string
	for _, part := range sentenceSplitRe.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			sentences = append(sentences, strings.TrimSpace(part))
		}
	}
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	return strings.Join(sentences, ". ") + "."
}
