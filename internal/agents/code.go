package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/pkg/models"
)

// CodeAgent handles code generation tasks. It detects the target language
// from the request, instructs the model to answer in that language only, and
// extracts the first fenced code block from the reply.
type CodeAgent struct {
	llm llm.Completer
}

// NewCodeAgent creates a code worker.
func NewCodeAgent(completer llm.Completer) *CodeAgent {
	return &CodeAgent{llm: completer}
}

// Execute runs one code task.
func (a *CodeAgent) Execute(ctx context.Context, requirements string) models.AgentResponse {
	start := time.Now()

	language := detectLanguage(requirements)

	prompt := fmt.Sprintf(
		"Language: %s\n\nRequirements:\n%s\n\nGenerate a clean, well-commented %s code example only. Do not provide examples in any other language. Include only essential comments and error handling.",
		language, requirements, language,
	)

	reply := a.llm.Complete(ctx, prompt, llm.Options{
		SystemPrompt: llm.CodePrompt,
		Temperature:  0.2,
		MaxTokens:    2000,
	})
	if !reply.Success {
		return models.AgentResponse{
			Success:    false,
			Error:      reply.Error,
			DurationMs: time.Since(start).Milliseconds(),
		}
	}

	code := extractCode(reply.Text)

	return models.AgentResponse{
		Success: true,
		Data: map[string]any{
			"code":        code,
			"language":    language,
			"explanation": extractExplanation(reply.Text),
			"complexity":  estimateComplexity(code),
		},
		TokensUsed: reply.TokensUsed,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// languageTable maps substring triggers to language names, checked in order.
// The first match wins; requests naming no known language default to python.
var languageTable = []struct {
	triggers []string
	name     string
}{
	{[]string{"python"}, "python"},
	{[]string{"typescript", "ts"}, "typescript"},
	{[]string{"javascript", "js"}, "javascript"},
	{[]string{"rust"}, "rust"},
	{[]string{"go"}, "go"},
	{[]string{"java"}, "java"},
	{[]string{"c++", "cpp"}, "cpp"},
	{[]string{"c#", "csharp"}, "csharp"},
}

func detectLanguage(requirements string) string {
	lower := strings.ToLower(requirements)
	for _, entry := range languageTable {
		for _, trigger := range entry.triggers {
			if strings.Contains(lower, trigger) {
				return entry.name
			}
		}
	}
	return "python"
}

var codeBlockRe = regexp.MustCompile("(?s)```\\w*\\n(.*?)```")

// extractCode returns the first fenced code block, or the raw reply when the
// model produced no fences.
func extractCode(text string) string {
	if match := codeBlockRe.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}
	return text
}

// extractExplanation returns the reply with fence lines and line comments
// removed.
func extractExplanation(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var loopRe = regexp.MustCompile(`for|while|forEach`)
var conditionalRe = regexp.MustCompile(`if|switch|case`)

// estimateComplexity scores the code as line count plus twice the loop
// keyword count plus the conditional keyword count, bucketed at 20 and 50.
func estimateComplexity(code string) string {
	lines := len(strings.Split(code, "\n"))
	loops := len(loopRe.FindAllString(code, -1))
	conditionals := len(conditionalRe.FindAllString(code, -1))

	score := lines + 2*loops + conditionals

	switch {
	case score < 20:
		return "low"
	case score < 50:
		return "medium"
	default:
		return "high"
	}
}
