// Package decompose classifies a user message into the specialist tasks of
// one turn. Classification is a pure keyword heuristic: membership of fixed
// trigger phrases in the lower-cased message. Matching is additive, so one
// message can spawn several parallel tasks, and every turn ends with exactly
// one synthesis task.
//
// The keyword tables are load-bearing: clients and tests depend on their
// exact triggers, so changes here are behavioral changes, not tuning.
package decompose

import (
	"strings"

	"github.com/quorumlabs/quorum/pkg/models"
)

var codeKeywords = []string{
	"write", "code", "function", "program", "script", "implement",
}

var researchKeywords = []string{
	"what are", "latest", "trends", "explain", "tell me about", "research",
}

var analysisKeywords = []string{
	"analyze", "pros and cons", "compare", "evaluate", "advantages", "disadvantages",
}

// Decompose returns the ordered task set for one user message. Zero to three
// specialist tasks precede the synthesis task; priorities are assigned
// 1-based in append order, so synthesis always carries the highest priority.
func Decompose(userText string) []*models.AgentTask {
	lower := strings.ToLower(userText)

	var tasks []*models.AgentTask
	appendTask := func(taskType models.TaskType) {
		tasks = append(tasks, &models.AgentTask{
			ID:       models.NewID("task"),
			Type:     taskType,
			Input:    userText,
			Priority: len(tasks) + 1,
			Status:   models.TaskPending,
		})
	}

	if containsAny(lower, codeKeywords) {
		appendTask(models.TaskCode)
	}
	if containsAny(lower, researchKeywords) {
		appendTask(models.TaskResearch)
	}
	if containsAny(lower, analysisKeywords) {
		appendTask(models.TaskAnalysis)
	}

	// Synthesis is unconditional and always last.
	appendTask(models.TaskSynthesis)

	return tasks
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
