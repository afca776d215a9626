// Package agents implements the four specialist workers: research, analysis,
// code, and synthesis. Each worker wraps the completion service with a role
// prompt and post-processes the raw reply into structured data.
//
// Workers never return Go errors. Every failure, including completion
// service failures, is reported inside the AgentResponse so a broken worker
// degrades its own task without touching siblings.
package agents

import (
	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/internal/llm"
	"github.com/quorumlabs/quorum/internal/search"
)

// Agents bundles the four specialist workers for the dispatcher.
type Agents struct {
	Research  *ResearchAgent
	Analysis  *AnalysisAgent
	Code      *CodeAgent
	Synthesis *SynthesisAgent
}

// New creates the full worker set sharing one completion client and one
// search tool. maxSearchResults caps the web hits in research prompts; zero
// or negative selects the default.
func New(completer llm.Completer, searcher search.Searcher, maxSearchResults int, log *zap.Logger) *Agents {
	return &Agents{
		Research:  NewResearchAgent(completer, searcher, maxSearchResults, log),
		Analysis:  NewAnalysisAgent(completer),
		Code:      NewCodeAgent(completer),
		Synthesis: NewSynthesisAgent(completer),
	}
}
