// Package search provides the web-search lookup tool used by the research
// worker, backed by the DuckDuckGo instant-answer API.
package search

import "context"

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher performs a web search. Implementations return an empty slice on
// failure and never return an error, so callers can degrade gracefully.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []Result
}
