// Package embedding generates vector embeddings for conversation messages,
// backed by a local Ollama server.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedBatch embeds multiple texts concurrently with bounded fan-out.
// Returns nil for empty input.
func EmbedBatch(ctx context.Context, engine Engine, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vec, err := engine.Embed(gCtx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
