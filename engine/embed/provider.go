// Package embed maps text to fixed-dimension dense vectors. Two providers
// satisfy the same contract: a remote Hugging Face inference client and a
// deterministic in-process fallback. Every vector in a corpus must come from
// one provider/model version; mixing versions silently corrupts ranking.
package embed

import (
	"context"
	"fmt"
)

// Provider turns text into embedding vectors of a fixed dimension.
type Provider interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the fixed output dimension.
	Dimensions() int
	// Model identifies the provider/model version for stored vectors.
	Model() string
}

// checkText rejects input no provider should ever see: callers must drop
// records that normalize to nothing instead of embedding empty strings.
func checkText(text string) error {
	if text == "" {
		return fmt.Errorf("embed: empty text")
	}
	return nil
}
