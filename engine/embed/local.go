package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/textnorm"
)

// LocalProvider is the in-process embedding mode: deterministic hashed
// bag-of-words vectors at the corpus dimension. No network dependency, no
// retry. Semantically far weaker than the transformer model, but the
// vectors are stable across runs and processes, which is what tests and
// offline deployments need.
type LocalProvider struct {
	dims int
}

var (
	localOnce    sync.Once
	localDefault *LocalProvider
)

// Local returns the process-wide local provider, initialized exactly once.
// It lives for the process lifetime; there is no teardown.
func Local() *LocalProvider {
	localOnce.Do(func() {
		localDefault = &LocalProvider{dims: domain.EmbeddingDim}
	})
	return localDefault
}

// Dimensions returns the fixed output dimension.
func (p *LocalProvider) Dimensions() int { return p.dims }

// Model identifies the local hashing scheme.
func (p *LocalProvider) Model() string { return "local:hashed-bow-v1" }

// Embed produces a unit-length hashed bag-of-words vector. Each token is
// hashed twice: once for its bucket, once for its sign, so unrelated tokens
// cancel rather than pile up.
func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}

	vec := make([]float32, p.dims)
	for _, tok := range strings.Fields(textnorm.Normalize(text)) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		bucket := int(sum % uint64(p.dims))
		sign := float32(1)
		if (sum>>32)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}
