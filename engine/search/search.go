// Package search orchestrates the query pipeline: normalize the query,
// embed it, score it against the corpus index, rank, threshold, and project
// into the response shape. It is the sole logic behind the search endpoint.
package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/embed"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/index"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/textnorm"
)

// Ranking policy defaults. Both are deployment configuration, not
// constants of the algorithm: MinScore cuts matches the model considers
// noise, TopK bounds the response size (0 means unlimited).
const (
	DefaultMinScore float32 = 0.15
	DefaultTopK             = 15
)

// Options configures a search call.
type Options struct {
	// TopK truncates the ranked list; 0 returns every surviving match.
	TopK int
	// MinScore drops matches scoring below it.
	MinScore float32
}

// DefaultOptions returns the serving defaults.
func DefaultOptions() Options {
	return Options{TopK: DefaultTopK, MinScore: DefaultMinScore}
}

// Response is the query result set. Message is non-empty only when the
// result list is empty for a reportable reason (provider outage); it is a
// user-visible "try again", never an internal error.
type Response struct {
	Results []domain.Result `json:"results"`
	Message string          `json:"message,omitempty"`
}

// Engine runs searches against an immutable corpus index.
//
// Determinism: with the local provider, identical queries always produce
// identical orderings. The remote provider may re-embed the same query with
// float-level variance; ties are still broken by corpus position, so equal
// scores never reorder.
type Engine struct {
	provider embed.Provider
	index    *index.Index
	opts     Options
	logger   *slog.Logger
}

// New creates a search engine. Nil logger falls back to slog.Default.
func New(provider embed.Provider, ix *index.Index, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{provider: provider, index: ix, opts: opts, logger: logger}
}

// Options returns the engine's serving defaults, for per-request overrides.
func (e *Engine) Options() Options { return e.opts }

// Search runs the full pipeline for one query. Embedding failures are
// absorbed here: the caller gets an empty result set with a diagnostic
// message, never an error.
func (e *Engine) Search(ctx context.Context, query string) Response {
	return e.SearchWith(ctx, query, e.opts)
}

// SearchWith runs a search with per-call ranking options.
func (e *Engine) SearchWith(ctx context.Context, query string, opts Options) Response {
	normalized := textnorm.Normalize(query)
	if normalized == "" {
		// No usable signal; skip the embedding call entirely.
		return Response{Results: []domain.Result{}}
	}

	vec, err := e.provider.Embed(ctx, normalized)
	if err != nil {
		e.logger.Warn("query embedding failed", "err", err)
		return Response{
			Results: []domain.Result{},
			Message: "The search service is temporarily unavailable. Please try again.",
		}
	}

	scores, err := e.index.ScoreAll(vec)
	if err != nil {
		// Dimension mismatches are configuration errors caught at startup;
		// reaching this at query time still must not fault the boundary.
		e.logger.Error("corpus scoring failed", "err", err)
		return Response{
			Results: []domain.Result{},
			Message: "The search service is temporarily unavailable. Please try again.",
		}
	}

	ranked := Rank(scores, opts)

	results := make([]domain.Result, len(ranked))
	for i, s := range ranked {
		results[i] = domain.NewResult(e.index.Record(s.Position), s.Score)
	}
	return Response{Results: results}
}

// Rank orders scores descending, breaking ties by ascending corpus
// position, then applies the threshold and truncation policy. The ordering
// is total, so identical inputs always rank identically.
func Rank(scores []index.Score, opts Options) []index.Score {
	ranked := make([]index.Score, len(scores))
	copy(ranked, scores)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Position < ranked[j].Position
	})

	cut := len(ranked)
	for i, s := range ranked {
		if s.Score < opts.MinScore {
			cut = i
			break
		}
	}
	ranked = ranked[:cut]

	if opts.TopK > 0 && len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}
	return ranked
}
