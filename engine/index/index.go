// Package index holds the in-memory corpus index: one embedding per faculty
// record, scored exhaustively by cosine similarity. The index is built once
// at load time and never mutated; concurrent readers share it without
// locking. Corpus changes require a fresh Build.
package index

import (
	"fmt"
	"math"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
)

// Index pairs each record with its unit-normalized embedding, addressable
// by position.
type Index struct {
	records []domain.Faculty
	vectors [][]float32 // unit length (or all-zero) after Build
	dims    int
}

// Score is one record's similarity to a query, tagged with its corpus
// position.
type Score struct {
	Position int
	Score    float32
}

// Build validates shapes and normalizes every vector to unit length.
// A zero-norm vector is kept as-is and scores 0 against every query.
func Build(records []domain.Faculty, embeddings [][]float32) (*Index, error) {
	if len(records) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d records, %d embeddings",
			domain.ErrShapeMismatch, len(records), len(embeddings))
	}
	if len(records) == 0 {
		return &Index{}, nil
	}

	dims := len(embeddings[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: empty embedding at position 0", domain.ErrShapeMismatch)
	}

	vectors := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		if len(emb) != dims {
			return nil, fmt.Errorf("%w: embedding %d has %d dims, want %d",
				domain.ErrShapeMismatch, i, len(emb), dims)
		}
		vectors[i] = normalize(emb)
	}

	recs := make([]domain.Faculty, len(records))
	copy(recs, records)

	return &Index{records: recs, vectors: vectors, dims: dims}, nil
}

// Len returns the number of indexed records.
func (ix *Index) Len() int { return len(ix.records) }

// Dimensions returns the corpus embedding dimension, 0 for an empty index.
func (ix *Index) Dimensions() int { return ix.dims }

// Record returns the record at a corpus position.
func (ix *Index) Record(pos int) *domain.Faculty { return &ix.records[pos] }

// ScoreAll computes the cosine similarity of query against every stored
// vector, returned in corpus order. The query is normalized here so callers
// can pass raw provider output.
func (ix *Index) ScoreAll(query []float32) ([]Score, error) {
	if len(ix.records) == 0 {
		return nil, nil
	}
	if len(query) != ix.dims {
		return nil, fmt.Errorf("%w: query has %d dims, corpus has %d",
			domain.ErrDimensionMismatch, len(query), ix.dims)
	}

	q := normalize(query)
	scores := make([]Score, len(ix.vectors))
	for i, vec := range ix.vectors {
		scores[i] = Score{Position: i, Score: dot(q, vec)}
	}
	return scores, nil
}

// normalize returns a unit-length copy of v. A zero vector comes back
// zeroed, never NaN.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := float32(1 / math.Sqrt(sum))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
