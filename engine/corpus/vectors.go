package corpus

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
)

// SaveEmbeddings writes one vector per faculty id in a single transaction.
// ids and vectors are parallel slices; an existing vector for an id is
// replaced.
func (s *Store) SaveEmbeddings(ctx context.Context, ids []string, vectors [][]float32, model string) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("%w: %d ids, %d vectors", domain.ErrShapeMismatch, len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("corpus: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO embeddings (faculty_id, vector, dimension, model, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("corpus: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, vec := range vectors {
		if len(vec) == 0 {
			return fmt.Errorf("%w: empty vector for %s", domain.ErrShapeMismatch, ids[i])
		}
		if _, err := stmt.ExecContext(ctx, ids[i], vectorToBlob(vec), len(vec), model, now); err != nil {
			return fmt.Errorf("corpus: insert vector for %s: %w", ids[i], err)
		}
	}
	return tx.Commit()
}

// LoadBundle reads the complete corpus in one ordered sweep: every faculty
// record paired with its embedding, plus the single model version the
// vectors were produced by. Any inconsistency — a record without a vector,
// ragged dimensions, mixed model versions — fails with ErrShapeMismatch so
// a broken corpus is rejected at startup rather than served.
func (s *Store) LoadBundle(ctx context.Context) ([]domain.Faculty, [][]float32, string, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, nil, "", err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT faculty_id, vector, dimension, model
		FROM embeddings ORDER BY faculty_id`)
	if err != nil {
		return nil, nil, "", fmt.Errorf("corpus: select embeddings: %w", err)
	}
	defer rows.Close()

	type stored struct {
		vec  []float32
		dims int
	}
	byID := make(map[string]stored, len(records))
	var model string
	for rows.Next() {
		var id, m string
		var blob []byte
		var dims int
		if err := rows.Scan(&id, &blob, &dims, &m); err != nil {
			return nil, nil, "", fmt.Errorf("corpus: scan embedding: %w", err)
		}
		vec, err := blobToVector(blob)
		if err != nil {
			return nil, nil, "", fmt.Errorf("%w: vector for %s: %v", domain.ErrShapeMismatch, id, err)
		}
		if len(vec) != dims {
			return nil, nil, "", fmt.Errorf("%w: vector for %s has %d floats, recorded dimension %d",
				domain.ErrShapeMismatch, id, len(vec), dims)
		}
		if model == "" {
			model = m
		} else if m != model {
			return nil, nil, "", fmt.Errorf("%w: mixed model versions %q and %q", domain.ErrShapeMismatch, model, m)
		}
		byID[id] = stored{vec: vec, dims: dims}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, "", err
	}

	vectors := make([][]float32, len(records))
	dims := -1
	for i, f := range records {
		st, ok := byID[f.ID]
		if !ok {
			return nil, nil, "", fmt.Errorf("%w: record %s has no embedding", domain.ErrShapeMismatch, f.ID)
		}
		if dims == -1 {
			dims = st.dims
		} else if st.dims != dims {
			return nil, nil, "", fmt.Errorf("%w: embedding for %s has %d dims, corpus has %d",
				domain.ErrShapeMismatch, f.ID, st.dims, dims)
		}
		vectors[i] = st.vec
	}
	if len(byID) > len(records) {
		return nil, nil, "", fmt.Errorf("%w: %d embeddings for %d records",
			domain.ErrShapeMismatch, len(byID), len(records))
	}
	return records, vectors, model, nil
}

// vectorToBlob packs a float32 slice as little-endian bytes, 4 per element.
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob size %d is not a multiple of 4", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
