// Package semantic owns the optional Qdrant mirror of the faculty corpus.
// Serving reads the in-memory index; the mirror exists for ad-hoc
// exploration and for deployments that want k-NN without loading the full
// corpus.
package semantic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
)

// Store is the sole owner of all Qdrant operations.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New connects to Qdrant at the given gRPC address.
func New(addr string, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error { return s.conn.Close() }

// EnsureCollection creates the cosine collection if it doesn't exist.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", s.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (s *Store) DeleteCollection(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: s.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert mirrors faculty records and their embeddings as Qdrant points.
// Point ids derive deterministically from faculty ids, so re-upserting the
// same corpus overwrites in place.
func (s *Store) Upsert(ctx context.Context, records []domain.Faculty, vectors [][]float32, model string) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("%w: %d records, %d vectors", domain.ErrShapeMismatch, len(records), len(vectors))
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, f := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(f.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: facultyPayload(f, model),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// DeleteByFacultyID removes the point for one record.
func (s *Store) DeleteByFacultyID(ctx context.Context, facultyID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						fieldMatch("faculty_id", facultyID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete by faculty_id %s: %w", facultyID, err)
	}
	return nil
}

// Search performs k-NN similarity search over the mirror.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]SearchResult, error) {
	return s.SearchFiltered(ctx, embedding, topK, nil)
}

// SearchFiltered performs similarity search with optional payload filters,
// e.g. {"specialization": "Machine Learning"}.
func (s *Store) SearchFiltered(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	if len(filters) > 0 {
		must := make([]*pb.Condition, 0, len(filters))
		for k, val := range filters {
			must = append(must, fieldMatch(k, val))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		sr := SearchResult{
			PointID: r.GetId().GetUuid(),
			Score:   r.GetScore(),
		}
		for k, val := range r.GetPayload() {
			switch k {
			case "faculty_id":
				sr.FacultyID = val.GetStringValue()
			case "name":
				sr.Name = val.GetStringValue()
			case "specialization":
				sr.Specialization = val.GetStringValue()
			case "profile_url":
				sr.ProfileURL = val.GetStringValue()
			}
		}
		results[i] = sr
	}
	return results, nil
}

// pointID maps a faculty id to a stable UUID.
func pointID(facultyID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("faculty/"+facultyID)).String()
}

func facultyPayload(f domain.Faculty, model string) map[string]*pb.Value {
	str := func(v string) *pb.Value {
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return map[string]*pb.Value{
		"faculty_id":     str(f.ID),
		"name":           str(f.Name),
		"specialization": str(f.Specialization),
		"profile_url":    str(f.ProfileURL),
		"model":          str(model),
	}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
