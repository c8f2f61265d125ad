package search

import (
	"context"
	"testing"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/embed"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/index"
)

// stubProvider returns canned vectors keyed by normalized text, or a fixed
// error when broken.
type stubProvider struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubProvider) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubProvider) Dimensions() int { return 3 }
func (s *stubProvider) Model() string   { return "stub:v1" }

func buildIndex(t *testing.T, names []string, vecs [][]float32) *index.Index {
	t.Helper()
	records := make([]domain.Faculty, len(names))
	for i, n := range names {
		records[i] = domain.Faculty{Name: n, ResearchInterests: n}
	}
	ix, err := index.Build(records, vecs)
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestSearchRanksByDescendingScore(t *testing.T) {
	// Axis 0 carries the "machine learning" direction, axis 1 "databases".
	ix := buildIndex(t,
		[]string{"machine learning vision", "database systems", "machine learning nlp"},
		[][]float32{
			{0.9, 0.1, 0},
			{0.05, 0.95, 0},
			{0.95, 0.05, 0},
		},
	)
	provider := &stubProvider{vectors: map[string][]float32{
		"deep learning": {1, 0, 0},
	}}
	e := New(provider, ix, DefaultOptions(), nil)

	resp := e.SearchWith(context.Background(), "Deep Learning!", Options{TopK: 2, MinScore: 0})
	if resp.Message != "" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Name != "machine learning nlp" || resp.Results[1].Name != "machine learning vision" {
		t.Fatalf("wrong ranking: %q then %q", resp.Results[0].Name, resp.Results[1].Name)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Score > resp.Results[i-1].Score {
			t.Fatal("results not sorted by descending score")
		}
	}
}

func TestSearchTiesBreakByCorpusPosition(t *testing.T) {
	ix := buildIndex(t,
		[]string{"first", "second", "third"},
		[][]float32{
			{1, 0, 0},
			{1, 0, 0},
			{1, 0, 0},
		},
	)
	provider := &stubProvider{}
	e := New(provider, ix, Options{MinScore: 0}, nil)

	resp := e.Search(context.Background(), "anything")
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results", len(resp.Results))
	}
	want := []string{"first", "second", "third"}
	for i, r := range resp.Results {
		if r.Name != want[i] {
			t.Fatalf("tie order broken: got %q at %d", r.Name, i)
		}
	}
}

func TestSearchEmptyQuerySkipsProvider(t *testing.T) {
	ix := buildIndex(t, []string{"a"}, [][]float32{{1, 0, 0}})
	provider := &stubProvider{}
	e := New(provider, ix, DefaultOptions(), nil)

	for _, q := range []string{"", "   ", "\t\n", "?!..."} {
		resp := e.Search(context.Background(), q)
		if len(resp.Results) != 0 {
			t.Fatalf("query %q returned results", q)
		}
		if resp.Results == nil {
			t.Fatalf("query %q: results must be an empty list, not null", q)
		}
	}
	if provider.calls != 0 {
		t.Fatalf("provider called %d times for empty queries", provider.calls)
	}
}

func TestSearchProviderFailureYieldsMessage(t *testing.T) {
	ix := buildIndex(t, []string{"a"}, [][]float32{{1, 0, 0}})
	provider := &stubProvider{err: domain.ErrServiceUnavailable}
	e := New(provider, ix, DefaultOptions(), nil)

	resp := e.Search(context.Background(), "robotics")
	if len(resp.Results) != 0 {
		t.Fatal("expected no results on provider failure")
	}
	if resp.Message == "" {
		t.Fatal("expected a diagnostic message")
	}
}

func TestSearchMinScoreAboveCosineRange(t *testing.T) {
	ix := buildIndex(t,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0}, {0, 1, 0}},
	)
	provider := &stubProvider{}
	e := New(provider, ix, DefaultOptions(), nil)

	resp := e.SearchWith(context.Background(), "anything", Options{MinScore: 1.1})
	if len(resp.Results) != 0 {
		t.Fatalf("min_score above attainable cosine must return nothing, got %d", len(resp.Results))
	}
}

func TestSearchThresholdDropsWeakMatches(t *testing.T) {
	ix := buildIndex(t,
		[]string{"strong", "weak"},
		[][]float32{{1, 0, 0}, {0, 1, 0}},
	)
	provider := &stubProvider{}
	e := New(provider, ix, Options{MinScore: 0.5}, nil)

	resp := e.Search(context.Background(), "query")
	if len(resp.Results) != 1 || resp.Results[0].Name != "strong" {
		t.Fatalf("threshold policy failed: %+v", resp.Results)
	}
}

func TestSearchTopKZeroReturnsAllSurvivors(t *testing.T) {
	ix := buildIndex(t,
		[]string{"a", "b", "c"},
		[][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0.8, 0.2, 0}},
	)
	provider := &stubProvider{}
	e := New(provider, ix, Options{TopK: 0, MinScore: 0}, nil)

	resp := e.Search(context.Background(), "query")
	if len(resp.Results) != 3 {
		t.Fatalf("TopK=0 should return all survivors, got %d", len(resp.Results))
	}
}

func TestSearchDeterministicAcrossCalls(t *testing.T) {
	ix := buildIndex(t,
		[]string{"a", "b", "c", "d"},
		[][]float32{{1, 0, 0}, {0.5, 0.5, 0}, {0.5, 0.5, 0}, {0, 1, 0}},
	)
	provider := &stubProvider{}
	e := New(provider, ix, Options{MinScore: 0}, nil)

	first := e.Search(context.Background(), "stable query")
	for i := 0; i < 5; i++ {
		again := e.Search(context.Background(), "stable query")
		if len(again.Results) != len(first.Results) {
			t.Fatal("result count changed between calls")
		}
		for j := range again.Results {
			if again.Results[j].Name != first.Results[j].Name {
				t.Fatal("ordering changed between identical calls")
			}
		}
	}
}

func TestLocalProviderEndToEnd(t *testing.T) {
	// The full pipeline with the real local provider: records about distinct
	// topics, query overlapping one of them.
	records := []domain.Faculty{
		{Name: "Asha Rao", ResearchInterests: "machine learning computer vision"},
		{Name: "Vikram Shah", ResearchInterests: "database systems query optimization"},
	}
	provider := embed.Local()
	texts := make([]string, len(records))
	for i := range records {
		texts[i] = domain.NormalizedText(&records[i])
	}
	vecs, err := provider.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	ix, err := index.Build(records, vecs)
	if err != nil {
		t.Fatal(err)
	}

	e := New(provider, ix, Options{MinScore: 0.01}, nil)
	resp := e.Search(context.Background(), "machine learning")
	if len(resp.Results) == 0 {
		t.Fatal("expected at least one match")
	}
	if resp.Results[0].Name != "Asha Rao" {
		t.Fatalf("expected the ML researcher first, got %q", resp.Results[0].Name)
	}
}
