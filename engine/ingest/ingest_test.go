package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/corpus"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/embed"
)

func TestCleanDeobfuscatesEmail(t *testing.T) {
	cases := []struct{ in, want string }{
		{"asha [at] example [dot] edu", "asha@example.edu"},
		{"asha[at]example[dot]edu", "asha@example.edu"},
		{"already@example.edu", "already@example.edu"},
		{"N/A", "N/A"},
		{"", ""},
	}
	for _, c := range cases {
		f := domain.Faculty{Name: "X", Email: c.in, ResearchInterests: "systems"}
		got, err := Clean(context.Background(), f).Unwrap()
		if err != nil {
			t.Fatalf("Clean(%q): %v", c.in, err)
		}
		if got.Email != c.want {
			t.Errorf("email %q cleaned to %q, want %q", c.in, got.Email, c.want)
		}
	}
}

func TestCleanNormalizesResearchInterests(t *testing.T) {
	f := domain.Faculty{Name: "X", ResearchInterests: "Computer Vision, Deep-Learning!"}
	got, err := Clean(context.Background(), f).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if got.ResearchInterests != "computer vision deep learning" {
		t.Fatalf("research interests = %q", got.ResearchInterests)
	}
}

func TestCleanDropsEmptyResearchInterests(t *testing.T) {
	for _, ri := range []string{"", "N/A", "???"} {
		f := domain.Faculty{Name: "Emeritus", ResearchInterests: ri}
		_, err := Clean(context.Background(), f).Unwrap()
		if !errors.Is(err, domain.ErrNoUsableText) {
			t.Errorf("research %q: expected ErrNoUsableText, got %v", ri, err)
		}
	}
}

func TestPrepareAssignsSequentialIDs(t *testing.T) {
	records := []domain.Faculty{
		{Name: "Asha Rao", ResearchInterests: "machine learning"},
		{Name: "No Research", ResearchInterests: "N/A"}, // dropped
		{Name: "", ResearchInterests: "databases"},      // dropped: no name
		{Name: "Vikram Shah", ResearchInterests: "databases"},
	}
	out := Prepare(context.Background(), records, nil)
	if len(out) != 2 {
		t.Fatalf("got %d prepared records, want 2", len(out))
	}
	if out[0].ID != "F-001" || out[1].ID != "F-002" {
		t.Fatalf("ids = %q, %q", out[0].ID, out[1].ID)
	}
	if out[1].Name != "Vikram Shah" {
		t.Fatalf("dropped records shifted ids wrong: %+v", out)
	}
}

func TestEmbedAllPreservesOrder(t *testing.T) {
	p := embed.Local()
	records := []domain.Faculty{
		{ID: "F-001", Name: "A", ResearchInterests: "vision"},
		{ID: "F-002", Name: "B", ResearchInterests: "databases"},
	}
	vecs, err := EmbedAll(context.Background(), p, records)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	want0, _ := p.Embed(context.Background(), domain.NormalizedText(&records[0]))
	for i := range want0 {
		if vecs[0][i] != want0[i] {
			t.Fatal("vector order does not match record order")
		}
	}
}

type captureSink struct {
	records []domain.Faculty
	vectors [][]float32
	model   string
	err     error
}

func (c *captureSink) Upsert(_ context.Context, recs []domain.Faculty, vecs [][]float32, model string) error {
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, recs...)
	c.vectors = append(c.vectors, vecs...)
	c.model = model
	return nil
}

func TestPipelineEndToEnd(t *testing.T) {
	store, err := corpus.Open(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	sink := &captureSink{}
	pipeline := NewPipeline(Deps{
		Provider: embed.Local(),
		Store:    store,
		Mirror:   sink,
	})

	f := domain.Faculty{
		ID:                "F-001",
		Name:              "Asha Rao",
		Email:             "asha [at] example [dot] edu",
		ResearchInterests: "machine learning",
	}
	id, err := pipeline(context.Background(), f).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if id != "F-001" {
		t.Fatalf("pipeline returned id %q", id)
	}

	stored, err := store.Get(context.Background(), "F-001")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Email != "asha@example.edu" {
		t.Fatalf("cleaned email not persisted: %q", stored.Email)
	}

	_, vecs, model, err := store.LoadBundle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 1 || len(vecs[0]) != embed.Local().Dimensions() {
		t.Fatalf("embedding not persisted: %d vectors", len(vecs))
	}
	if model != embed.Local().Model() {
		t.Fatalf("model = %q", model)
	}

	if len(sink.records) != 1 || sink.model != embed.Local().Model() {
		t.Fatalf("mirror not fed: %+v", sink)
	}
}

func TestPipelineMirrorFailureIsNonFatal(t *testing.T) {
	store, err := corpus.Open(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pipeline := NewPipeline(Deps{
		Provider: embed.Local(),
		Store:    store,
		Mirror:   &captureSink{err: errors.New("qdrant down")},
	})

	f := domain.Faculty{ID: "F-001", Name: "Asha Rao", ResearchInterests: "ml"}
	if _, err := pipeline(context.Background(), f).Unwrap(); err != nil {
		t.Fatalf("mirror failure must not fail the pipeline: %v", err)
	}
}

func TestPipelineRejectsInvalidRecord(t *testing.T) {
	store, err := corpus.Open(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pipeline := NewPipeline(Deps{Provider: embed.Local(), Store: store})

	_, err = pipeline(context.Background(), domain.Faculty{ResearchInterests: "ml"}).Unwrap()
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("invalid record reached the store")
	}
}
