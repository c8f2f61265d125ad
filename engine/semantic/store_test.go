package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
)

func TestPointIDIsStable(t *testing.T) {
	a := pointID("F-001")
	b := pointID("F-001")
	if a != b {
		t.Fatalf("pointID not deterministic: %s vs %s", a, b)
	}
	if a == pointID("F-002") {
		t.Fatal("distinct faculty ids collided")
	}
}

func TestFacultyPayload(t *testing.T) {
	f := domain.Faculty{
		ID:             "F-007",
		Name:           "Asha Rao",
		Specialization: "Machine Learning",
		ProfileURL:     "https://example.edu/f/7",
	}
	p := facultyPayload(f, "stub:v1")
	if p["faculty_id"].GetStringValue() != "F-007" {
		t.Errorf("faculty_id = %q", p["faculty_id"].GetStringValue())
	}
	if p["name"].GetStringValue() != "Asha Rao" {
		t.Errorf("name = %q", p["name"].GetStringValue())
	}
	if p["model"].GetStringValue() != "stub:v1" {
		t.Errorf("model = %q", p["model"].GetStringValue())
	}
}

func TestUpsertRejectsShapeMismatch(t *testing.T) {
	s := &Store{}
	err := s.Upsert(context.Background(),
		[]domain.Faculty{{ID: "F-001"}}, nil, "m")
	if !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	s := &Store{}
	if err := s.Upsert(context.Background(), nil, nil, "m"); err != nil {
		t.Fatal(err)
	}
}
