package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/embed"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/index"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/search"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/metrics"
)

func testMux(t *testing.T) (*http.ServeMux, *metrics.Registry) {
	t.Helper()
	records := []domain.Faculty{
		{ID: "F-001", Name: "Asha Rao", Specialization: "Machine Learning",
			ResearchInterests: "machine learning computer vision"},
		{ID: "F-002", Name: "Vikram Shah", Specialization: "Databases",
			ResearchInterests: "database systems query optimization"},
	}
	p := embed.Local()
	texts := make([]string, len(records))
	for i := range records {
		texts[i] = domain.NormalizedText(&records[i])
	}
	vecs, err := p.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	ix, err := index.Build(records, vecs)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := search.New(p, ix, search.Options{TopK: 15, MinScore: 0.01}, logger)
	reg := metrics.New()
	return newMux(engine, reg, logger), reg
}

func TestHomeEndpoint(t *testing.T) {
	mux, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["message"] != "API is online!" {
		t.Fatalf("message = %q", body["message"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	mux, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/search",
		strings.NewReader(`{"query": "machine learning"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp search.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	if resp.Results[0].Name != "Asha Rao" {
		t.Fatalf("top result = %q", resp.Results[0].Name)
	}
}

func TestSearchEndpointPerRequestOverrides(t *testing.T) {
	mux, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/search",
		strings.NewReader(`{"query": "machine learning", "top_k": 1, "min_score": 0}`)))

	var resp search.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("top_k=1 returned %d results", len(resp.Results))
	}
}

func TestSearchEndpointEmptyQuery(t *testing.T) {
	mux, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/search",
		strings.NewReader(`{"query": "   "}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("empty query must not fault: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Fatalf("expected empty results array, got %s", rec.Body.String())
	}
}

func TestSearchEndpointBadBody(t *testing.T) {
	mux, _ := testMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/search",
		strings.NewReader(`{not json`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetricsEndpointCountsSearches(t *testing.T) {
	mux, _ := testMux(t)
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/search",
		strings.NewReader(`{"query": "databases"}`)))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "searches_total 1") {
		t.Fatalf("metrics body:\n%s", rec.Body.String())
	}
}

func TestProviderSelection(t *testing.T) {
	if _, err := newProvider(Config{Provider: "local"}, slog.Default()); err != nil {
		t.Fatal(err)
	}
	if _, err := newProvider(Config{Provider: "hf"}, slog.Default()); err != nil {
		t.Fatal(err)
	}
	if _, err := newProvider(Config{Provider: "cloud9"}, slog.Default()); err == nil {
		t.Fatal("unknown provider must fail")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("C2F_TEST_STR", "x")
	t.Setenv("C2F_TEST_INT", "42")
	t.Setenv("C2F_TEST_BAD", "nope")

	if envOr("C2F_TEST_STR", "y") != "x" {
		t.Fatal("envOr ignored set value")
	}
	if envOr("C2F_TEST_MISSING", "y") != "y" {
		t.Fatal("envOr fallback broken")
	}
	if envInt("C2F_TEST_INT", 1) != 42 {
		t.Fatal("envInt parse broken")
	}
	if envInt("C2F_TEST_BAD", 7) != 7 {
		t.Fatal("envInt should fall back on junk")
	}
	if envFloat("C2F_TEST_BAD", 0.5) != 0.5 {
		t.Fatal("envFloat should fall back on junk")
	}
}
