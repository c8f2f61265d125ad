package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("searches_total", "Total searches served.")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Fatalf("counter = %d", c.Value())
	}

	g := r.Gauge("corpus_records", "Records in the serving index.")
	g.Set(120)
	g.Dec()
	if g.Value() != 119 {
		t.Fatalf("gauge = %d", g.Value())
	}

	out := r.Render()
	for _, want := range []string{
		"# HELP searches_total Total searches served.",
		"# TYPE searches_total counter",
		"searches_total 3",
		"corpus_records 119",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestLabeledCounters(t *testing.T) {
	r := New()
	r.Counter(WithLabels("embed_requests_total", "provider", "hf"), "Embedding calls.").Inc()
	r.Counter(WithLabels("embed_requests_total", "provider", "local"), "").Add(5)

	out := r.Render()
	if !strings.Contains(out, `embed_requests_total{provider="hf"} 1`) {
		t.Errorf("missing hf line:\n%s", out)
	}
	if !strings.Contains(out, `embed_requests_total{provider="local"} 5`) {
		t.Errorf("missing local line:\n%s", out)
	}
	if strings.Count(out, "# TYPE embed_requests_total counter") != 1 {
		t.Errorf("TYPE line should appear once:\n%s", out)
	}
}

func TestHistogramCumulativeBuckets(t *testing.T) {
	r := New()
	h := r.Histogram("search_seconds", "Search latency.", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(0.7)
	h.Observe(100) // beyond the last bucket, lands only in +Inf

	out := r.Render()
	for _, want := range []string{
		`search_seconds_bucket{le="0.1"} 1`,
		`search_seconds_bucket{le="1"} 3`,
		`search_seconds_bucket{le="10"} 3`,
		`search_seconds_bucket{le="+Inf"} 4`,
		`search_seconds_count 4`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHandlerServesExposition(t *testing.T) {
	r := New()
	r.Counter("up", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "up 1") {
		t.Fatalf("body:\n%s", rec.Body.String())
	}
}
