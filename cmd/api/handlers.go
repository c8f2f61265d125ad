package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/search"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/metrics"
)

func newMux(engine *search.Engine, reg *metrics.Registry, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleHome)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/search", handleSearch(engine, reg, logger))
	mux.Handle("GET /metrics", reg.Handler())
	return mux
}

func handleHome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "API is online!"})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// searchRequest is the JSON body for POST /api/search. TopK and MinScore
// override the serving defaults only when present.
type searchRequest struct {
	Query    string   `json:"query"`
	TopK     *int     `json:"top_k,omitempty"`
	MinScore *float32 `json:"min_score,omitempty"`
}

func handleSearch(engine *search.Engine, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	total := reg.Counter("searches_total", "Search requests served.")
	degraded := reg.Counter("searches_degraded_total", "Searches answered with an empty set and a message.")
	latency := reg.Histogram("search_seconds", "Search latency.", nil)

	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		opts := engine.Options()
		if req.TopK != nil {
			opts.TopK = *req.TopK
		}
		if req.MinScore != nil {
			opts.MinScore = *req.MinScore
		}

		start := time.Now()
		resp := engine.SearchWith(r.Context(), req.Query, opts)
		latency.Since(start)
		total.Inc()
		if resp.Message != "" {
			degraded.Inc()
		}

		// Degraded responses are still 200s: an unavailable embedding
		// service is reported in the body, never as a server fault.
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("encode response", "err", err)
		}
	}
}
