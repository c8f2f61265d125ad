// Package main implements the Connect2Faculty search API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/corpus"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/embed"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/index"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/search"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/metrics"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port          string
	CorpusDB      string
	Provider      string // "hf" or "local"
	HFURL         string
	HFToken       string
	MinScore      float64
	TopK          int
	CORSOrigin    string
	KeepAliveURL  string
	KeepAliveTick time.Duration
}

func loadConfig() Config {
	return Config{
		Port:          envOr("PORT", "8080"),
		CorpusDB:      envOr("CORPUS_DB", "data/corpus.db"),
		Provider:      envOr("EMBED_PROVIDER", "hf"),
		HFURL:         envOr("HF_API_URL", ""),
		HFToken:       envOr("HF_TOKEN", ""),
		MinScore:      envFloat("MIN_SCORE", float64(search.DefaultMinScore)),
		TopK:          envInt("TOP_K", search.DefaultTopK),
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
		KeepAliveURL:  envOr("KEEPALIVE_URL", ""),
		KeepAliveTick: time.Duration(envInt("KEEPALIVE_SECONDS", 600)) * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func newProvider(cfg Config, logger *slog.Logger) (embed.Provider, error) {
	switch cfg.Provider {
	case "hf":
		return embed.NewHFClient(cfg.HFURL, cfg.HFToken, embed.HFOpts{}, logger), nil
	case "local":
		return embed.Local(), nil
	default:
		return nil, fmt.Errorf("unknown EMBED_PROVIDER %q", cfg.Provider)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	// --- Load the corpus; a broken bundle must never serve ---
	store, err := corpus.Open(cfg.CorpusDB)
	if err != nil {
		return err
	}
	defer store.Close()

	records, vectors, model, err := store.LoadBundle(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if model != "" && model != provider.Model() {
		return fmt.Errorf("%w: corpus embedded with %q, provider is %q",
			domain.ErrDimensionMismatch, model, provider.Model())
	}

	ix, err := index.Build(records, vectors)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if ix.Len() > 0 && ix.Dimensions() != provider.Dimensions() {
		return fmt.Errorf("%w: corpus has %d dims, provider produces %d",
			domain.ErrDimensionMismatch, ix.Dimensions(), provider.Dimensions())
	}
	logger.Info("corpus loaded", "records", ix.Len(), "dims", ix.Dimensions(), "model", model)

	engine := search.New(provider, ix, search.Options{
		TopK:     cfg.TopK,
		MinScore: float32(cfg.MinScore),
	}, logger)

	reg := metrics.New()
	reg.Gauge("corpus_records", "Records in the serving index.").Set(int64(ix.Len()))

	handler := mid.Chain(newMux(engine, reg, logger),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("connect2faculty-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.KeepAliveURL != "" {
		go keepAlive(ctx, cfg.KeepAliveURL, cfg.KeepAliveTick, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// keepAlive pings the public URL on an interval so free-tier hosting does
// not idle the service out.
func keepAlive(ctx context.Context, url string, every time.Duration, logger *slog.Logger) {
	client := &http.Client{Timeout: 10 * time.Second}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				continue
			}
			resp, err := client.Do(req)
			if err != nil {
				logger.Warn("keep-alive ping failed", "err", err)
				continue
			}
			resp.Body.Close()
		}
	}
}
