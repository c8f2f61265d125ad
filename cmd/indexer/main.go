// Command indexer builds the search corpus. In batch mode it reads a
// scraper CSV, cleans and embeds every record, and replaces the SQLite
// corpus wholesale. In consume mode it subscribes to the ingest subject and
// applies records as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/schollz/progressbar/v3"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/corpus"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/embed"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/ingest"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/semantic"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/fn"
)

func main() {
	csvPath := flag.String("csv", "", "scraper CSV to import (batch mode)")
	dbPath := flag.String("db", "data/corpus.db", "corpus database path")
	providerName := flag.String("provider", envOr("EMBED_PROVIDER", "hf"), "embedding provider: hf or local")
	hfURL := flag.String("hf-url", os.Getenv("HF_API_URL"), "Hugging Face inference URL")
	natsURL := flag.String("nats", "", "NATS URL (consume mode)")
	qdrantURL := flag.String("qdrant", "", "Qdrant gRPC address for the optional mirror")
	collection := flag.String("collection", "faculty", "Qdrant collection name")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, config{
		csvPath:    *csvPath,
		dbPath:     *dbPath,
		provider:   *providerName,
		hfURL:      *hfURL,
		hfToken:    os.Getenv("HF_TOKEN"),
		natsURL:    *natsURL,
		qdrantURL:  *qdrantURL,
		collection: *collection,
	}, logger); err != nil {
		logger.Error("indexer failed", "err", err)
		os.Exit(1)
	}
}

type config struct {
	csvPath    string
	dbPath     string
	provider   string
	hfURL      string
	hfToken    string
	natsURL    string
	qdrantURL  string
	collection string
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	var provider embed.Provider
	switch cfg.provider {
	case "hf":
		provider = embed.NewHFClient(cfg.hfURL, cfg.hfToken, embed.HFOpts{}, logger)
	case "local":
		provider = embed.Local()
	default:
		return fmt.Errorf("unknown provider %q", cfg.provider)
	}

	store, err := corpus.Open(cfg.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var mirror *semantic.Store
	if cfg.qdrantURL != "" {
		mirror, err = semantic.New(cfg.qdrantURL, cfg.collection)
		if err != nil {
			return err
		}
		defer mirror.Close()
		if err := mirror.EnsureCollection(ctx, provider.Dimensions()); err != nil {
			return err
		}
	}

	switch {
	case cfg.csvPath != "":
		return runBatch(ctx, cfg.csvPath, store, mirror, provider, logger)
	case cfg.natsURL != "":
		return runConsumer(ctx, cfg.natsURL, store, mirror, provider, logger)
	default:
		return fmt.Errorf("nothing to do: pass -csv for batch mode or -nats for consume mode")
	}
}

// runBatch rebuilds the corpus from a scraper CSV.
func runBatch(ctx context.Context, csvPath string, store *corpus.Store, mirror *semantic.Store, provider embed.Provider, logger *slog.Logger) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	scraped, err := corpus.ReadCSV(f)
	if err != nil {
		return err
	}
	logger.Info("csv loaded", "records", len(scraped))

	records := ingest.Prepare(ctx, scraped, logger)
	logger.Info("records prepared", "kept", len(records), "dropped", len(scraped)-len(records))
	if len(records) == 0 {
		return fmt.Errorf("no usable records in %s", csvPath)
	}

	bar := progressbar.Default(int64(len(records)), "embedding")
	vectors := make([][]float32, 0, len(records))
	for _, chunk := range fn.Chunk(records, ingest.EmbedBatchSize) {
		vecs, err := ingest.EmbedAll(ctx, provider, chunk)
		if err != nil {
			return err
		}
		vectors = append(vectors, vecs...)
		bar.Add(len(chunk))
	}

	if err := store.ReplaceAll(ctx, records); err != nil {
		return err
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	if err := store.SaveEmbeddings(ctx, ids, vectors, provider.Model()); err != nil {
		return err
	}
	logger.Info("corpus written", "records", len(records), "model", provider.Model())

	if mirror != nil {
		if err := mirror.Upsert(ctx, records, vectors, provider.Model()); err != nil {
			return fmt.Errorf("qdrant mirror: %w", err)
		}
		logger.Info("mirror updated", "records", len(records))
	}
	return nil
}

// runConsumer applies streamed records until interrupted.
func runConsumer(ctx context.Context, natsURL string, store *corpus.Store, mirror *semantic.Store, provider embed.Provider, logger *slog.Logger) error {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return err
	}
	defer nc.Close()

	deps := ingest.Deps{
		Provider: provider,
		Store:    store,
		Logger:   logger,
	}
	if mirror != nil {
		deps.Mirror = mirror
	}

	sub, err := ingest.StartConsumer(nc, deps)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	logger.Info("consuming", "subject", ingest.Subject)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
