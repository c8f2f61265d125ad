// Command scraper walks the faculty directory website and emits the
// collected records as CSV, JSON on stdout, or NATS messages for the
// indexer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/corpus"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/ingest"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/scraper"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/metrics"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/natsutil"
)

func main() {
	baseURL := flag.String("base-url", "https://www.daiict.ac.in", "directory site root")
	paths := flag.String("paths", "", "comma-separated listing paths (default: the known directory sections)")
	ratePerSec := flag.Float64("rate", 1, "max requests per second")
	maxRecords := flag.Int("max", 0, "max records to scrape (0 = unlimited)")
	skipProfiles := flag.Bool("skip-profiles", false, "skip profile pages, card fields only")
	outCSV := flag.String("out", "", "write records to a CSV file")
	natsURL := flag.String("nats", "", "NATS URL (publish records instead of printing)")
	subject := flag.String("subject", ingest.Subject, "NATS subject to publish to")
	interval := flag.Duration("interval", 0, "polling interval (0 = one-shot)")
	metricsPort := flag.String("metrics-port", "", "serve /metrics on this port")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	listingPaths := scraper.DefaultListingPaths()
	if *paths != "" {
		listingPaths = nil
		for _, p := range strings.Split(*paths, ",") {
			if p = strings.TrimSpace(p); p != "" {
				listingPaths = append(listingPaths, p)
			}
		}
	}

	s := scraper.New(scraper.Config{
		BaseURL:      *baseURL,
		ListingPaths: listingPaths,
		RatePerSec:   *ratePerSec,
		MaxRecords:   *maxRecords,
		SkipProfiles: *skipProfiles,
	}, logger)

	met := metrics.New()
	mRecords := met.Counter("scraper_records_total", "Faculty records scraped.")
	mErrors := met.Counter("scraper_errors_total", "Scrape runs that failed.")
	mDuration := met.Histogram("scraper_run_seconds", "Duration of one full scrape.", nil)
	mLastRun := met.Gauge("scraper_last_run_timestamp", "Epoch of the last completed run.")

	if *metricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", met.Handler())
		go func() {
			if err := http.ListenAndServe(":"+*metricsPort, mux); err != nil {
				logger.Error("metrics server", "err", err)
			}
		}()
	}

	var nc *nats.Conn
	if *natsURL != "" {
		var err error
		nc, err = nats.Connect(*natsURL)
		if err != nil {
			logger.Error("nats connect", "err", err)
			os.Exit(1)
		}
		defer nc.Close()
		logger.Info("publishing to NATS", "subject", *subject)
	}

	emit := func(records []domain.Faculty) error {
		switch {
		case nc != nil:
			for _, f := range records {
				if err := natsutil.Publish(ctx, nc, *subject, f); err != nil {
					logger.Warn("nats publish failed", "name", f.Name, "err", err)
				}
			}
			return nil
		case *outCSV != "":
			f, err := os.Create(*outCSV)
			if err != nil {
				return err
			}
			defer f.Close()
			return corpus.WriteCSV(f, records)
		default:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for _, f := range records {
				if err := enc.Encode(f); err != nil {
					return err
				}
			}
			return nil
		}
	}

	run := func() {
		start := time.Now()
		records, err := s.FetchAll(ctx)
		if err != nil {
			mErrors.Inc()
			logger.Error("scrape failed", "err", err)
			return
		}
		mDuration.Since(start)
		mRecords.Add(int64(len(records)))
		mLastRun.Set(time.Now().Unix())
		logger.Info("scrape complete", "records", len(records), "duration", time.Since(start))

		if err := emit(records); err != nil {
			mErrors.Inc()
			logger.Error("emit failed", "err", err)
		}
	}

	run()
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
			run()
		}
	}
}
