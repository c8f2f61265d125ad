// Package scraper collects faculty records from a university directory
// website: listing pages carry the card-level fields (name, contact,
// specialization), each profile page carries the long-form text (biography,
// research interests, teaching, publications).
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/fn"
)

// Config drives one scrape run.
type Config struct {
	// BaseURL is the site root; relative links are resolved against it.
	BaseURL string
	// ListingPaths are the directory pages to walk, e.g. "/faculty".
	ListingPaths []string
	// RatePerSec caps outbound requests. Zero means 1 req/s.
	RatePerSec float64
	// MaxRecords truncates the run; 0 means unlimited.
	MaxRecords int
	// SkipProfiles skips the per-profile fetch, keeping card fields only.
	SkipProfiles bool
	UserAgent    string
}

// DefaultListingPaths covers the directory sections the site splits
// faculty across.
func DefaultListingPaths() []string {
	return []string{
		"/faculty",
		"/adjunct-faculty",
		"/adjunct-faculty-international",
		"/distinguished-professor",
		"/professor-practice",
	}
}

// Scraper fetches and parses the faculty directory.
type Scraper struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	retry   fn.RetryOpts
}

// New creates a Scraper. Nil logger falls back to slog.Default.
func New(cfg Config, logger *slog.Logger) *Scraper {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "connect2faculty-scraper/1.0"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		logger:  logger,
		retry: fn.RetryOpts{
			MaxAttempts: 3,
			InitialWait: 5 * time.Second,
			MaxWait:     30 * time.Second,
			Jitter:      true,
		},
	}
}

// FetchAll walks every listing page and returns the collected records.
// A failed listing page is logged and skipped; a failed profile page
// degrades that record to its card fields. Partial output with a warning
// beats an empty run.
func (s *Scraper) FetchAll(ctx context.Context) ([]domain.Faculty, error) {
	var all []domain.Faculty
	for _, path := range s.cfg.ListingPaths {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		listingURL := s.cfg.BaseURL + path
		html, err := s.get(ctx, listingURL)
		if err != nil {
			s.logger.Warn("listing page failed", "url", listingURL, "err", err)
			continue
		}

		cards := parseListing(html, s.cfg.BaseURL)
		s.logger.Info("listing parsed", "url", listingURL, "cards", len(cards))

		for _, f := range cards {
			if s.cfg.MaxRecords > 0 && len(all) >= s.cfg.MaxRecords {
				return all, nil
			}
			if !s.cfg.SkipProfiles && f.ProfileURL != "" {
				if err := s.fetchProfile(ctx, &f); err != nil {
					s.logger.Warn("profile page failed", "url", f.ProfileURL, "err", err)
				}
			}
			f.ScrapedAt = time.Now().UTC()
			all = append(all, f)
		}
	}
	return all, nil
}

// fetchProfile fills the long-form fields in place.
func (s *Scraper) fetchProfile(ctx context.Context, f *domain.Faculty) error {
	html, err := s.get(ctx, f.ProfileURL)
	if err != nil {
		return err
	}
	parseProfile(html, f)
	return nil
}

// get fetches one URL through the rate limiter, retrying transient failures.
func (s *Scraper) get(ctx context.Context, url string) (string, error) {
	result := fn.Retry(ctx, s.retry, func(ctx context.Context) fn.Result[string] {
		if err := s.limiter.Wait(ctx); err != nil {
			return fn.Err[string](err)
		}
		return s.doGet(ctx, url)
	})
	return result.Unwrap()
}

func (s *Scraper) doGet(ctx context.Context, url string) fn.Result[string] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fn.Err[string](err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fn.Err[string](err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fn.Err[string](fmt.Errorf("http %d from %s", resp.StatusCode, url))
	}
	if resp.StatusCode != http.StatusOK {
		return fn.Err[string](fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fn.Err[string](fmt.Errorf("read body: %w", err))
	}
	return fn.Ok(string(body))
}

// resolveURL makes href absolute against base.
func resolveURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return base + href
}
