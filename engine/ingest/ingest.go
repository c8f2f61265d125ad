// Package ingest turns scraped faculty records into corpus rows: validation,
// field cleanup, id assignment, embedding, and storage, composed as pipeline
// stages.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/corpus"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	"github.com/Kunal-Pramanik/Connect2Faculty/engine/embed"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/fn"
	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/textnorm"
)

// EmbedBatchSize is the max records per embedding request.
const EmbedBatchSize = 100

// EmbeddedRecord pairs a cleaned record with its embedding.
type EmbeddedRecord struct {
	Faculty domain.Faculty
	Vector  []float32
}

// VectorSink receives embedded records for secondary storage (the Qdrant
// mirror). Optional in every pipeline.
type VectorSink interface {
	Upsert(ctx context.Context, records []domain.Faculty, vectors [][]float32, model string) error
}

// --- Pipeline stages ---

// Validate gates a record on the domain rules.
var Validate fn.Stage[domain.Faculty, domain.Faculty] = func(_ context.Context, f domain.Faculty) fn.Result[domain.Faculty] {
	if err := domain.ValidateFaculty(&f); err != nil {
		return fn.Err[domain.Faculty](err)
	}
	return fn.Ok(f)
}

// Clean repairs scraped fields: deobfuscates the email, normalizes the
// research interests, and rejects records whose research interests carry no
// text. The directory publishes plenty of emeritus entries with nothing but
// a name; those never reach the corpus.
var Clean fn.Stage[domain.Faculty, domain.Faculty] = func(_ context.Context, f domain.Faculty) fn.Result[domain.Faculty] {
	f.Email = deobfuscateEmail(f.Email)
	f.ResearchInterests = textnorm.Normalize(f.ResearchInterests)
	if f.ResearchInterests == "" {
		return fn.Err[domain.Faculty](fmt.Errorf("%w: no research interests for %q",
			domain.ErrNoUsableText, f.Name))
	}
	return fn.Ok(f)
}

// deobfuscateEmail rewrites the "name [at] host [dot] tld" convention into a
// routable address. Non-obfuscated values pass through untouched.
func deobfuscateEmail(email string) string {
	if email == "" || email == domain.Missing {
		return email
	}
	if !strings.Contains(email, "[at]") && !strings.Contains(email, "[dot]") {
		return email
	}
	email = strings.ReplaceAll(email, "[at]", "@")
	email = strings.ReplaceAll(email, "[dot]", ".")
	return strings.ReplaceAll(email, " ", "")
}

// NewEmbed creates a stage that embeds a record's combined text.
func NewEmbed(p embed.Provider) fn.Stage[domain.Faculty, EmbeddedRecord] {
	return func(ctx context.Context, f domain.Faculty) fn.Result[EmbeddedRecord] {
		vec, err := p.Embed(ctx, domain.NormalizedText(&f))
		if err != nil {
			return fn.Err[EmbeddedRecord](fmt.Errorf("embed %s: %w", f.ID, err))
		}
		return fn.Ok(EmbeddedRecord{Faculty: f, Vector: vec})
	}
}

// NewStore creates a stage that writes an embedded record to the corpus and,
// when a sink is configured, mirrors it. Returns the faculty id.
func NewStore(store *corpus.Store, mirror VectorSink, model string, logger *slog.Logger) fn.Stage[EmbeddedRecord, string] {
	return func(ctx context.Context, rec EmbeddedRecord) fn.Result[string] {
		if err := store.Upsert(ctx, rec.Faculty); err != nil {
			return fn.Err[string](err)
		}
		if err := store.SaveEmbeddings(ctx, []string{rec.Faculty.ID}, [][]float32{rec.Vector}, model); err != nil {
			return fn.Err[string](err)
		}
		if mirror != nil {
			if err := mirror.Upsert(ctx, []domain.Faculty{rec.Faculty}, [][]float32{rec.Vector}, model); err != nil {
				// The mirror is best-effort; the SQLite corpus is the source
				// of truth.
				logger.Warn("vector mirror upsert failed", "id", rec.Faculty.ID, "err", err)
			}
		}
		return fn.Ok(rec.Faculty.ID)
	}
}

// LoggedTap logs stage entry and exit with duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Info("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Info("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// Deps holds the pipeline's external dependencies.
type Deps struct {
	Provider embed.Provider
	Store    *corpus.Store
	Mirror   VectorSink
	Logger   *slog.Logger
}

// NewPipeline wires Validate → Clean → Embed → Store for one record.
func NewPipeline(deps Deps) fn.Stage[domain.Faculty, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	validated := fn.Then(LoggedTap[domain.Faculty]("validate", log), Validate)
	cleaned := fn.Then(validated, Clean)
	embedded := fn.Then(cleaned, fn.Then(LoggedTap[domain.Faculty]("embed", log), NewEmbed(deps.Provider)))
	return fn.Then(embedded, fn.Then(LoggedTap[EmbeddedRecord]("store", log),
		NewStore(deps.Store, deps.Mirror, deps.Provider.Model(), log)))
}

// Prepare runs Validate and Clean over a scraped batch, drops the records
// that fail, and assigns sequential corpus ids (F-001, F-002, ...). Ids are
// positional: a full rescrape renumbers, which is why the corpus is always
// replaced wholesale rather than merged.
func Prepare(ctx context.Context, records []domain.Faculty, logger *slog.Logger) []domain.Faculty {
	if logger == nil {
		logger = slog.Default()
	}
	stage := fn.Then(Validate, Clean)

	out := make([]domain.Faculty, 0, len(records))
	for _, f := range records {
		cleaned, err := stage(ctx, f).Unwrap()
		if err != nil {
			logger.Warn("record dropped", "name", f.Name, "err", err)
			continue
		}
		cleaned.ID = fmt.Sprintf("F-%03d", len(out)+1)
		out = append(out, cleaned)
	}
	return out
}

// EmbedAll embeds every prepared record in EmbedBatchSize groups, returning
// vectors in record order.
func EmbedAll(ctx context.Context, p embed.Provider, records []domain.Faculty) ([][]float32, error) {
	vectors := make([][]float32, 0, len(records))
	for i := 0; i < len(records); i += EmbedBatchSize {
		end := min(i+EmbedBatchSize, len(records))
		texts := make([]string, end-i)
		for j := range texts {
			texts[j] = domain.NormalizedText(&records[i+j])
		}
		batch, err := p.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch starting at %d: %w", i, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
