// Package domain defines the core types, constants, and validation for the
// Connect2Faculty pipeline. It acts as the validation gate at pipeline entry
// points and owns the error taxonomy shared by the index and search layers.
package domain

import (
	"strings"
	"time"
)

// EmbeddingDim is the output dimension of the sentence-transformers
// all-MiniLM-L6-v2 model every provider must match.
const EmbeddingDim = 384

// Faculty is one faculty directory entry. The free-text fields feed the
// embedding via CombinedText; the rest are display metadata.
type Faculty struct {
	ID                string `json:"faculty_id"`
	Name              string `json:"name"`
	ProfileURL        string `json:"profile_url"`
	Qualification     string `json:"qualification,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Address           string `json:"address,omitempty"`
	Email             string `json:"email,omitempty"`
	Specialization    string `json:"specialization"`
	ImageURL          string `json:"image_url"`
	Biography         string `json:"biography,omitempty"`
	ResearchInterests string `json:"research_interests"`
	Teaching          string `json:"teaching,omitempty"`
	Publications      string `json:"publications,omitempty"`

	ScrapedAt time.Time `json:"scraped_at,omitempty"`
}

// combinedFields is the fixed label/accessor order for CombinedText.
// Changing this order invalidates every stored embedding.
var combinedFields = []struct {
	label string
	get   func(*Faculty) string
}{
	{"Name", func(f *Faculty) string { return f.Name }},
	{"Specialization", func(f *Faculty) string { return f.Specialization }},
	{"Biography", func(f *Faculty) string { return f.Biography }},
	{"Research Interests", func(f *Faculty) string { return f.ResearchInterests }},
	{"Teaching", func(f *Faculty) string { return f.Teaching }},
	{"Publications", func(f *Faculty) string { return f.Publications }},
}

// CombinedText concatenates the embeddable fields with stable labels and
// ordering. It is the only text handed to the embedding provider and is
// never displayed. Must be regenerated whenever a source field changes.
func (f *Faculty) CombinedText() string {
	var b strings.Builder
	for _, fld := range combinedFields {
		v := strings.TrimSpace(fld.get(f))
		if v == "" || v == Missing {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(fld.label)
		b.WriteString(": ")
		b.WriteString(v)
	}
	return b.String()
}

// Missing is the scraper's placeholder for an absent field.
const Missing = "N/A"

// FieldValues returns the raw embeddable field values in combined order,
// without labels. Used to decide whether a record carries any signal at all.
func (f *Faculty) FieldValues() []string {
	vals := make([]string, 0, len(combinedFields))
	for _, fld := range combinedFields {
		if v := strings.TrimSpace(fld.get(f)); v != "" && v != Missing {
			vals = append(vals, v)
		}
	}
	return vals
}

// Result is the per-query projection of a matched record. Transient,
// never persisted.
type Result struct {
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	ImageURL       string  `json:"image_url"`
	ProfileURL     string  `json:"profile_url"`
	Teaching       string  `json:"teaching"`
	Publications   string  `json:"publications"`
	Score          float32 `json:"score"`
}

// NewResult projects a Faculty and its similarity score into a Result.
// Placeholder values are substituted the way the serving API always has.
func NewResult(f *Faculty, score float32) Result {
	return Result{
		Name:           orDefault(f.Name, "Unknown"),
		Specialization: orDefault(f.Specialization, Missing),
		ImageURL:       orDefault(f.ImageURL, ""),
		ProfileURL:     orDefault(f.ProfileURL, ""),
		Teaching:       orDefault(f.Teaching, Missing),
		Publications:   orDefault(f.Publications, Missing),
		Score:          score,
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
