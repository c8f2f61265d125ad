package domain

import (
	"strings"

	"github.com/Kunal-Pramanik/Connect2Faculty/pkg/textnorm"
)

// ValidateFaculty checks that a record is embeddable: it must carry a name
// and its combined text must survive normalization. Records that fail the
// second check are dropped by callers, never embedded as empty strings.
func ValidateFaculty(f *Faculty) error {
	if strings.TrimSpace(f.Name) == "" || f.Name == Missing {
		return NewValidationError("name", f.Name, ErrInvalidRecord)
	}
	// The labels in CombinedText always survive normalization, so signal is
	// judged on the raw field values alone.
	if textnorm.IsEmpty(strings.Join(f.FieldValues(), " ")) {
		return NewValidationError("combined_text", f.Name, ErrNoUsableText)
	}
	return nil
}

// NormalizedText returns the canonical embedding input for a record.
func NormalizedText(f *Faculty) string {
	return textnorm.Normalize(f.CombinedText())
}
