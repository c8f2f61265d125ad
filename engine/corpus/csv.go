package corpus

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
)

// csvHeader is the scraper handoff format. Column names are fixed; files
// written by older scraper runs must keep importing.
var csvHeader = []string{
	"faculty_id", "Name", "Profile_URL", "Qualification", "Phone", "Address",
	"Email", "Specialization", "Image_URL", "Biography", "Research_Interests",
	"Teaching", "Publications",
}

// ReadCSV parses a scraper export. The header row is validated positionally;
// short rows fail rather than silently shifting columns.
func ReadCSV(r io.Reader) ([]domain.Faculty, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("corpus: read csv header: %w", err)
	}
	for i, want := range csvHeader {
		if header[i] != want {
			return nil, fmt.Errorf("%w: csv column %d is %q, want %q",
				domain.ErrInvalidRecord, i, header[i], want)
		}
	}

	var out []domain.Faculty
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("corpus: read csv row: %w", err)
		}
		out = append(out, domain.Faculty{
			ID:                row[0],
			Name:              row[1],
			ProfileURL:        row[2],
			Qualification:     row[3],
			Phone:             row[4],
			Address:           row[5],
			Email:             row[6],
			Specialization:    row[7],
			ImageURL:          row[8],
			Biography:         row[9],
			ResearchInterests: row[10],
			Teaching:          row[11],
			Publications:      row[12],
		})
	}
	return out, nil
}

// WriteCSV writes records in the scraper handoff format.
func WriteCSV(w io.Writer, records []domain.Faculty) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("corpus: write csv header: %w", err)
	}
	for _, f := range records {
		row := []string{
			f.ID, f.Name, f.ProfileURL, f.Qualification, f.Phone, f.Address,
			f.Email, f.Specialization, f.ImageURL, f.Biography,
			f.ResearchInterests, f.Teaching, f.Publications,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("corpus: write csv row %s: %w", f.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
