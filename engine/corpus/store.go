// Package corpus persists faculty records and their embeddings in SQLite
// and loads them back as the bundle the serving index is built from. The
// bundle invariants (same length, same order, same dimension, one model
// version) are enforced at load time so a bad corpus can never serve.
package corpus

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS faculty (
	faculty_id  TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	profile_url TEXT,
	qualification TEXT,
	phone       TEXT,
	address     TEXT,
	email       TEXT,
	specialization TEXT,
	image_url   TEXT,
	biography   TEXT,
	research_interests TEXT,
	teaching    TEXT,
	publications TEXT
);

CREATE TABLE IF NOT EXISTS embeddings (
	faculty_id TEXT PRIMARY KEY REFERENCES faculty(faculty_id) ON DELETE CASCADE,
	vector     BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	model      TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// Store is the SQLite-backed faculty corpus.
type Store struct {
	db *sql.DB
}

// Open opens or creates the corpus database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("corpus: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("corpus: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("corpus: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// ReplaceAll swaps the whole faculty table for the given records in one
// transaction. The corpus is rebuilt wholesale, never patched.
func (s *Store) ReplaceAll(ctx context.Context, records []domain.Faculty) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("corpus: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM faculty`); err != nil {
		return fmt.Errorf("corpus: clear faculty: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faculty (faculty_id, name, profile_url, qualification, phone,
			address, email, specialization, image_url, biography,
			research_interests, teaching, publications)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("corpus: prepare: %w", err)
	}
	defer stmt.Close()

	for i, f := range records {
		if _, err := stmt.ExecContext(ctx,
			f.ID, f.Name, f.ProfileURL, f.Qualification, f.Phone,
			f.Address, f.Email, f.Specialization, f.ImageURL, f.Biography,
			f.ResearchInterests, f.Teaching, f.Publications,
		); err != nil {
			return fmt.Errorf("corpus: insert record %d (%s): %w", i, f.ID, err)
		}
	}
	return tx.Commit()
}

// Upsert inserts or replaces one faculty record.
func (s *Store) Upsert(ctx context.Context, f domain.Faculty) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO faculty (faculty_id, name, profile_url, qualification,
			phone, address, email, specialization, image_url, biography,
			research_interests, teaching, publications)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.ProfileURL, f.Qualification, f.Phone,
		f.Address, f.Email, f.Specialization, f.ImageURL, f.Biography,
		f.ResearchInterests, f.Teaching, f.Publications,
	)
	if err != nil {
		return fmt.Errorf("corpus: upsert %s: %w", f.ID, err)
	}
	return nil
}

// All returns every faculty record ordered by id.
func (s *Store) All(ctx context.Context) ([]domain.Faculty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT faculty_id, name, profile_url, qualification, phone, address,
			email, specialization, image_url, biography, research_interests,
			teaching, publications
		FROM faculty ORDER BY faculty_id`)
	if err != nil {
		return nil, fmt.Errorf("corpus: select faculty: %w", err)
	}
	defer rows.Close()

	var out []domain.Faculty
	for rows.Next() {
		var f domain.Faculty
		if err := rows.Scan(
			&f.ID, &f.Name, &f.ProfileURL, &f.Qualification, &f.Phone,
			&f.Address, &f.Email, &f.Specialization, &f.ImageURL, &f.Biography,
			&f.ResearchInterests, &f.Teaching, &f.Publications,
		); err != nil {
			return nil, fmt.Errorf("corpus: scan faculty: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Get returns one record by id, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (*domain.Faculty, error) {
	var f domain.Faculty
	err := s.db.QueryRowContext(ctx, `
		SELECT faculty_id, name, profile_url, qualification, phone, address,
			email, specialization, image_url, biography, research_interests,
			teaching, publications
		FROM faculty WHERE faculty_id = ?`, id).Scan(
		&f.ID, &f.Name, &f.ProfileURL, &f.Qualification, &f.Phone,
		&f.Address, &f.Email, &f.Specialization, &f.ImageURL, &f.Biography,
		&f.ResearchInterests, &f.Teaching, &f.Publications,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Count returns the number of faculty records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM faculty`).Scan(&n)
	return n, err
}
