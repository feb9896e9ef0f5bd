// Package library is the optional link library: nested sections of URLs
// browsed with inline buttons.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a section does not exist.
var ErrNotFound = errors.New("library: section not found")

// Section groups items and nested sections.
type Section struct {
	ID       int64         `db:"id"`
	ParentID sql.NullInt64 `db:"parent_id"`
	Title    string        `db:"title"`
	Position int           `db:"position"`
}

// Parent returns the parent section id, 0 for top-level sections.
func (s Section) Parent() int64 {
	if !s.ParentID.Valid {
		return 0
	}
	return s.ParentID.Int64
}

// Item is a link inside a section.
type Item struct {
	ID        int64  `db:"id"`
	SectionID int64  `db:"section_id"`
	Title     string `db:"title"`
	URL       string `db:"url"`
	Position  int    `db:"position"`
}

// Store reads the library tree.
type Store interface {
	Sections(ctx context.Context, parentID int64) ([]Section, error)
	Section(ctx context.Context, id int64) (Section, error)
	Items(ctx context.Context, sectionID int64) ([]Item, error)
}

// Repository is the sqlx Store.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Sections lists the children of parentID; 0 lists top-level sections.
func (r *Repository) Sections(ctx context.Context, parentID int64) ([]Section, error) {
	var out []Section
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, parent_id, title, position FROM library_sections
WHERE COALESCE(parent_id, 0) = $1 ORDER BY position, id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("library: sections of %d: %w", parentID, err)
	}
	return out, nil
}

// Section returns the section with id.
func (r *Repository) Section(ctx context.Context, id int64) (Section, error) {
	var s Section
	err := r.db.GetContext(ctx, &s,
		`SELECT id, parent_id, title, position FROM library_sections WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Section{}, ErrNotFound
	}
	if err != nil {
		return Section{}, fmt.Errorf("library: section %d: %w", id, err)
	}
	return s, nil
}

// Items lists the links of sectionID.
func (r *Repository) Items(ctx context.Context, sectionID int64) ([]Item, error) {
	var out []Item
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, section_id, title, url, position FROM library_items
WHERE section_id = $1 ORDER BY position, id`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("library: items of %d: %w", sectionID, err)
	}
	return out, nil
}
