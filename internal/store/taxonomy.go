package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/model"
)

// TaxonomyStore serves one of the lookup tables recipes reference.
type TaxonomyStore struct {
	db    *sql.DB
	table string
	fkCol string
	label string
}

func NewCategoryStore(db *sql.DB) *TaxonomyStore {
	return &TaxonomyStore{db: db, table: "categories", fkCol: "category_id", label: "Category"}
}

func NewCuisineStore(db *sql.DB) *TaxonomyStore {
	return &TaxonomyStore{db: db, table: "cuisines", fkCol: "cuisine_id", label: "Cuisine"}
}

// Label is the singular display name of the table, e.g. "Category".
func (s *TaxonomyStore) Label() string {
	return s.label
}

const taxonomyCols = `id, name, slug, description, image, sort_order, is_active, created_at`

func scanTaxonomy(scanner interface{ Scan(...any) error }, extra ...any) (*model.Taxonomy, error) {
	var t model.Taxonomy
	dest := []any{&t.ID, &t.Name, &t.Slug, &t.Description, &t.Image, &t.SortOrder, &t.IsActive, &t.CreatedAt}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListActive returns active entries ordered for display, each with its count
// of published recipes.
func (s *TaxonomyStore) ListActive(ctx context.Context) ([]model.Taxonomy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixCols("t", taxonomyCols)+`,
		       (SELECT COUNT(*) FROM recipes r WHERE r.`+s.fkCol+` = t.id AND r.is_published = 1)
		FROM `+s.table+` t
		WHERE t.is_active = 1
		ORDER BY t.sort_order, t.name`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []model.Taxonomy
	for rows.Next() {
		var count int
		t, err := scanTaxonomy(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		t.RecipeCount = count
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *TaxonomyStore) GetByID(ctx context.Context, id int64) (*model.Taxonomy, error) {
	t, err := scanTaxonomy(s.db.QueryRowContext(ctx, `SELECT `+taxonomyCols+` FROM `+s.table+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.table, err)
	}
	return t, nil
}

// TaxonomyInput describes a new category or cuisine.
type TaxonomyInput struct {
	Name        string
	Slug        string
	Description string
	Image       string
	SortOrder   int
	IsActive    bool
}

// Create inserts an entry. A duplicate name or slug is apperr.ErrConflict.
func (s *TaxonomyStore) Create(ctx context.Context, in TaxonomyInput) (*model.Taxonomy, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.table+` (name, slug, description, image, sort_order, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		in.Name, in.Slug, nullString(in.Description), nullString(in.Image), in.SortOrder, in.IsActive,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%s %q already exists: %w", s.label, in.Name, apperr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", s.table, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// SetActive toggles whether new recipes may reference the entry.
func (s *TaxonomyStore) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE `+s.table+` SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.table, err)
	}
	return nil
}

// checkActive fails with a validation error unless id names an active row.
func checkActive(ctx context.Context, q querier, table, label string, id *int64) error {
	if id == nil {
		return nil
	}
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ? AND is_active = 1`, *id).Scan(&n)
	if err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	if n == 0 {
		return apperr.Invalid(fmt.Sprintf("%s with ID %d does not exist or is inactive", label, *id))
	}
	return nil
}
