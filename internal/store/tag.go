package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/model"
	"github.com/dukerupert/mise/internal/recipe"
)

type TagStore struct {
	db *sql.DB
}

func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

const tagCols = `id, name, slug, usage_count, created_at`

func scanTag(scanner interface{ Scan(...any) error }) (*model.Tag, error) {
	var t model.Tag
	if err := scanner.Scan(&t.ID, &t.Name, &t.Slug, &t.UsageCount, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Popular lists tags by usage, most used first.
func (s *TagStore) Popular(ctx context.Context, limit int) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagCols+` FROM tags WHERE usage_count > 0 ORDER BY usage_count DESC, name LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// linkTag finds or creates the tag called name, counts one more use of it
// and joins it to the recipe.
func linkTag(ctx context.Context, tx *sql.Tx, recipeID int64, name string) error {
	var tagID int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID)
	switch {
	case err == sql.ErrNoRows:
		slug, err := freeTagSlug(ctx, tx, name)
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO tags (name, slug, usage_count) VALUES (?, ?, 1)`, name, slug)
		if err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
		if tagID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
	case err != nil:
		return fmt.Errorf("find tag: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?`, tagID); err != nil {
			return fmt.Errorf("increment tag: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)`, recipeID, tagID); err != nil {
		return fmt.Errorf("link tag: %w", err)
	}
	return nil
}

// unlinkTags removes every tag from the recipe, counting one less use of each.
func unlinkTags(ctx context.Context, tx *sql.Tx, recipeID int64) error {
	ids, err := recipeTagIDs(ctx, tx, recipeID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, recipeID); err != nil {
		return fmt.Errorf("delete recipe tags: %w", err)
	}
	return decrementTags(ctx, tx, ids)
}

func recipeTagIDs(ctx context.Context, tx *sql.Tx, recipeID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT tag_id FROM recipe_tags WHERE recipe_id = ?`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list recipe tags: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tag id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func decrementTags(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET usage_count = MAX(usage_count - 1, 0) WHERE id = ?`, id); err != nil {
			return fmt.Errorf("decrement tag: %w", err)
		}
	}
	return nil
}

func freeTagSlug(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	base := recipe.Slugify(name)
	if base == "" {
		base = "tag"
	}
	for i := 0; i < recipe.MaxSlugProbes; i++ {
		candidate := recipe.SlugCandidate(base, i)
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags WHERE slug = ?`, candidate).Scan(&n); err != nil {
			return "", fmt.Errorf("probe tag slug: %w", err)
		}
		if n == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for tag %q: %w", name, apperr.ErrConflict)
}
