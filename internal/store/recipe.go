package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/model"
	"github.com/dukerupert/mise/internal/recipe"
)

// RecipeStore owns the recipe aggregate: the recipe row and its ordered
// ingredients, instructions, images, tips and tag links. Every write runs in
// a single transaction.
type RecipeStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewRecipeStore(db *sql.DB) *RecipeStore {
	return &RecipeStore{db: db, now: time.Now}
}

const recipeCols = `id, title, slug, description, content, prep_time, cook_time, total_time, servings,
	difficulty, dietary_type, featured_image, video_url, author_id, category_id, cuisine_id,
	is_published, is_draft, views, likes_count, ratings_count, average_rating,
	created_at, updated_at, published_at`

func recipeDest(r *model.Recipe) []any {
	return []any{
		&r.ID, &r.Title, &r.Slug, &r.Description, &r.Content, &r.PrepTime, &r.CookTime, &r.TotalTime, &r.Servings,
		&r.Difficulty, &r.DietaryType, &r.FeaturedImage, &r.VideoURL, &r.AuthorID, &r.CategoryID, &r.CuisineID,
		&r.IsPublished, &r.IsDraft, &r.Views, &r.LikesCount, &r.RatingsCount, &r.AverageRating,
		&r.CreatedAt, &r.UpdatedAt, &r.PublishedAt,
	}
}

func scanRecipe(scanner interface{ Scan(...any) error }) (*model.Recipe, error) {
	var r model.Recipe
	if err := scanner.Scan(recipeDest(&r)...); err != nil {
		return nil, err
	}
	return &r, nil
}

func getRecipe(ctx context.Context, q querier, id int64) (*model.Recipe, error) {
	r, err := scanRecipe(q.QueryRowContext(ctx, `SELECT `+recipeCols+` FROM recipes WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return r, nil
}

// GetByID returns the bare recipe row, or nil.
func (s *RecipeStore) GetByID(ctx context.Context, id int64) (*model.Recipe, error) {
	return getRecipe(ctx, s.db, id)
}

// Create validates in and stores it as a new recipe by authorID.
func (s *RecipeStore) Create(ctx context.Context, in *recipe.Input, authorID string) (*model.RecipeSummary, error) {
	in.Normalize()
	if err := recipe.Validate(in); err != nil {
		return nil, err
	}

	var summary *model.RecipeSummary
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := checkReferences(ctx, tx, in); err != nil {
			return err
		}

		slug, err := uniqueSlug(ctx, tx, recipe.BaseSlug(in.Title), 0)
		if err != nil {
			return err
		}

		var publishedAt any
		if in.IsPublished {
			publishedAt = s.now().UTC()
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO recipes (title, slug, description, content, prep_time, cook_time, total_time, servings,
				difficulty, dietary_type, featured_image, video_url, author_id, category_id, cuisine_id,
				is_published, is_draft, published_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Title, slug, in.Description, nullString(in.Content),
			*in.PrepTime, *in.CookTime, in.TotalMinutes(), *in.Servings,
			in.Difficulty, in.Diet(), nullString(in.FeaturedImage), nullString(in.VideoURL),
			authorID, in.CategoryID, in.CuisineID,
			in.IsPublished, !in.IsPublished, publishedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("slug %q: %w", slug, apperr.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert recipe: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		if err := insertChildren(ctx, tx, id, in); err != nil {
			return err
		}
		for _, name := range in.Tags {
			if err := linkTag(ctx, tx, id, name); err != nil {
				return err
			}
		}

		summary, err = getSummary(ctx, tx, `r.id = ?`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// Update replaces recipe id with in. The recipe must exist (ErrNotFound) and
// belong to requesterID (ErrForbidden) before the input is even validated.
func (s *RecipeStore) Update(ctx context.Context, id int64, in *recipe.Input, requesterID string) (*model.RecipeSummary, error) {
	var summary *model.RecipeSummary
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		existing, err := ownedRecipe(ctx, tx, id, requesterID)
		if err != nil {
			return err
		}

		in.Normalize()
		if err := recipe.Validate(in); err != nil {
			return err
		}
		if err := checkReferences(ctx, tx, in); err != nil {
			return err
		}

		slug := existing.Slug
		if base := recipe.BaseSlug(in.Title); !recipe.HasBase(existing.Slug, base) {
			if slug, err = uniqueSlug(ctx, tx, base, id); err != nil {
				return err
			}
		}

		var publishedAt any
		switch {
		case existing.PublishedAt != nil:
			publishedAt = existing.PublishedAt.UTC()
		case in.IsPublished:
			publishedAt = s.now().UTC()
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE recipes SET title = ?, slug = ?, description = ?, content = ?,
				prep_time = ?, cook_time = ?, total_time = ?, servings = ?,
				difficulty = ?, dietary_type = ?, featured_image = ?, video_url = ?,
				category_id = ?, cuisine_id = ?, is_published = ?, is_draft = ?,
				published_at = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			in.Title, slug, in.Description, nullString(in.Content),
			*in.PrepTime, *in.CookTime, in.TotalMinutes(), *in.Servings,
			in.Difficulty, in.Diet(), nullString(in.FeaturedImage), nullString(in.VideoURL),
			in.CategoryID, in.CuisineID, in.IsPublished, !in.IsPublished,
			publishedAt, id,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("slug %q: %w", slug, apperr.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("update recipe: %w", err)
		}

		if err := deleteChildren(ctx, tx, id); err != nil {
			return err
		}
		if err := insertChildren(ctx, tx, id, in); err != nil {
			return err
		}

		if err := unlinkTags(ctx, tx, id); err != nil {
			return err
		}
		for _, name := range in.Tags {
			if err := linkTag(ctx, tx, id, name); err != nil {
				return err
			}
		}

		summary, err = getSummary(ctx, tx, `r.id = ?`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// Delete removes recipe id and its children, releasing its tags. It returns
// the deleted row.
func (s *RecipeStore) Delete(ctx context.Context, id int64, requesterID string) (*model.Recipe, error) {
	var deleted *model.Recipe
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		existing, err := ownedRecipe(ctx, tx, id, requesterID)
		if err != nil {
			return err
		}

		tagIDs, err := recipeTagIDs(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		if err := decrementTags(ctx, tx, tagIDs); err != nil {
			return err
		}

		deleted = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ownedRecipe loads id and checks it belongs to requesterID. Existence is
// checked first so a missing recipe is never reported as forbidden.
func ownedRecipe(ctx context.Context, q querier, id int64, requesterID string) (*model.Recipe, error) {
	existing, err := getRecipe(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("recipe %d: %w", id, apperr.ErrNotFound)
	}
	if existing.AuthorID != requesterID {
		return nil, fmt.Errorf("recipe %d: %w", id, apperr.ErrForbidden)
	}
	return existing, nil
}

func checkReferences(ctx context.Context, q querier, in *recipe.Input) error {
	var problems []string
	for _, ref := range []struct {
		table, label string
		id           *int64
	}{
		{"categories", "Category", in.CategoryID},
		{"cuisines", "Cuisine", in.CuisineID},
	} {
		err := checkActive(ctx, q, ref.table, ref.label, ref.id)
		if p, ok := apperr.Problems(err); ok {
			problems = append(problems, p...)
			continue
		}
		if err != nil {
			return err
		}
	}
	if len(problems) > 0 {
		return apperr.Invalid(problems...)
	}
	return nil
}

// uniqueSlug probes base, base-1, base-2, ... ignoring the recipe excludeID.
func uniqueSlug(ctx context.Context, q querier, base string, excludeID int64) (string, error) {
	for i := 0; i <= recipe.MaxSlugProbes; i++ {
		candidate := recipe.SlugCandidate(base, i)
		var n int
		err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM recipes WHERE slug = ? AND id != ?`, candidate, excludeID,
		).Scan(&n)
		if err != nil {
			return "", fmt.Errorf("probe slug: %w", err)
		}
		if n == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unable to generate unique slug for %q: %w", base, apperr.ErrConflict)
}

func deleteChildren(ctx context.Context, tx *sql.Tx, recipeID int64) error {
	for _, table := range []string{"recipe_ingredients", "recipe_instructions", "recipe_images", "recipe_tips"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE recipe_id = ?`, recipeID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// insertChildren writes the ordered collections. Order keys come from array
// position; client-supplied order is never trusted.
func insertChildren(ctx context.Context, tx *sql.Tx, recipeID int64, in *recipe.Input) error {
	for gi, g := range in.Ingredients {
		for ii, it := range g.Items {
			if it.Name == "" {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO recipe_ingredients (recipe_id, group_name, group_order, name, amount, unit, preparation, notes, item_order)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				recipeID, nullString(g.GroupName), gi, it.Name,
				nullString(it.Amount), nullString(it.Unit), nullString(it.Preparation), nullString(it.Notes), ii,
			)
			if err != nil {
				return fmt.Errorf("insert ingredient: %w", err)
			}
		}
	}

	for i, st := range in.Steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_instructions (recipe_id, step_number, title, content, image, video_url, estimated_time, temperature, tips)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			recipeID, i+1, nullString(st.Title), st.Content,
			nullString(st.Image), nullString(st.VideoURL), st.EstimatedTime, nullString(st.Temperature), nullString(st.Tips),
		)
		if err != nil {
			return fmt.Errorf("insert instruction: %w", err)
		}
	}

	for i, im := range in.Images {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_images (recipe_id, url, alt, caption, sort_order, is_featured)
			VALUES (?, ?, ?, ?, ?, 0)`,
			recipeID, im.URL, nullString(im.Alt), nullString(im.Caption), i,
		)
		if err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
	}

	for i, tp := range in.Tips {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_tips (recipe_id, content, category, sort_order)
			VALUES (?, ?, ?, ?)`,
			recipeID, tp.Content, nullString(tp.Category), i,
		)
		if err != nil {
			return fmt.Errorf("insert tip: %w", err)
		}
	}
	return nil
}
