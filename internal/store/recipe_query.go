package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/model"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

const summaryFrom = `
	FROM recipes r
	JOIN users u ON u.id = r.author_id
	LEFT JOIN categories c ON c.id = r.category_id
	LEFT JOIN cuisines cu ON cu.id = r.cuisine_id`

var summarySelect = `SELECT ` + prefixCols("r", recipeCols) + `,
	u.id, u.username, u.first_name, u.last_name, u.profile_image,
	c.id, c.name, c.slug, cu.id, cu.name, cu.slug` + summaryFrom

func scanSummary(scanner interface{ Scan(...any) error }) (*model.RecipeSummary, error) {
	var s model.RecipeSummary
	var catID, cuiID *int64
	var catName, catSlug, cuiName, cuiSlug *string
	dest := append(recipeDest(&s.Recipe),
		&s.Author.ID, &s.Author.Username, &s.Author.FirstName, &s.Author.LastName, &s.Author.ProfileImage,
		&catID, &catName, &catSlug, &cuiID, &cuiName, &cuiSlug,
	)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}
	if catID != nil {
		s.Category = &model.TaxonomyRef{ID: *catID, Name: deref(catName), Slug: deref(catSlug)}
	}
	if cuiID != nil {
		s.Cuisine = &model.TaxonomyRef{ID: *cuiID, Name: deref(cuiName), Slug: deref(cuiSlug)}
	}
	return &s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func getSummary(ctx context.Context, q querier, where string, arg any) (*model.RecipeSummary, error) {
	s, err := scanSummary(q.QueryRowContext(ctx, summarySelect+` WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe summary: %w", err)
	}
	return s, nil
}

// GetBySlug assembles the full aggregate for slug, or nil.
func (s *RecipeStore) GetBySlug(ctx context.Context, slug string) (*model.RecipeDetail, error) {
	summary, err := getSummary(ctx, s.db, `r.slug = ?`, slug)
	if err != nil || summary == nil {
		return nil, err
	}

	d := &model.RecipeDetail{RecipeSummary: *summary}
	if d.Ingredients, err = s.ingredients(ctx, d.ID); err != nil {
		return nil, err
	}
	if d.Instructions, err = s.instructions(ctx, d.ID); err != nil {
		return nil, err
	}
	if d.Images, err = s.images(ctx, d.ID); err != nil {
		return nil, err
	}
	if d.Tips, err = s.tips(ctx, d.ID); err != nil {
		return nil, err
	}
	if d.Tags, err = s.tags(ctx, d.ID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *RecipeStore) ingredients(ctx context.Context, recipeID int64) ([]model.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipe_id, group_name, group_order, name, amount, unit, preparation, notes, item_order
		FROM recipe_ingredients WHERE recipe_id = ?
		ORDER BY group_order, item_order`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	var out []model.Ingredient
	for rows.Next() {
		var i model.Ingredient
		if err := rows.Scan(&i.ID, &i.RecipeID, &i.GroupName, &i.GroupOrder, &i.Name,
			&i.Amount, &i.Unit, &i.Preparation, &i.Notes, &i.ItemOrder); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *RecipeStore) instructions(ctx context.Context, recipeID int64) ([]model.Instruction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipe_id, step_number, title, content, image, video_url, estimated_time, temperature, tips
		FROM recipe_instructions WHERE recipe_id = ?
		ORDER BY step_number`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list instructions: %w", err)
	}
	defer rows.Close()

	var out []model.Instruction
	for rows.Next() {
		var i model.Instruction
		if err := rows.Scan(&i.ID, &i.RecipeID, &i.StepNumber, &i.Title, &i.Content,
			&i.Image, &i.VideoURL, &i.EstimatedTime, &i.Temperature, &i.Tips); err != nil {
			return nil, fmt.Errorf("scan instruction: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *RecipeStore) images(ctx context.Context, recipeID int64) ([]model.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipe_id, url, alt, caption, sort_order, is_featured
		FROM recipe_images WHERE recipe_id = ?
		ORDER BY sort_order`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var out []model.Image
	for rows.Next() {
		var i model.Image
		if err := rows.Scan(&i.ID, &i.RecipeID, &i.URL, &i.Alt, &i.Caption, &i.SortOrder, &i.IsFeatured); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *RecipeStore) tips(ctx context.Context, recipeID int64) ([]model.Tip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipe_id, content, category, sort_order
		FROM recipe_tips WHERE recipe_id = ?
		ORDER BY sort_order`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list tips: %w", err)
	}
	defer rows.Close()

	var out []model.Tip
	for rows.Next() {
		var t model.Tip
		if err := rows.Scan(&t.ID, &t.RecipeID, &t.Content, &t.Category, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("scan tip: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *RecipeStore) tags(ctx context.Context, recipeID int64) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixCols("t", tagCols)+`
		FROM tags t JOIN recipe_tags rt ON rt.tag_id = t.id
		WHERE rt.recipe_id = ?
		ORDER BY t.name`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list recipe tags: %w", err)
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

// ListParams filters and pages the recipe listing.
type ListParams struct {
	Page       int
	Limit      int
	Search     string
	Category   string // slug
	Cuisine    string // slug
	Difficulty string
	Author     string // username
	Published  bool
	// ViewerID scopes unpublished listings to the viewer's own recipes.
	ViewerID string
}

// Normalize clamps paging to sane bounds.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	p.Search = strings.TrimSpace(p.Search)
	p.Category = strings.TrimSpace(p.Category)
	p.Cuisine = strings.TrimSpace(p.Cuisine)
	p.Difficulty = strings.TrimSpace(p.Difficulty)
	p.Author = strings.TrimSpace(p.Author)
}

// where builds the predicate shared by the count and page queries.
func (p ListParams) where() (string, []any) {
	conds := []string{"r.is_published = ?"}
	args := []any{p.Published}

	if !p.Published {
		conds = append(conds, "r.author_id = ?")
		args = append(args, p.ViewerID)
	}
	if p.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(p.Search)) + "%"
		conds = append(conds, `(fold(r.title) LIKE ? ESCAPE '\' OR fold(r.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if p.Category != "" {
		conds = append(conds, "c.slug = ?")
		args = append(args, p.Category)
	}
	if p.Cuisine != "" {
		conds = append(conds, "cu.slug = ?")
		args = append(args, p.Cuisine)
	}
	if p.Difficulty != "" {
		conds = append(conds, "r.difficulty = ?")
		args = append(args, p.Difficulty)
	}
	if p.Author != "" {
		conds = append(conds, "u.username = ?")
		args = append(args, p.Author)
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListResult is one page of recipes plus the total matching count.
type ListResult struct {
	Items []model.RecipeSummary
	Total int
	Page  int
	Limit int
}

// List returns one page of recipes, newest first. Unpublished listings need
// a viewer and only ever show that viewer's recipes.
func (s *RecipeStore) List(ctx context.Context, p ListParams) (*ListResult, error) {
	p.Normalize()
	if !p.Published && p.ViewerID == "" {
		return nil, fmt.Errorf("list drafts: %w", apperr.ErrUnauthenticated)
	}

	where, args := p.where()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+summaryFrom+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count recipes: %w", err)
	}

	pageArgs := append(append([]any{}, args...), p.Limit, (p.Page-1)*p.Limit)
	rows, err := s.db.QueryContext(ctx,
		summarySelect+` WHERE `+where+` ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	res := &ListResult{Total: total, Page: p.Page, Limit: p.Limit}
	for rows.Next() {
		sm, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		res.Items = append(res.Items, *sm)
	}
	return res, rows.Err()
}
