package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/mise/internal/apperr"
)

func TestTaxonomyListActive(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCategoryStore(db)
	ctx := context.Background()
	u := createUser(t, db, "chef_ann")

	cats, err := cs.ListActive(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 6 {
		t.Fatalf("categories = %d, want 6", len(cats))
	}
	if cats[0].Slug != "breakfast" {
		t.Errorf("first = %q, want breakfast", cats[0].Slug)
	}

	in := recipeInput("Pancakes")
	in.CategoryID = &cats[0].ID
	NewRecipeStore(db).Create(ctx, in, u.ID)

	cs.SetActive(ctx, cats[1].ID, false)

	cats, _ = cs.ListActive(ctx)
	if len(cats) != 5 {
		t.Errorf("categories = %d, want 5", len(cats))
	}
	if cats[0].RecipeCount != 1 {
		t.Errorf("recipe count = %d, want 1", cats[0].RecipeCount)
	}
}

func TestTaxonomyCreate(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCuisineStore(db)
	ctx := context.Background()

	c, err := cs.Create(ctx, TaxonomyInput{Name: "Thai", Slug: "thai", SortOrder: 7, IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 || c.Slug != "thai" || !c.IsActive {
		t.Errorf("cuisine = %+v", c)
	}

	_, err = cs.Create(ctx, TaxonomyInput{Name: "Thai", Slug: "thai-2", IsActive: true})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestTagPopular(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRecipeStore(db)
	ctx := context.Background()
	u := createUser(t, db, "chef_ann")

	rs.Create(ctx, recipeInput("Recipe A", "Spicy", "Vegan"), u.ID)
	rs.Create(ctx, recipeInput("Recipe B", "Spicy"), u.ID)

	tags, err := NewTagStore(db).Popular(ctx, 10)
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("tags = %d, want 2", len(tags))
	}
	if tags[0].Name != "Spicy" || tags[0].UsageCount != 2 {
		t.Errorf("top tag = %+v", tags[0])
	}
}
