package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/mise/internal/database"
	"github.com/dukerupert/mise/internal/model"
	"github.com/dukerupert/mise/internal/recipe"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sql.DB, username string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(context.Background(), username, "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func intPtr(n int) *int { return &n }

func recipeInput(title string, tags ...string) *recipe.Input {
	return &recipe.Input{
		Title:       title,
		Description: "A dependable weeknight recipe.",
		PrepTime:    intPtr(10),
		CookTime:    intPtr(20),
		Servings:    intPtr(4),
		Difficulty:  "Easy",
		Ingredients: []recipe.IngredientGroup{
			{GroupName: "Soup", Items: []recipe.IngredientItem{{Name: "tomatoes", Amount: "6"}, {Name: "stock", Amount: "1", Unit: "l"}}},
			{GroupName: "Garnish", Items: []recipe.IngredientItem{{Name: "basil"}}},
		},
		Steps: []recipe.Step{
			{Content: "Chop the tomatoes."},
			{Content: "Simmer with the stock for 20 minutes."},
		},
		Tags:        tags,
		IsPublished: true,
	}
}

func tagUsage(t *testing.T, db *sql.DB, name string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT usage_count FROM tags WHERE name = ?`, name).Scan(&n); err != nil {
		t.Fatalf("tag %s usage: %v", name, err)
	}
	return n
}

func tagSlug(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	var slug string
	if err := db.QueryRow(`SELECT slug FROM tags WHERE name = ?`, name).Scan(&slug); err != nil {
		t.Fatalf("tag %s slug: %v", name, err)
	}
	return slug
}

// assertTagInvariant checks usage_count equals the number of links for every tag.
func assertTagInvariant(t *testing.T, db *sql.DB) {
	t.Helper()
	rows, err := db.Query(`
		SELECT t.name, t.usage_count, (SELECT COUNT(*) FROM recipe_tags rt WHERE rt.tag_id = t.id)
		FROM tags t`)
	if err != nil {
		t.Fatalf("query tags: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var usage, links int
		if err := rows.Scan(&name, &usage, &links); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if usage != links {
			t.Errorf("tag %q usage_count = %d, links = %d", name, usage, links)
		}
	}
}
