package model

import "time"

const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

const (
	DietVegetarian    = "vegetarian"
	DietVegan         = "vegan"
	DietNonVegetarian = "non-vegetarian"
)

type Recipe struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Description   string     `json:"description"`
	Content       *string    `json:"content"`
	PrepTime      int        `json:"prepTime"`
	CookTime      int        `json:"cookTime"`
	TotalTime     int        `json:"totalTime"`
	Servings      int        `json:"servings"`
	Difficulty    string     `json:"difficulty"`
	DietaryType   string     `json:"dietaryType"`
	FeaturedImage *string    `json:"featuredImage"`
	VideoURL      *string    `json:"videoUrl"`
	AuthorID      string     `json:"authorId"`
	CategoryID    *int64     `json:"categoryId"`
	CuisineID     *int64     `json:"cuisineId"`
	IsPublished   bool       `json:"isPublished"`
	IsDraft       bool       `json:"isDraft"`
	Views         int        `json:"views"`
	LikesCount    int        `json:"likesCount"`
	RatingsCount  int        `json:"ratingsCount"`
	AverageRating int        `json:"averageRating"` // stored x100
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	PublishedAt   *time.Time `json:"publishedAt"`
}

type Ingredient struct {
	ID          int64   `json:"id"`
	RecipeID    int64   `json:"recipeId"`
	GroupName   *string `json:"groupName"`
	GroupOrder  int     `json:"groupOrder"`
	Name        string  `json:"name"`
	Amount      *string `json:"amount"`
	Unit        *string `json:"unit"`
	Preparation *string `json:"preparation"`
	Notes       *string `json:"notes"`
	ItemOrder   int     `json:"itemOrder"`
}

type Instruction struct {
	ID            int64   `json:"id"`
	RecipeID      int64   `json:"recipeId"`
	StepNumber    int     `json:"stepNumber"`
	Title         *string `json:"title"`
	Content       string  `json:"content"`
	Image         *string `json:"image"`
	VideoURL      *string `json:"videoUrl"`
	EstimatedTime *int    `json:"estimatedTime"`
	Temperature   *string `json:"temperature"`
	Tips          *string `json:"tips"`
}

type Image struct {
	ID         int64   `json:"id"`
	RecipeID   int64   `json:"recipeId"`
	URL        string  `json:"url"`
	Alt        *string `json:"alt"`
	Caption    *string `json:"caption"`
	SortOrder  int     `json:"sortOrder"`
	IsFeatured bool    `json:"isFeatured"`
}

type Tip struct {
	ID        int64   `json:"id"`
	RecipeID  int64   `json:"recipeId"`
	Content   string  `json:"content"`
	Category  *string `json:"category"`
	SortOrder int     `json:"sortOrder"`
}

type Tag struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuthorRef is the public slice of a user embedded in recipe views.
type AuthorRef struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

// TaxonomyRef is a category or cuisine embedded in recipe views.
type TaxonomyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// RecipeSummary is a recipe joined with its author, category and cuisine.
type RecipeSummary struct {
	Recipe
	Author   AuthorRef
	Category *TaxonomyRef
	Cuisine  *TaxonomyRef
}

// RecipeDetail is a full aggregate as read back for display.
type RecipeDetail struct {
	RecipeSummary
	Ingredients  []Ingredient
	Instructions []Instruction
	Images       []Image
	Tips         []Tip
	Tags         []Tag
}
