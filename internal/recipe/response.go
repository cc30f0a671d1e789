package recipe

import (
	"fmt"
	"time"

	"github.com/dukerupert/mise/internal/model"
)

type Author struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type Stats struct {
	Views         int     `json:"views"`
	Likes         int     `json:"likes"`
	Ratings       int     `json:"ratings"`
	AverageRating float64 `json:"averageRating"`
}

type URLs struct {
	View string `json:"view"`
	Edit string `json:"edit"`
	API  string `json:"api"`
}

// Response is the summary returned by create, update and list.
type Response struct {
	ID            int64              `json:"id"`
	Title         string             `json:"title"`
	Slug          string             `json:"slug"`
	Description   string             `json:"description"`
	PrepTime      int                `json:"prepTime"`
	CookTime      int                `json:"cookTime"`
	TotalTime     int                `json:"totalTime"`
	Servings      int                `json:"servings"`
	Difficulty    string             `json:"difficulty"`
	DietaryType   string             `json:"dietaryType"`
	FeaturedImage *string            `json:"featuredImage"`
	IsPublished   bool               `json:"isPublished"`
	CreatedAt     time.Time          `json:"createdAt"`
	PublishedAt   *time.Time         `json:"publishedAt,omitempty"`
	Author        Author             `json:"author"`
	Category      *model.TaxonomyRef `json:"category"`
	Cuisine       *model.TaxonomyRef `json:"cuisine"`
	Stats         Stats              `json:"stats"`
	URLs          URLs               `json:"urls"`
}

// NewResponse shapes a joined recipe row for the API.
func NewResponse(s *model.RecipeSummary) Response {
	return Response{
		ID:            s.ID,
		Title:         s.Title,
		Slug:          s.Slug,
		Description:   s.Description,
		PrepTime:      s.PrepTime,
		CookTime:      s.CookTime,
		TotalTime:     s.TotalTime,
		Servings:      s.Servings,
		Difficulty:    s.Difficulty,
		DietaryType:   s.DietaryType,
		FeaturedImage: s.FeaturedImage,
		IsPublished:   s.IsPublished,
		CreatedAt:     s.CreatedAt,
		PublishedAt:   s.PublishedAt,
		Author: Author{
			ID:        s.Author.ID,
			Username:  s.Author.Username,
			FirstName: s.Author.FirstName,
			LastName:  s.Author.LastName,
		},
		Category: s.Category,
		Cuisine:  s.Cuisine,
		Stats: Stats{
			Views:         s.Views,
			Likes:         s.LikesCount,
			Ratings:       s.RatingsCount,
			AverageRating: float64(s.AverageRating) / 100,
		},
		URLs: URLs{
			View: "/recipes/" + s.Slug,
			Edit: "/recipes/" + s.Slug + "/edit",
			API:  fmt.Sprintf("/api/recipes/%d", s.ID),
		},
	}
}

// DetailResponse is the full aggregate returned by the slug lookup.
type DetailResponse struct {
	Response
	Content      *string             `json:"content"`
	VideoURL     *string             `json:"videoUrl"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	AuthorImage  *string             `json:"authorProfileImage"`
	Ingredients  []model.Ingredient  `json:"ingredients"`
	Instructions []model.Instruction `json:"instructions"`
	Images       []model.Image       `json:"images"`
	Tips         []model.Tip         `json:"tips"`
	Tags         []model.Tag         `json:"tags"`
	IsOwner      bool                `json:"isOwner"`
}

// NewDetailResponse shapes a recipe aggregate for viewerID, which may be "".
func NewDetailResponse(d *model.RecipeDetail, viewerID string) DetailResponse {
	return DetailResponse{
		Response:     NewResponse(&d.RecipeSummary),
		Content:      d.Content,
		VideoURL:     d.VideoURL,
		UpdatedAt:    d.UpdatedAt,
		AuthorImage:  d.Author.ProfileImage,
		Ingredients:  nonNil(d.Ingredients),
		Instructions: nonNil(d.Instructions),
		Images:       nonNil(d.Images),
		Tips:         nonNil(d.Tips),
		Tags:         nonNil(d.Tags),
		IsOwner:      viewerID != "" && viewerID == d.AuthorID,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
