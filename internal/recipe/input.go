// Package recipe holds the write-side input of the recipe aggregate, its
// validation rules, slug derivation and the API response shape.
package recipe

import (
	"encoding/json"
	"strings"

	"github.com/dukerupert/mise/internal/model"
)

// Input is the payload accepted by recipe create and update.
type Input struct {
	Title         string            `json:"title" validate:"required,min=3,max=255"`
	Description   string            `json:"description" validate:"required,min=10,max=1000"`
	Content       string            `json:"content"`
	PrepTime      *int              `json:"prepTime" validate:"required,min=0,max=1440"`
	CookTime      *int              `json:"cookTime" validate:"required,min=0,max=1440"`
	TotalTime     *int              `json:"totalTime"` // ignored, always recomputed
	Servings      *int              `json:"servings" validate:"required,min=1,max=100"`
	Difficulty    string            `json:"difficulty" validate:"oneof=Easy Medium Hard"`
	DietaryType   string            `json:"dietaryType" validate:"omitempty,oneof=vegetarian vegan non-vegetarian"`
	CategoryID    *int64            `json:"categoryId"`
	CuisineID     *int64            `json:"cuisineId"`
	FeaturedImage string            `json:"featuredImage"`
	VideoURL      string            `json:"videoUrl"`
	Images        []ImageInput      `json:"images"`
	Ingredients   []IngredientGroup `json:"ingredients"`
	Steps         []Step            `json:"steps"`
	Tips          []TipInput        `json:"tips"`
	Tags          []string          `json:"tags"`
	IsPublished   bool              `json:"isPublished"`
}

type IngredientGroup struct {
	GroupName string           `json:"groupName"`
	Items     []IngredientItem `json:"items"`
}

type IngredientItem struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Unit        string `json:"unit"`
	Preparation string `json:"preparation"`
	Notes       string `json:"notes"`
}

type Step struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Image         string `json:"image"`
	VideoURL      string `json:"videoUrl"`
	EstimatedTime *int   `json:"estimatedTime"`
	Temperature   string `json:"temperature"`
	Tips          string `json:"tips"`
}

// ImageInput accepts either a bare URL string or an object.
type ImageInput struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

func (im *ImageInput) UnmarshalJSON(data []byte) error {
	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		*im = ImageInput{URL: url}
		return nil
	}
	type plain ImageInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*im = ImageInput(p)
	return nil
}

type TipInput struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

// Normalize trims every text field in place and drops blank images, tips
// and duplicate tags. Blank ingredient names and short steps are kept so
// validation can report them by position.
func (in *Input) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Content = strings.TrimSpace(in.Content)
	in.Difficulty = strings.TrimSpace(in.Difficulty)
	in.DietaryType = strings.TrimSpace(in.DietaryType)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	in.VideoURL = strings.TrimSpace(in.VideoURL)

	for gi := range in.Ingredients {
		g := &in.Ingredients[gi]
		g.GroupName = strings.TrimSpace(g.GroupName)
		for ii := range g.Items {
			it := &g.Items[ii]
			it.Name = strings.TrimSpace(it.Name)
			it.Amount = strings.TrimSpace(it.Amount)
			it.Unit = strings.TrimSpace(it.Unit)
			it.Preparation = strings.TrimSpace(it.Preparation)
			it.Notes = strings.TrimSpace(it.Notes)
		}
	}

	for i := range in.Steps {
		s := &in.Steps[i]
		s.Title = strings.TrimSpace(s.Title)
		s.Content = strings.TrimSpace(s.Content)
		s.Image = strings.TrimSpace(s.Image)
		s.VideoURL = strings.TrimSpace(s.VideoURL)
		s.Temperature = strings.TrimSpace(s.Temperature)
		s.Tips = strings.TrimSpace(s.Tips)
	}

	images := in.Images[:0]
	for _, im := range in.Images {
		im.URL = strings.TrimSpace(im.URL)
		if im.URL == "" {
			continue
		}
		im.Alt = strings.TrimSpace(im.Alt)
		im.Caption = strings.TrimSpace(im.Caption)
		images = append(images, im)
	}
	in.Images = images

	tips := in.Tips[:0]
	for _, tp := range in.Tips {
		tp.Content = strings.TrimSpace(tp.Content)
		if tp.Content == "" {
			continue
		}
		tp.Category = strings.TrimSpace(tp.Category)
		tips = append(tips, tp)
	}
	in.Tips = tips

	in.Tags = UniqueTags(in.Tags)
}

// UniqueTags trims names and drops blanks and exact duplicates, keeping
// first-seen order.
func UniqueTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// TotalMinutes is prep plus cook time. Call after Validate.
func (in *Input) TotalMinutes() int {
	return deref(in.PrepTime) + deref(in.CookTime)
}

// Diet returns the dietary type, defaulting to non-vegetarian.
func (in *Input) Diet() string {
	if in.DietaryType == "" {
		return model.DietNonVegetarian
	}
	return in.DietaryType
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
