package recipe

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/mise/internal/apperr"
)

const (
	maxTagLength      = 50
	minStepLength     = 5
	maxTipCategoryLen = 50
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages maps a struct field and failing tag to a user-facing rule.
// An empty tag key is the fallback for every tag on that field.
var fieldMessages = map[string]map[string]string{
	"Title": {
		"required": "Title is required",
		"min":      "Title must be at least 3 characters",
		"max":      "Title cannot exceed 255 characters",
	},
	"Description": {
		"required": "Description is required",
		"min":      "Description must be at least 10 characters",
		"max":      "Description cannot exceed 1000 characters",
	},
	"PrepTime":    {"": "Prep time must be between 0 and 1440 minutes"},
	"CookTime":    {"": "Cook time must be between 0 and 1440 minutes"},
	"Servings":    {"": "Servings must be between 1 and 100"},
	"Difficulty":  {"": "Difficulty must be Easy, Medium, or Hard"},
	"DietaryType": {"": "Dietary type must be vegetarian, vegan, or non-vegetarian"},
}

// Validate checks a normalized Input and returns an *apperr.ValidationError
// listing every violated rule, or nil.
func Validate(in *Input) error {
	var problems []string

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate recipe: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, messageFor(fe))
		}
	}

	problems = append(problems, ingredientProblems(in.Ingredients)...)
	problems = append(problems, stepProblems(in.Steps)...)

	for _, name := range in.Tags {
		if utf8.RuneCountInString(name) > maxTagLength {
			problems = append(problems, fmt.Sprintf("Tag %q cannot exceed %d characters", name, maxTagLength))
		}
	}
	for i, tp := range in.Tips {
		if utf8.RuneCountInString(tp.Category) > maxTipCategoryLen {
			problems = append(problems, fmt.Sprintf("Tip %d category cannot exceed %d characters", i+1, maxTipCategoryLen))
		}
	}

	if len(problems) > 0 {
		return apperr.Invalid(problems...)
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	msgs, ok := fieldMessages[fe.StructField()]
	if !ok {
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
	if m, ok := msgs[fe.Tag()]; ok {
		return m
	}
	if m, ok := msgs[""]; ok {
		return m
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func ingredientProblems(groups []IngredientGroup) []string {
	if len(groups) == 0 {
		return []string{"At least one ingredient group is required"}
	}
	var problems []string
	valid := false
	for gi, g := range groups {
		if len(g.Items) == 0 {
			problems = append(problems, fmt.Sprintf("Ingredient group %d must have items", gi+1))
			continue
		}
		for ii, it := range g.Items {
			if it.Name == "" {
				problems = append(problems, fmt.Sprintf("Ingredient %d.%d name is required", gi+1, ii+1))
				continue
			}
			valid = true
		}
	}
	if !valid {
		problems = append(problems, "At least one valid ingredient is required")
	}
	return problems
}

func stepProblems(steps []Step) []string {
	if len(steps) == 0 {
		return []string{"At least one instruction step is required"}
	}
	var problems []string
	valid := false
	for i, s := range steps {
		if utf8.RuneCountInString(s.Content) < minStepLength {
			problems = append(problems, fmt.Sprintf("Step %d content must be at least %d characters", i+1, minStepLength))
			continue
		}
		valid = true
	}
	if !valid {
		problems = append(problems, "At least one valid instruction step is required")
	}
	return problems
}
