package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash *string   `json:"-"`
	FirstName    *string   `json:"firstName"`
	LastName     *string   `json:"lastName"`
	Bio          *string   `json:"bio"`
	ProfileImage *string   `json:"profileImage"`
	Location     *string   `json:"location,omitempty"`
	Website      *string   `json:"website,omitempty"`
	Age          *int      `json:"age,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NeedsProfileSetup reports whether the user has yet to give both name parts.
func (u *User) NeedsProfileSetup() bool {
	return u.FirstName == nil || *u.FirstName == "" || u.LastName == nil || *u.LastName == ""
}

// UserStats aggregates a user's published work.
type UserStats struct {
	RecipesCount  int     `json:"recipesCount"`
	LikesReceived int     `json:"likesReceived"`
	AverageRating float64 `json:"averageRating"`
}

// ProfileUpdate holds optional profile changes. Nil fields are left as is.
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	Bio          *string
	Email        *string
	Age          *int
	ProfileImage *string
	Location     *string
	Website      *string
}

// ExternalProfile is the identity asserted by an OAuth provider.
type ExternalProfile struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	Picture    string
}
