package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/auth"
	"github.com/dukerupert/mise/internal/model"
)

// MaxUsernameProbes bounds the search for a free username during OAuth signup.
const MaxUsernameProbes = 100

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Bio, &u.ProfileImage,
		&u.Location, &u.Website, &u.Age,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, username, email, password_hash, first_name, last_name, bio, profile_image, location, website, age, created_at, updated_at`

// Create inserts a password account. A taken username is apperr.ErrConflict.
func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (*model.User, error) {
	id, err := auth.GenerateUserID()
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)`,
		id, username, passwordHash,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("username %q: %w", username, apperr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getOne(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getOne(ctx, `SELECT `+userCols+` FROM users WHERE username = ?`, username)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getOne(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, strings.ToLower(email))
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateProfile applies the non-nil fields of p. Empty strings clear a field.
func (s *UserStore) UpdateProfile(ctx context.Context, id string, p model.ProfileUpdate) (*model.User, error) {
	var sets []string
	var args []any
	set := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, nullString(*v))
		}
	}
	set("first_name", p.FirstName)
	set("last_name", p.LastName)
	set("bio", p.Bio)
	set("email", p.Email)
	set("profile_image", p.ProfileImage)
	set("location", p.Location)
	set("website", p.Website)
	if p.Age != nil {
		sets = append(sets, "age = ?")
		args = append(args, *p.Age)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, id)
		_, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email in use: %w", apperr.ErrConflict)
		}
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return u, nil
}

// Stats aggregates the user's published recipes.
func (s *UserStore) Stats(ctx context.Context, id string) (model.UserStats, error) {
	var st model.UserStats
	var avg float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(likes_count), 0),
		       COALESCE(AVG(CASE WHEN ratings_count > 0 THEN average_rating END), 0)
		FROM recipes
		WHERE author_id = ? AND is_published = 1`, id,
	).Scan(&st.RecipesCount, &st.LikesReceived, &avg)
	if err != nil {
		return st, fmt.Errorf("user stats: %w", err)
	}
	st.AverageRating = math.Round(avg) / 100
	return st, nil
}

// LinkOrCreateExternal resolves an identity-provider profile to a local user.
// A user with the same email has its name and image refreshed; otherwise a
// passwordless user is created under the first free username derived from
// the email.
func (s *UserStore) LinkOrCreateExternal(ctx context.Context, p model.ExternalProfile) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, fmt.Errorf("external profile without email: %w", apperr.ErrUpstream)
	}

	var userID string
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&userID)
		if err == nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET first_name = ?, last_name = ?, profile_image = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				nullString(p.GivenName), nullString(p.FamilyName), nullString(p.Picture), userID,
			)
			if err != nil {
				return fmt.Errorf("refresh external user: %w", err)
			}
			return nil
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("find user by email: %w", err)
		}

		username, err := freeUsername(ctx, tx, auth.UsernameBase(email))
		if err != nil {
			return err
		}
		userID, err = auth.GenerateUserID()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, username, email, first_name, last_name, profile_image) VALUES (?, ?, ?, ?, ?, ?)`,
			userID, username, email, nullString(p.GivenName), nullString(p.FamilyName), nullString(p.Picture),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("insert external user: %w", apperr.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert external user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}

// freeUsername probes base, base1, base2, ... within MaxUsernameProbes.
func freeUsername(ctx context.Context, q querier, base string) (string, error) {
	for i := 0; i < MaxUsernameProbes; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		var n int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, candidate).Scan(&n); err != nil {
			return "", fmt.Errorf("probe username: %w", err)
		}
		if n == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free username for %q: %w", base, apperr.ErrConflict)
}
