package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/mise/internal/auth"
	"github.com/dukerupert/mise/internal/model"
)

const (
	SessionLifetime = 30 * 24 * time.Hour
	RenewWindow     = 15 * 24 * time.Hour
)

// SessionStore persists sessions keyed by the hash of their bearer token.
// Raw tokens are never written.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// Create stores a session for token expiring SessionLifetime from now.
func (s *SessionStore) Create(ctx context.Context, token, userID string) (*model.Session, error) {
	sess := &model.Session{
		ID:        auth.HashToken(token),
		UserID:    userID,
		ExpiresAt: time.Unix(s.now().Add(SessionLifetime).Unix(), 0).UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`,
		sess.ID, sess.UserID, sess.ExpiresAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// Validate resolves token to its session and user. Unknown and expired
// tokens return nils; expired rows are deleted. Sessions inside the renewal
// window are extended to a full lifetime.
func (s *SessionStore) Validate(ctx context.Context, token string) (*model.Session, *model.User, error) {
	id := auth.HashToken(token)
	row := s.db.QueryRowContext(ctx,
		`SELECT s.expires_at, `+prefixCols("u", userCols)+`
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.id = ?`, id,
	)

	var expiresUnix int64
	var u model.User
	err := row.Scan(&expiresUnix,
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Bio, &u.ProfileImage,
		&u.Location, &u.Website, &u.Age,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get session: %w", err)
	}

	sess := &model.Session{ID: id, UserID: u.ID, ExpiresAt: time.Unix(expiresUnix, 0).UTC()}
	now := s.now()

	if !now.Before(sess.ExpiresAt) {
		if err := s.Invalidate(ctx, id); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}

	if !now.Before(sess.ExpiresAt.Add(-RenewWindow)) {
		sess.ExpiresAt = time.Unix(now.Add(SessionLifetime).Unix(), 0).UTC()
		_, err := s.db.ExecContext(ctx,
			`UPDATE sessions SET expires_at = ? WHERE id = ?`, sess.ExpiresAt.Unix(), id,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("renew session: %w", err)
		}
	}

	return sess, &u, nil
}

// Invalidate deletes a session by id.
func (s *SessionStore) Invalidate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByUserID removes every session belonging to a user.
func (s *SessionStore) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete sessions by user: %w", err)
	}
	return nil
}

// DeleteExpired sweeps sessions past their expiry and reports how many went.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
