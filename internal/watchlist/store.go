package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrEntryNotFound = errors.New("watchlist entry not found")
)

// Store provides CRUD for user accounts and their watchlist entries.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates a new watchlist store.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "watchlist").Logger(),
	}
}

// CreateUser creates an account with the given credential hash.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Str("userId", user.ID).Str("username", username).Msg("Created user")
	return user, nil
}

// GetUserByID retrieves an account by id.
func (s *Store) GetUserByID(ctx context.Context, userID string) (*User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, email, first_name, last_name, created_at FROM users WHERE id = ?`, userID)
}

// GetUserByUsername retrieves an account by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, email, first_name, last_name, created_at FROM users WHERE username = ?`, username)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	var email, firstName, lastName sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &email, &firstName, &lastName, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if email.Valid {
		user.Email = &email.String
	}
	if firstName.Valid {
		user.FirstName = &firstName.String
	}
	if lastName.Valid {
		user.LastName = &lastName.String
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		user.CreatedAt = t
	}

	return &user, nil
}

// UpdateProfile applies a partial profile update and returns the
// updated account. Nil fields are untouched; empty strings clear.
func (s *Store) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*User, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			first_name = CASE WHEN ?1 THEN ?2 ELSE first_name END,
			last_name  = CASE WHEN ?3 THEN ?4 ELSE last_name END,
			email      = CASE WHEN ?5 THEN ?6 ELSE email END
		WHERE id = ?7`,
		update.FirstName != nil, clearable(update.FirstName),
		update.LastName != nil, clearable(update.LastName),
		update.Email != nil, clearable(update.Email),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUserByID(ctx, userID)
}

// clearable maps a set-to-empty pointer to SQL NULL so cleared fields
// are removed rather than stored as empty strings.
func clearable(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

// AddEntry appends a watchlist entry for the user. Adding a show that
// is already on the list is a no-op success, enforced by a conditional
// insert on the (user, show) key.
func (s *Store) AddEntry(ctx context.Context, userID string, showID int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_shows (user_id, show_id, has_watched, favorite, added_at)
		VALUES (?, ?, 0, 0, ?)
		ON CONFLICT (user_id, show_id) DO NOTHING`,
		userID, showID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	return nil
}

// RemoveEntry removes the matching entry; removing an absent entry is
// a no-op.
func (s *Store) RemoveEntry(ctx context.Context, userID string, showID int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM user_shows WHERE user_id = ? AND show_id = ?`,
		userID, showID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	return nil
}

// SetWatched marks the entry watched or unwatched. Returns
// ErrEntryNotFound when no entry matched.
func (s *Store) SetWatched(ctx context.Context, userID string, showID int, watched bool) error {
	return s.setFlag(ctx, `UPDATE user_shows SET has_watched = ? WHERE user_id = ? AND show_id = ?`, userID, showID, watched)
}

// SetFavorite marks the entry as a favorite or not. Returns
// ErrEntryNotFound when no entry matched.
func (s *Store) SetFavorite(ctx context.Context, userID string, showID int, favorite bool) error {
	return s.setFlag(ctx, `UPDATE user_shows SET favorite = ? WHERE user_id = ? AND show_id = ?`, userID, showID, favorite)
}

func (s *Store) setFlag(ctx context.Context, query, userID string, showID int, value bool) error {
	result, err := s.db.ExecContext(ctx, query, value, userID, showID)
	if err != nil {
		return fmt.Errorf("failed to update watchlist entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// SetRating stores the user's rating for the entry. An empty rating
// clears it.
func (s *Store) SetRating(ctx context.Context, userID string, showID int, rating string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_shows SET rating = ? WHERE user_id = ? AND show_id = ?`,
		sql.NullString{String: rating, Valid: rating != ""}, userID, showID,
	)
	if err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Entries returns the user's watchlist entries.
func (s *Store) Entries(ctx context.Context, userID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT show_id, has_watched, favorite, rating, added_at
		FROM user_shows WHERE user_id = ?
		ORDER BY added_at, show_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		var entry Entry
		var rating sql.NullString
		var addedAt string
		if err := rows.Scan(&entry.ShowID, &entry.HasWatched, &entry.Favorite, &rating, &addedAt); err != nil {
			return nil, err
		}
		entry.Rating = rating.String
		if t, err := time.Parse(time.RFC3339, addedAt); err == nil {
			entry.AddedAt = t
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// ListOtherOwners returns the ids of every other user whose watchlist
// references the show. Used by the mirror garbage-collection check.
func (s *Store) ListOtherOwners(ctx context.Context, showID int, excludingUserID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM user_shows WHERE show_id = ? AND user_id != ?`,
		showID, excludingUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list show owners: %w", err)
	}
	defer rows.Close()

	owners := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		owners = append(owners, userID)
	}
	return owners, rows.Err()
}

// isUniqueViolation reports whether the error is a sqlite unique
// constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
