package watchlist

import (
	"time"
)

// User is an account. The credential hash is written at signup and
// verified by the auth service; profile fields are each independently
// settable and clearable.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        *string   `json:"email,omitempty"`
	FirstName    *string   `json:"firstName,omitempty"`
	LastName     *string   `json:"lastName,omitempty"`
	CreatedAt    time.Time `json:"created"`
}

// Entry is one per-user watchlist association. The show id references
// the external catalog id; uniqueness is enforced per user.
type Entry struct {
	ShowID     int       `json:"showId"`
	HasWatched bool      `json:"hasWatched"`
	Favorite   bool      `json:"favorite"`
	Rating     string    `json:"rating,omitempty"`
	AddedAt    time.Time `json:"addedAt"`
}

// ProfileUpdate carries the profile fields to change. A nil field is
// left untouched; a pointer to the empty string clears the field.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}
