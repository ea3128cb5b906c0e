package models

import "time"

// User represents an application user stored in the users table. Points
// and the completed-homework set live on the user so the leaderboard and
// the derived homework views can be built from a single read.
type User struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	DisplayName   string     `db:"display_name" json:"display_name"`
	Points        int        `db:"points" json:"points"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// UserInfo is the public projection embedded in auth responses.
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	Points        int    `json:"points"`
	EmailVerified bool   `json:"email_verified"`
}

// Validate reports whether a user row read from the backend carries the
// fields the core relies on.
func (u *User) Validate() error {
	if u.ID == "" || u.Email == "" {
		return ErrMissingFields
	}
	if u.Points < 0 {
		return ErrMissingFields
	}
	return nil
}

// LeaderboardEntry is a ranked projection of a user for the scoreboard.
type LeaderboardEntry struct {
	UserID         string `db:"user_id" json:"user_id"`
	DisplayName    string `db:"display_name" json:"display_name"`
	Points         int    `db:"points" json:"points"`
	CompletedCount int    `db:"completed_count" json:"completed_count"`
	Rank           int    `json:"rank"`
}
