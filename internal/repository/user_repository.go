package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classmate-app/homework-api/internal/models"
)

// UserRepository provides database access for user accounts and auth
// session state.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, email, password_hash, display_name, points, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.PasswordHash, user.DisplayName, user.EmailVerified, user.CreatedAt, user.UpdatedAt); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, display_name, points, email_verified, last_login, created_at, updated_at FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, display_name, points, email_verified, last_login, created_at, updated_at FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// MarkEmailVerified flags the account as verified.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET email_verified = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh token session.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, token.ID, token.UserID, token.Token, token.ExpiresAt, token.CreatedAt, token.Revoked, token.IPAddress, token.UserAgent); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken loads a refresh token by its opaque value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var stored models.RefreshToken
	if err := r.db.GetContext(ctx, &stored, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &stored, nil
}

// RevokeRefreshToken marks one refresh token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes every live session for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateEmailVerification stores a pending verification token.
func (r *UserRepository) CreateEmailVerification(ctx context.Context, v *models.EmailVerification) error {
	const query = `INSERT INTO email_verifications (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, v.Token, v.UserID, v.ExpiresAt, v.CreatedAt); err != nil {
		return fmt.Errorf("create email verification: %w", err)
	}
	return nil
}

// ConsumeEmailVerification marks a verification token used and returns
// the owning user id. The conditional update makes repeat consumption a
// no-op rather than a second verification.
func (r *UserRepository) ConsumeEmailVerification(ctx context.Context, token string, now time.Time) (string, error) {
	const query = `UPDATE email_verifications SET used_at = $2 WHERE token = $1 AND used_at IS NULL AND expires_at > $2 RETURNING user_id`
	var userID string
	if err := r.db.GetContext(ctx, &userID, query, token, now); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("consume email verification: %w", err)
	}
	return userID, nil
}

// CreateAuditLog records one auth event.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, detail, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`
	if _, err := r.db.ExecContext(ctx, query, log.ID, log.UserID, log.Action, log.Detail, log.IPAddress, log.UserAgent); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ClassLeaderboard ranks every member of a class by points descending.
func (r *UserRepository) ClassLeaderboard(ctx context.Context, classID string) ([]models.LeaderboardEntry, error) {
	const query = `SELECT u.id AS user_id, u.display_name, u.points,
			(SELECT COUNT(*) FROM homework_completions hc WHERE hc.user_id = u.id) AS completed_count
		FROM users u
		JOIN class_members cm ON cm.user_id = u.id
		WHERE cm.class_id = $1
		ORDER BY u.points DESC, u.display_name ASC`
	entries := []models.LeaderboardEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, classID); err != nil {
		return nil, fmt.Errorf("class leaderboard: %w", err)
	}
	return entries, nil
}

// GlobalLeaderboard ranks the top scorers across all classes.
func (r *UserRepository) GlobalLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	const query = `SELECT u.id AS user_id, u.display_name, u.points,
			(SELECT COUNT(*) FROM homework_completions hc WHERE hc.user_id = u.id) AS completed_count
		FROM users u
		ORDER BY u.points DESC, u.display_name ASC
		LIMIT $1`
	entries := []models.LeaderboardEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("global leaderboard: %w", err)
	}
	return entries, nil
}
