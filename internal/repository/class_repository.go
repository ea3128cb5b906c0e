package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classmate-app/homework-api/internal/models"
)

// ClassRepository provides database access for classes and the
// membership relation.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// Create inserts the class and the creator membership in one
// transaction. Join codes carry a UNIQUE constraint; a collision
// surfaces as ErrDuplicate so the caller can regenerate.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	class.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create class: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertClass = `INSERT INTO classes (id, name, join_code, creator_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insertClass, class.ID, class.Name, class.JoinCode, class.CreatorID, class.CreatedAt); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("insert class: %w", err)
	}

	const insertMember = `INSERT INTO class_members (class_id, user_id, joined_at) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertMember, class.ID, class.CreatorID, class.CreatedAt); err != nil {
		return fmt.Errorf("insert creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create class: %w", err)
	}
	return nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, join_code, creator_id, created_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	if err := class.Validate(); err != nil {
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// FindByJoinCode returns a class by its join code (exact match; callers
// normalize case before lookup).
func (r *ClassRepository) FindByJoinCode(ctx context.Context, code string) (*models.Class, error) {
	const query = `SELECT id, name, join_code, creator_id, created_at FROM classes WHERE join_code = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by join code: %w", err)
	}
	if err := class.Validate(); err != nil {
		return nil, fmt.Errorf("find class by join code: %w", err)
	}
	return &class, nil
}

// FindByMember returns the class a user belongs to, if any. The design
// allows one active class per user; the oldest membership wins if data
// ever holds more.
func (r *ClassRepository) FindByMember(ctx context.Context, userID string) (*models.Class, error) {
	const query = `SELECT c.id, c.name, c.join_code, c.creator_id, c.created_at
		FROM classes c
		JOIN class_members cm ON cm.class_id = c.id
		WHERE cm.user_id = $1
		ORDER BY cm.joined_at ASC
		LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by member: %w", err)
	}
	if err := class.Validate(); err != nil {
		return nil, fmt.Errorf("find class by member: %w", err)
	}
	return &class, nil
}

// AddMember inserts a membership row. The conditional insert makes the
// join idempotent under double submission: added reports whether this
// call created the row.
func (r *ClassRepository) AddMember(ctx context.Context, classID, userID string) (bool, error) {
	const query = `INSERT INTO class_members (class_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (class_id, user_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, classID, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add class member: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add class member rows: %w", err)
	}
	return rows > 0, nil
}

// IsMember reports whether the user belongs to the class.
func (r *ClassRepository) IsMember(ctx context.Context, classID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM class_members WHERE class_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, classID, userID); err != nil {
		return false, fmt.Errorf("check class membership: %w", err)
	}
	return exists, nil
}

// Members returns the roster with display data, ordered by join time.
func (r *ClassRepository) Members(ctx context.Context, classID string) ([]models.ClassMemberDetail, error) {
	const query = `SELECT cm.class_id, cm.user_id, cm.joined_at, u.display_name, u.points
		FROM class_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.class_id = $1
		ORDER BY cm.joined_at ASC`
	members := []models.ClassMemberDetail{}
	if err := r.db.SelectContext(ctx, &members, query, classID); err != nil {
		return nil, fmt.Errorf("list class members: %w", err)
	}
	return members, nil
}

// MemberIDs returns just the member user ids for fan-out.
func (r *ClassRepository) MemberIDs(ctx context.Context, classID string) ([]string, error) {
	const query = `SELECT user_id FROM class_members WHERE class_id = $1`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("list class member ids: %w", err)
	}
	return ids, nil
}

// MemberCount returns the roster size.
func (r *ClassRepository) MemberCount(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM class_members WHERE class_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID); err != nil {
		return 0, fmt.Errorf("count class members: %w", err)
	}
	return count, nil
}
