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

// HomeworkRepository provides database access for homework items and
// the per-user completion ledger.
type HomeworkRepository struct {
	db *sqlx.DB
}

// NewHomeworkRepository creates a new instance of HomeworkRepository.
func NewHomeworkRepository(db *sqlx.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

// Create inserts a homework item.
func (r *HomeworkRepository) Create(ctx context.Context, hw *models.Homework) error {
	if hw.ID == "" {
		hw.ID = uuid.NewString()
	}
	hw.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO homework (id, class_id, subject, description, deadline, author_id, author_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, hw.ID, hw.ClassID, hw.Subject, hw.Description, hw.Deadline, hw.AuthorID, hw.AuthorName, hw.CreatedAt); err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

// FindByID returns one homework item.
func (r *HomeworkRepository) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	const query = `SELECT id, class_id, subject, description, deadline, author_id, author_name, created_at FROM homework WHERE id = $1 LIMIT 1`
	var hw models.Homework
	if err := r.db.GetContext(ctx, &hw, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find homework by id: %w", err)
	}
	if err := hw.Validate(); err != nil {
		return nil, fmt.Errorf("find homework by id: %w", err)
	}
	return &hw, nil
}

// ListByClass returns every item of a class sorted ascending by
// deadline, decorated with the caller's completion flag and the proof
// count. This is the snapshot all derived views filter over.
func (r *HomeworkRepository) ListByClass(ctx context.Context, classID, userID string) ([]models.HomeworkDetail, error) {
	const query = `SELECT h.id, h.class_id, h.subject, h.description, h.deadline, h.author_id, h.author_name, h.created_at,
			EXISTS (SELECT 1 FROM homework_completions hc WHERE hc.homework_id = h.id AND hc.user_id = $2) AS completed,
			(SELECT COUNT(*) FROM proofs p WHERE p.homework_id = h.id) AS proof_count
		FROM homework h
		WHERE h.class_id = $1
		ORDER BY h.deadline ASC, h.created_at ASC`
	items := []models.HomeworkDetail{}
	if err := r.db.SelectContext(ctx, &items, query, classID, userID); err != nil {
		return nil, fmt.Errorf("list homework by class: %w", err)
	}
	return items, nil
}

// CompletedIDs returns the caller's completed-homework id set.
func (r *HomeworkRepository) CompletedIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT homework_id FROM homework_completions WHERE user_id = $1`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list completed ids: %w", err)
	}
	return ids, nil
}

// MarkComplete inserts the completion row and increments the point
// total in one transaction. The conditional insert carries the
// concurrency guarantee: of two racing calls exactly one inserts the
// row, and only that one increments points, so a repeat can never
// double-count. Returns ErrDuplicate when the item was already
// completed.
func (r *HomeworkRepository) MarkComplete(ctx context.Context, userID, homeworkID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark complete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO homework_completions (user_id, homework_id, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, homework_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, insert, userID, homeworkID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert completion rows: %w", err)
	}
	if rows == 0 {
		return ErrDuplicate
	}

	const bump = `UPDATE users SET points = points + 1, updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, bump, userID); err != nil {
		return fmt.Errorf("increment points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark complete: %w", err)
	}
	return nil
}

// DeadlineCounts aggregates deadlines per day inside [from, to) for the
// calendar view.
func (r *HomeworkRepository) DeadlineCounts(ctx context.Context, classID string, from, to time.Time) ([]models.DeadlineCount, error) {
	const query = `SELECT date_trunc('day', deadline) AS day, COUNT(*) AS count
		FROM homework
		WHERE class_id = $1 AND deadline >= $2 AND deadline < $3
		GROUP BY day
		ORDER BY day ASC`
	counts := []models.DeadlineCount{}
	if err := r.db.SelectContext(ctx, &counts, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("deadline counts: %w", err)
	}
	return counts, nil
}
