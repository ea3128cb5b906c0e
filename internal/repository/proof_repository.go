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

// ProofRepository provides database access for proofs, their votes and
// reports.
type ProofRepository struct {
	db *sqlx.DB
}

// NewProofRepository creates a new instance of ProofRepository.
func NewProofRepository(db *sqlx.DB) *ProofRepository {
	return &ProofRepository{db: db}
}

// Create inserts a proof. The UNIQUE (homework_id, user_id) constraint
// enforces one proof per user per item; a conflicting insert returns
// ErrDuplicate without touching the existing row.
func (r *ProofRepository) Create(ctx context.Context, proof *models.Proof) error {
	if proof.ID == "" {
		proof.ID = uuid.NewString()
	}
	proof.UploadedAt = time.Now().UTC()
	const query = `INSERT INTO proofs (id, homework_id, user_id, user_name, image_path, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (homework_id, user_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, proof.ID, proof.HomeworkID, proof.UserID, proof.UserName, proof.ImagePath, proof.UploadedAt)
	if err != nil {
		return fmt.Errorf("create proof: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create proof rows: %w", err)
	}
	if rows == 0 {
		return ErrDuplicate
	}
	return nil
}

// FindByHomeworkAndUser returns one user's proof for one item.
func (r *ProofRepository) FindByHomeworkAndUser(ctx context.Context, homeworkID, userID string) (*models.Proof, error) {
	const query = `SELECT id, homework_id, user_id, user_name, image_path, uploaded_at FROM proofs WHERE homework_id = $1 AND user_id = $2 LIMIT 1`
	var proof models.Proof
	if err := r.db.GetContext(ctx, &proof, query, homeworkID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find proof: %w", err)
	}
	if err := proof.Validate(); err != nil {
		return nil, fmt.Errorf("find proof: %w", err)
	}
	return &proof, nil
}

// Exists reports whether the (homework, user) pair already has a proof.
func (r *ProofRepository) Exists(ctx context.Context, homeworkID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM proofs WHERE homework_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, homeworkID, userID); err != nil {
		return false, fmt.Errorf("check proof exists: %w", err)
	}
	return exists, nil
}

// ListByHomework returns all proofs for an item with vote tallies.
func (r *ProofRepository) ListByHomework(ctx context.Context, homeworkID string) ([]models.ProofDetail, error) {
	const query = `SELECT p.id, p.homework_id, p.user_id, p.user_name, p.image_path, p.uploaded_at,
			COUNT(*) FILTER (WHERE v.is_valid) AS valid_votes,
			COUNT(*) FILTER (WHERE NOT v.is_valid) AS invalid_votes
		FROM proofs p
		LEFT JOIN proof_votes v ON v.proof_id = p.id
		WHERE p.homework_id = $1
		GROUP BY p.id
		ORDER BY p.uploaded_at ASC`
	proofs := []models.ProofDetail{}
	if err := r.db.SelectContext(ctx, &proofs, query, homeworkID); err != nil {
		return nil, fmt.Errorf("list proofs: %w", err)
	}
	return proofs, nil
}

// Delete removes the caller's own proof and returns its stored image
// path so the file can be cleaned up.
func (r *ProofRepository) Delete(ctx context.Context, homeworkID, userID string) (string, error) {
	const query = `DELETE FROM proofs WHERE homework_id = $1 AND user_id = $2 RETURNING image_path`
	var imagePath string
	if err := r.db.GetContext(ctx, &imagePath, query, homeworkID, userID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("delete proof: %w", err)
	}
	return imagePath, nil
}

// Vote records one voter's judgment and applies the removal threshold
// inside a single transaction. The proof row is locked first so two
// racing votes serialize: each voter's insert lands exactly once (the
// primary key rejects repeats), the invalid count is read under the
// lock, and at the threshold the proof is deleted. The loser of the
// race against a deleting vote observes sql.ErrNoRows. The removed
// proof's image path is returned alongside the outcome for cleanup.
func (r *ProofRepository) Vote(ctx context.Context, homeworkID, targetUserID, voterID string, isValid bool) (models.VoteOutcome, string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("begin vote: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const lock = `SELECT id, image_path FROM proofs WHERE homework_id = $1 AND user_id = $2 FOR UPDATE`
	var proof struct {
		ID        string `db:"id"`
		ImagePath string `db:"image_path"`
	}
	if err := tx.GetContext(ctx, &proof, lock, homeworkID, targetUserID); err != nil {
		if err == sql.ErrNoRows {
			return "", "", err
		}
		return "", "", fmt.Errorf("lock proof: %w", err)
	}

	const insert = `INSERT INTO proof_votes (proof_id, voter_id, is_valid, voted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (proof_id, voter_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, insert, proof.ID, voterID, isValid, time.Now().UTC())
	if err != nil {
		return "", "", fmt.Errorf("insert vote: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return "", "", fmt.Errorf("insert vote rows: %w", err)
	}
	if rows == 0 {
		return "", "", ErrDuplicate
	}

	const countInvalid = `SELECT COUNT(*) FROM proof_votes WHERE proof_id = $1 AND is_valid = FALSE`
	var invalid int
	if err := tx.GetContext(ctx, &invalid, countInvalid, proof.ID); err != nil {
		return "", "", fmt.Errorf("count invalid votes: %w", err)
	}

	outcome := models.VoteRecorded
	imagePath := ""
	if invalid >= models.InvalidVoteThreshold {
		const remove = `DELETE FROM proofs WHERE id = $1`
		if _, err := tx.ExecContext(ctx, remove, proof.ID); err != nil {
			return "", "", fmt.Errorf("remove proof: %w", err)
		}
		outcome = models.VoteProofRemoved
		imagePath = proof.ImagePath
	}

	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("commit vote: %w", err)
	}
	return outcome, imagePath, nil
}

// CreateReport appends a pending report.
func (r *ProofRepository) CreateReport(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	report.Status = models.ReportStatusPending
	report.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO reports (id, homework_id, reported_user_id, reporter_id, reporter_name, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, report.ID, report.HomeworkID, report.ReportedUserID, report.ReporterID, report.ReporterName, report.Reason, report.Status, report.CreatedAt); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}
