package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classmate-app/homework-api/internal/models"
)

func TestVoteRecordsBelowThreshold(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProofRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, image_path FROM proofs").
		WithArgs("hw1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "image_path"}).AddRow("p1", "proofs/p1.jpg"))
	mock.ExpectExec("INSERT INTO proof_votes").
		WithArgs("p1", "u3", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	outcome, imagePath, err := repo.Vote(context.Background(), "hw1", "u2", "u3", false)
	require.NoError(t, err)
	assert.Equal(t, models.VoteRecorded, outcome)
	assert.Empty(t, imagePath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRemovesProofAtThreshold(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProofRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, image_path FROM proofs").
		WithArgs("hw1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "image_path"}).AddRow("p1", "proofs/p1.jpg"))
	mock.ExpectExec("INSERT INTO proof_votes").
		WithArgs("p1", "u3", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(models.InvalidVoteThreshold))
	mock.ExpectExec("DELETE FROM proofs").
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, imagePath, err := repo.Vote(context.Background(), "hw1", "u2", "u3", false)
	require.NoError(t, err)
	assert.Equal(t, models.VoteProofRemoved, outcome)
	assert.Equal(t, "proofs/p1.jpg", imagePath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepeatBySameVoterRejected(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProofRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, image_path FROM proofs").
		WithArgs("hw1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "image_path"}).AddRow("p1", "proofs/p1.jpg"))
	mock.ExpectExec("INSERT INTO proof_votes").
		WithArgs("p1", "u3", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := repo.Vote(context.Background(), "hw1", "u2", "u3", true)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteOnRemovedProof(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProofRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, image_path FROM proofs").
		WithArgs("hw1", "u2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.Vote(context.Background(), "hw1", "u2", "u3", false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProofSecondUploadRejected(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProofRepository(db)

	mock.ExpectExec("INSERT INTO proofs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	proof := &models.Proof{HomeworkID: "hw1", UserID: "u2", UserName: "Ben", ImagePath: "proofs/p2.jpg", UploadedAt: time.Now()}
	err := repo.Create(context.Background(), proof)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
