package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/classmate-app/homework-api/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByJoinCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "join_code", "creator_id", "created_at"}).
		AddRow("c1", "10B", "X7K2P9", "u1", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, join_code, creator_id, created_at FROM classes WHERE join_code = $1 LIMIT 1")).
		WithArgs("X7K2P9").
		WillReturnRows(rows)

	class, err := repo.FindByJoinCode(context.Background(), "X7K2P9")
	require.NoError(t, err)
	assert.Equal(t, "10B", class.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByJoinCodeRejectsMalformedRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "join_code", "creator_id", "created_at"}).
		AddRow("c1", "", "X7K2P9", "u1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, join_code, creator_id, created_at FROM classes WHERE join_code = $1 LIMIT 1")).
		WithArgs("X7K2P9").
		WillReturnRows(rows)

	_, err := repo.FindByJoinCode(context.Background(), "X7K2P9")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingFields)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO class_members").
		WithArgs("c1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	added, err := repo.AddMember(context.Background(), "c1", "u2")
	require.NoError(t, err)
	assert.True(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberDoubleSubmitIsNoOp(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO class_members").
		WithArgs("c1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddMember(context.Background(), "c1", "u2")
	require.NoError(t, err)
	assert.False(t, added, "conflicting insert must not add a second roster row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClassCommitsClassAndCreatorMembership(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO class_members").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	class := &models.Class{Name: "10B", JoinCode: "X7K2P9", CreatorID: "u1"}
	require.NoError(t, repo.Create(context.Background(), class))
	assert.NotEmpty(t, class.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
