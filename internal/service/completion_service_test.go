package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/models"
	"github.com/classmate-app/homework-api/internal/repository"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
)

type mockCompletionRepo struct {
	homework  map[string]*models.Homework
	completed map[string]bool
}

func (m *mockCompletionRepo) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	if hw, ok := m.homework[id]; ok {
		cp := *hw
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCompletionRepo) MarkComplete(ctx context.Context, userID, homeworkID string) error {
	key := userID + "/" + homeworkID
	if m.completed[key] {
		return repository.ErrDuplicate
	}
	if m.completed == nil {
		m.completed = map[string]bool{}
	}
	m.completed[key] = true
	return nil
}

func (m *mockCompletionRepo) CompletedIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	for key := range m.completed {
		if len(key) > len(userID) && key[:len(userID)] == userID {
			ids = append(ids, key[len(userID)+1:])
		}
	}
	return ids, nil
}

type staticProofs struct {
	attached map[string]bool
}

func (m *staticProofs) Exists(ctx context.Context, homeworkID, userID string) (bool, error) {
	return m.attached[homeworkID+"/"+userID], nil
}

type recordingRanking struct {
	published []string
}

func (m *recordingRanking) PublishClass(ctx context.Context, classID string) {
	m.published = append(m.published, classID)
}

func completionFixture() (*CompletionService, *mockCompletionRepo, *staticProofs, *recordingRanking) {
	repo := &mockCompletionRepo{
		homework: map[string]*models.Homework{
			"hw1": {ID: "hw1", ClassID: "c1", Subject: "Math", Deadline: time.Now().Add(time.Hour)},
		},
		completed: map[string]bool{},
	}
	proofs := &staticProofs{attached: map[string]bool{}}
	ranking := &recordingRanking{}
	membership := &staticMembership{members: map[string]bool{"c1/u1": true}}
	svc := NewCompletionService(repo, proofs, membership, ranking, zap.NewNop())
	return svc, repo, proofs, ranking
}

func TestMarkCompleteRequiresProof(t *testing.T) {
	svc, repo, _, ranking := completionFixture()

	err := svc.MarkComplete(context.Background(), "hw1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingProof.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.completed)
	assert.Empty(t, ranking.published)
}

func TestMarkCompleteAwardsPointOnce(t *testing.T) {
	svc, _, proofs, ranking := completionFixture()
	proofs.attached["hw1/u1"] = true

	require.NoError(t, svc.MarkComplete(context.Background(), "hw1", "u1"))
	assert.Equal(t, []string{"c1"}, ranking.published)

	err := svc.MarkComplete(context.Background(), "hw1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyCompleted.Code, appErrors.FromError(err).Code)
	assert.Len(t, ranking.published, 1, "a rejected repeat must not republish the ranking")
}

func TestMarkCompleteUnknownHomework(t *testing.T) {
	svc, _, _, _ := completionFixture()

	err := svc.MarkComplete(context.Background(), "missing", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMarkCompleteRequiresMembership(t *testing.T) {
	svc, _, proofs, _ := completionFixture()
	proofs.attached["hw1/outsider"] = true

	err := svc.MarkComplete(context.Background(), "hw1", "outsider")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotMember.Code, appErrors.FromError(err).Code)
}

func TestCompletedIDs(t *testing.T) {
	svc, _, proofs, _ := completionFixture()
	proofs.attached["hw1/u1"] = true
	require.NoError(t, svc.MarkComplete(context.Background(), "hw1", "u1"))

	ids, err := svc.CompletedIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hw1"}, ids)
}
