package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/models"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
)

type mockLeaderboardRepo struct {
	classEntries  []models.LeaderboardEntry
	globalEntries []models.LeaderboardEntry
	globalLimit   int
}

func (m *mockLeaderboardRepo) ClassLeaderboard(ctx context.Context, classID string) ([]models.LeaderboardEntry, error) {
	return append([]models.LeaderboardEntry{}, m.classEntries...), nil
}

func (m *mockLeaderboardRepo) GlobalLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.globalLimit = limit
	return append([]models.LeaderboardEntry{}, m.globalEntries...), nil
}

func leaderboardFixture() (*LeaderboardService, *mockLeaderboardRepo) {
	repo := &mockLeaderboardRepo{
		classEntries: []models.LeaderboardEntry{
			{UserID: "u2", DisplayName: "Ben", Points: 12, CompletedCount: 12},
			{UserID: "u1", DisplayName: "Ana", Points: 7, CompletedCount: 7},
		},
	}
	membership := &staticMembership{members: map[string]bool{"c1/u1": true}}
	return NewLeaderboardService(repo, membership, nil, zap.NewNop()), repo
}

func TestClassLeaderboardAssignsRanks(t *testing.T) {
	svc, _ := leaderboardFixture()

	entries, err := svc.Class(context.Background(), "c1", "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Ben", entries[0].DisplayName)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestClassLeaderboardRequiresMembership(t *testing.T) {
	svc, _ := leaderboardFixture()

	_, err := svc.Class(context.Background(), "c1", "outsider")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotMember.Code, appErrors.FromError(err).Code)
}

func TestGlobalLeaderboardCapped(t *testing.T) {
	svc, repo := leaderboardFixture()
	repo.globalEntries = repo.classEntries

	entries, err := svc.Global(context.Background())
	require.NoError(t, err)
	assert.Equal(t, GlobalLeaderboardLimit, repo.globalLimit)
	assert.Equal(t, 1, entries[0].Rank)
}

func TestExportClassCSV(t *testing.T) {
	svc, _ := leaderboardFixture()

	out, contentType, err := svc.ExportClass(context.Background(), "c1", "u1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(out)
	assert.True(t, strings.HasPrefix(body, "Rank,Name,Points,Completed"))
	assert.Contains(t, body, "1,Ben,12,12")
	assert.Contains(t, body, "2,Ana,7,7")
}

func TestExportClassPDF(t *testing.T) {
	svc, _ := leaderboardFixture()

	out, contentType, err := svc.ExportClass(context.Background(), "c1", "u1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestExportClassUnknownFormat(t *testing.T) {
	svc, _ := leaderboardFixture()

	_, _, err := svc.ExportClass(context.Background(), "c1", "u1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
