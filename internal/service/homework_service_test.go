package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/models"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
)

type mockHomeworkRepo struct {
	items   map[string]*models.Homework
	lists   map[string][]models.HomeworkDetail
	counts  []models.DeadlineCount
	findErr error
}

func newMockHomeworkRepo() *mockHomeworkRepo {
	return &mockHomeworkRepo{
		items: map[string]*models.Homework{},
		lists: map[string][]models.HomeworkDetail{},
	}
}

func (m *mockHomeworkRepo) Create(ctx context.Context, hw *models.Homework) error {
	if hw.ID == "" {
		hw.ID = "hw-generated"
	}
	cp := *hw
	m.items[hw.ID] = &cp
	return nil
}

func (m *mockHomeworkRepo) FindByID(ctx context.Context, id string) (*models.Homework, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if hw, ok := m.items[id]; ok {
		cp := *hw
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockHomeworkRepo) ListByClass(ctx context.Context, classID, userID string) ([]models.HomeworkDetail, error) {
	return m.lists[classID], nil
}

func (m *mockHomeworkRepo) DeadlineCounts(ctx context.Context, classID string, from, to time.Time) ([]models.DeadlineCount, error) {
	return m.counts, nil
}

type staticMembership struct {
	members map[string]bool
}

func (m *staticMembership) IsMember(ctx context.Context, classID, userID string) (bool, error) {
	return m.members[classID+"/"+userID], nil
}

type recordingNotifier struct {
	classID string
	actorID string
	title   string
	calls   int
}

func (n *recordingNotifier) NotifyClass(classID, actorID, title, message string) error {
	n.classID = classID
	n.actorID = actorID
	n.title = title
	n.calls++
	return nil
}

func homeworkFixture(t *testing.T) (*HomeworkService, *mockHomeworkRepo, *recordingNotifier) {
	t.Helper()
	repo := newMockHomeworkRepo()
	notifier := &recordingNotifier{}
	membership := &staticMembership{members: map[string]bool{"c1/u1": true, "c1/u2": true}}
	svc := NewHomeworkService(repo, membership, notifier, nil, nil, zap.NewNop())
	return svc, repo, notifier
}

func TestCreateHomeworkNotifiesClass(t *testing.T) {
	svc, repo, notifier := homeworkFixture(t)

	hw, err := svc.Create(context.Background(), "c1", "u1", "Ana", models.CreateHomeworkRequest{
		Subject:     "Math",
		Description: "Exercises 1-10",
		Deadline:    time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, hw.ID)
	assert.Equal(t, "Ana", hw.AuthorName)
	assert.Contains(t, repo.items, hw.ID)

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "c1", notifier.classID)
	assert.Equal(t, "u1", notifier.actorID)
	assert.Equal(t, "New homework: Math", notifier.title)
}

func TestCreateHomeworkRejectsNonMembers(t *testing.T) {
	svc, _, notifier := homeworkFixture(t)

	_, err := svc.Create(context.Background(), "c1", "outsider", "X", models.CreateHomeworkRequest{
		Subject:     "Math",
		Description: "Exercises",
		Deadline:    time.Now().Add(time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotMember.Code, appErrors.FromError(err).Code)
	assert.Zero(t, notifier.calls)
}

func TestCreateHomeworkRejectsPastDeadline(t *testing.T) {
	svc, _, _ := homeworkFixture(t)

	_, err := svc.Create(context.Background(), "c1", "u1", "Ana", models.CreateHomeworkRequest{
		Subject:     "Math",
		Description: "Exercises",
		Deadline:    time.Now().Add(-time.Minute),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPastDeadline.Code, appErrors.FromError(err).Code)
}

func TestCreateHomeworkRejectsFarDeadline(t *testing.T) {
	svc, _, _ := homeworkFixture(t)

	_, err := svc.Create(context.Background(), "c1", "u1", "Ana", models.CreateHomeworkRequest{
		Subject:     "Math",
		Description: "Exercises",
		Deadline:    time.Now().Add(models.MaxDeadlineAhead + 24*time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDeadlineTooFar.Code, appErrors.FromError(err).Code)
}

func TestCreateHomeworkRejectsSpam(t *testing.T) {
	svc, _, notifier := homeworkFixture(t)

	cases := map[string]string{
		"long run":        "aaaaaaaaaaaaaaaa do this",
		"shortened link":  "download from bit.ly/homework",
		"shouted content": strings.Repeat("DO THIS NOW ", 4),
	}
	for name, description := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "c1", "u1", "Ana", models.CreateHomeworkRequest{
				Subject:     "Math",
				Description: description,
				Deadline:    time.Now().Add(time.Hour),
			})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrSpamDetected.Code, appErrors.FromError(err).Code)
		})
	}
	assert.Zero(t, notifier.calls)
}

func TestListRejectsUnknownView(t *testing.T) {
	svc, _, _ := homeworkFixture(t)

	_, err := svc.List(context.Background(), "c1", "u1", models.HomeworkView("everything"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetSurfacesMalformedRecord(t *testing.T) {
	svc, repo, _ := homeworkFixture(t)
	repo.findErr = fmt.Errorf("find homework by id: %w", models.ErrMissingFields)

	_, err := svc.Get(context.Background(), "hw1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedRecord.Code, appErrors.FromError(err).Code)
}

func TestFilterHomeworkViews(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	item := func(id string, deadline time.Time, completed bool) models.HomeworkDetail {
		return models.HomeworkDetail{
			Homework:  models.Homework{ID: id, Deadline: deadline},
			Completed: completed,
		}
	}
	items := []models.HomeworkDetail{
		item("due-soon", now.Add(2*time.Hour), false),
		item("due-later", now.Add(72*time.Hour), false),
		item("done", now.Add(6*time.Hour), true),
		item("overdue", now.Add(-time.Hour), false),
	}

	ids := func(filtered []models.HomeworkDetail) []string {
		out := []string{}
		for _, f := range filtered {
			out = append(out, f.ID)
		}
		return out
	}

	assert.Len(t, FilterHomework(items, models.ViewAll, now), 4)
	assert.Equal(t, []string{"due-soon", "due-later", "overdue"}, ids(FilterHomework(items, models.ViewPending, now)))
	assert.Equal(t, []string{"due-soon", "done"}, ids(FilterHomework(items, models.ViewUrgent, now)), "urgent ignores completion but excludes overdue")
	assert.Equal(t, []string{"done"}, ids(FilterHomework(items, models.ViewCompleted, now)))
}

func TestCalendarUsesMonthBounds(t *testing.T) {
	svc, repo, _ := homeworkFixture(t)
	repo.counts = []models.DeadlineCount{
		{Day: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), Count: 2},
	}

	counts, err := svc.Calendar(context.Background(), "c1", "u1", 2026, time.March)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 2, counts[0].Count)
}
