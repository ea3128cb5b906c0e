package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/models"
	"github.com/classmate-app/homework-api/pkg/jobs"
)

type mockNotificationRepo struct {
	notifications map[string][]models.Notification
	nextID        int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: map[string][]models.Notification{}}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.nextID++
	n.ID = "n" + string(rune('0'+m.nextID))
	n.CreatedAt = time.Now()
	m.notifications[n.UserID] = append(m.notifications[n.UserID], *n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	list := append([]models.Notification{}, m.notifications[userID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *mockNotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range m.notifications[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	for i, n := range m.notifications[userID] {
		if n.ID == id {
			m.notifications[userID][i].Read = true
		}
	}
	return nil
}

type staticRoster struct {
	members map[string][]string
}

func (m *staticRoster) MemberIDs(ctx context.Context, classID string) ([]string, error) {
	return m.members[classID], nil
}

func notificationFixture() (*NotificationService, *mockNotificationRepo) {
	repo := newMockNotificationRepo()
	roster := &staticRoster{members: map[string][]string{"c1": {"u1", "u2", "u3"}}}
	svc := NewNotificationService(repo, roster, nil, zap.NewNop(), jobs.QueueConfig{})
	return svc, repo
}

func TestFanOutSkipsActor(t *testing.T) {
	svc, repo := notificationFixture()

	err := svc.handleFanOut(context.Background(), jobs.Job{
		Type: "class_fan_out",
		Payload: fanOutPayload{
			ClassID: "c1",
			ActorID: "u1",
			Title:   "New homework: Math",
			Message: "Exercises 1-10",
		},
	})
	require.NoError(t, err)

	assert.Empty(t, repo.notifications["u1"], "the actor must not notify themselves")
	assert.Len(t, repo.notifications["u2"], 1)
	assert.Len(t, repo.notifications["u3"], 1)
	assert.Equal(t, "New homework: Math", repo.notifications["u2"][0].Title)
}

func TestNotifyClassThroughQueue(t *testing.T) {
	svc, repo := notificationFixture()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	require.NoError(t, svc.NotifyClass("c1", "u1", "Reminder", "Deadline tomorrow"))

	require.Eventually(t, func() bool {
		return len(repo.notifications["u2"]) == 1 && len(repo.notifications["u3"]) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestFeedCountsUnread(t *testing.T) {
	svc, repo := notificationFixture()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(context.Background(), &models.Notification{UserID: "u2", Title: "t"}))
	}

	feed, err := svc.Feed(context.Background(), "u2", 0)
	require.NoError(t, err)
	assert.Len(t, feed.Notifications, 3)
	assert.Equal(t, 3, feed.UnreadCount)

	require.NoError(t, svc.MarkRead(context.Background(), "u2", feed.Notifications[0].ID))

	feed, err = svc.Feed(context.Background(), "u2", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, feed.UnreadCount)
}
