package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/live"
	"github.com/classmate-app/homework-api/internal/models"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/jobs"
)

// DefaultFeedLimit caps how many notifications one feed snapshot
// carries.
const DefaultFeedLimit = 100

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type rosterRepository interface {
	MemberIDs(ctx context.Context, classID string) ([]string, error)
}

type fanOutPayload struct {
	ClassID string
	ActorID string
	Title   string
	Message string
}

// NotificationService fans class events out to per-member
// notifications and serves each member's feed. Fan-out runs on a
// background queue so a slow roster never delays the triggering
// request.
type NotificationService struct {
	repo    notificationRepository
	roster  rosterRepository
	hub     *live.Hub
	queue   *jobs.Queue
	logger  *zap.Logger
	metrics *MetricsService
}

// WithMetrics attaches the instrumentation sink.
func (s *NotificationService) WithMetrics(m *MetricsService) *NotificationService {
	s.metrics = m
	return s
}

// NewNotificationService constructs a NotificationService with its own
// fan-out queue. Call Start before enqueuing work.
func NewNotificationService(repo notificationRepository, roster rosterRepository, hub *live.Hub, logger *zap.Logger, queueCfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		repo:   repo,
		roster: roster,
		hub:    hub,
		logger: logger,
	}
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}
	s.queue = jobs.NewQueue("notifications", s.handleFanOut, queueCfg)
	return s
}

// Start launches the fan-out workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the fan-out workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyClass queues a notification for every member of the class
// except the actor who caused it.
func (s *NotificationService) NotifyClass(classID, actorID, title, message string) error {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "class_fan_out",
		Payload: fanOutPayload{
			ClassID: classID,
			ActorID: actorID,
			Title:   title,
			Message: message,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return fmt.Errorf("enqueue fan-out: %w", err)
	}
	return nil
}

// Feed returns the caller's notifications newest first plus the unread
// count.
func (s *NotificationService) Feed(ctx context.Context, userID string, limit int) (*models.NotificationFeed, error) {
	if limit <= 0 || limit > DefaultFeedLimit {
		limit = DefaultFeedLimit
	}
	notifications, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return &models.NotificationFeed{Notifications: notifications, UnreadCount: unread}, nil
}

// MarkRead flags one of the caller's notifications as read. Marking a
// read notification again is a no-op. The caller's live feed is
// republished afterwards.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	s.publishFeed(ctx, userID)
	return nil
}

func (s *NotificationService) handleFanOut(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(fanOutPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	memberIDs, err := s.roster.MemberIDs(ctx, payload.ClassID)
	if err != nil {
		return fmt.Errorf("list members for fan-out: %w", err)
	}

	delivered := 0
	for _, memberID := range memberIDs {
		if memberID == payload.ActorID {
			continue
		}
		n := &models.Notification{
			UserID:  memberID,
			Title:   payload.Title,
			Message: payload.Message,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			s.logger.Warn("failed to deliver notification",
				zap.String("user_id", memberID),
				zap.String("class_id", payload.ClassID),
				zap.Error(err))
			continue
		}
		delivered++
		s.metrics.NotificationDelivered()
		s.publishFeed(ctx, memberID)
	}

	s.logger.Info("class fan-out delivered",
		zap.String("class_id", payload.ClassID),
		zap.Int("recipients", delivered))
	return nil
}

// Snapshot renders the user's current feed as the payload delivered to
// live subscribers.
func (s *NotificationService) Snapshot(ctx context.Context, userID string) ([]byte, error) {
	feed, err := s.Feed(ctx, userID, DefaultFeedLimit)
	if err != nil {
		return nil, err
	}
	return json.Marshal(feed)
}

func (s *NotificationService) publishFeed(ctx context.Context, userID string) {
	if s.hub == nil {
		return
	}
	data, err := s.Snapshot(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to build feed snapshot", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.hub.Publish(ctx, live.NotificationTopic(userID), data)
}
