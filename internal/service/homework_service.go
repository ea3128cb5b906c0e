package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/live"
	"github.com/classmate-app/homework-api/internal/models"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/sanitize"
)

type homeworkRepository interface {
	Create(ctx context.Context, hw *models.Homework) error
	FindByID(ctx context.Context, id string) (*models.Homework, error)
	ListByClass(ctx context.Context, classID, userID string) ([]models.HomeworkDetail, error)
	DeadlineCounts(ctx context.Context, classID string, from, to time.Time) ([]models.DeadlineCount, error)
}

type membershipChecker interface {
	IsMember(ctx context.Context, classID, userID string) (bool, error)
}

type classNotifier interface {
	NotifyClass(classID, actorID, title, message string) error
}

// HomeworkService manages assignments and their derived views.
type HomeworkService struct {
	repo       homeworkRepository
	membership membershipChecker
	notifier   classNotifier
	hub        *live.Hub
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
}

// WithMetrics attaches the instrumentation sink.
func (s *HomeworkService) WithMetrics(m *MetricsService) *HomeworkService {
	s.metrics = m
	return s
}

// NewHomeworkService constructs a HomeworkService instance.
func NewHomeworkService(repo homeworkRepository, membership membershipChecker, notifier classNotifier, hub *live.Hub, validate *validator.Validate, logger *zap.Logger) *HomeworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &HomeworkService{
		repo:       repo,
		membership: membership,
		notifier:   notifier,
		hub:        hub,
		validator:  validate,
		logger:     logger,
	}
}

// Create posts a new assignment to the caller's class. Checks run in a
// fixed order so the caller always sees the same rejection for the
// same payload: empty fields, past deadline, deadline beyond the
// horizon, then the spam heuristics. On success the class is notified
// and the live snapshot republished; neither failure rolls the item
// back.
func (s *HomeworkService) Create(ctx context.Context, classID, userID, userName string, req models.CreateHomeworkRequest) (*models.Homework, error) {
	if err := s.requireMember(ctx, classID, userID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}

	subject := sanitize.Clean(req.Subject, 100)
	description := sanitize.Clean(req.Description, 1000)
	if subject == "" || description == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject and description are required")
	}

	now := time.Now().UTC()
	if req.Deadline.Before(now) {
		return nil, appErrors.Clone(appErrors.ErrPastDeadline, "deadline is already in the past")
	}
	if req.Deadline.After(now.Add(models.MaxDeadlineAhead)) {
		return nil, appErrors.Clone(appErrors.ErrDeadlineTooFar, "deadline is more than a year away")
	}
	if sanitize.IsSpam(subject) || sanitize.IsSpam(description) {
		return nil, appErrors.Clone(appErrors.ErrSpamDetected, "content was flagged as spam")
	}

	hw := &models.Homework{
		ClassID:     classID,
		Subject:     subject,
		Description: description,
		Deadline:    req.Deadline.UTC(),
		AuthorID:    userID,
		AuthorName:  userName,
	}
	if err := s.repo.Create(ctx, hw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create homework")
	}

	s.logger.Info("homework created",
		zap.String("homework_id", hw.ID),
		zap.String("class_id", classID),
		zap.String("author_id", userID))
	s.metrics.HomeworkCreated()

	if s.notifier != nil {
		if err := s.notifier.NotifyClass(classID, userID, "New homework: "+subject, description); err != nil {
			s.logger.Warn("failed to notify class about new homework", zap.Error(err))
		}
	}
	s.publishSnapshot(ctx, classID)

	return hw, nil
}

// List returns the class's assignments through one of the derived
// views, decorated with the caller's completion state.
func (s *HomeworkService) List(ctx context.Context, classID, userID string, view models.HomeworkView) ([]models.HomeworkDetail, error) {
	if view == "" {
		view = models.ViewAll
	}
	if !view.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown homework view")
	}
	if err := s.requireMember(ctx, classID, userID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListByClass(ctx, classID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homework")
	}
	return FilterHomework(items, view, time.Now().UTC()), nil
}

// Get returns one assignment. Only class members may look.
func (s *HomeworkService) Get(ctx context.Context, homeworkID, userID string) (*models.Homework, error) {
	hw, err := s.findHomework(ctx, homeworkID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, hw.ClassID, userID); err != nil {
		return nil, err
	}
	return hw, nil
}

// Calendar aggregates deadlines per day for one month.
func (s *HomeworkService) Calendar(ctx context.Context, classID, userID string, year int, month time.Month) ([]models.DeadlineCount, error) {
	if err := s.requireMember(ctx, classID, userID); err != nil {
		return nil, err
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	counts, err := s.repo.DeadlineCounts(ctx, classID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate deadlines")
	}
	return counts, nil
}

// FilterHomework applies one of the derived views over a sorted
// snapshot. The urgent view keeps items due within the window
// regardless of completion; an item past its deadline is overdue, not
// urgent.
func FilterHomework(items []models.HomeworkDetail, view models.HomeworkView, now time.Time) []models.HomeworkDetail {
	if view == models.ViewAll {
		return items
	}
	filtered := make([]models.HomeworkDetail, 0, len(items))
	for _, item := range items {
		switch view {
		case models.ViewPending:
			if !item.Completed {
				filtered = append(filtered, item)
			}
		case models.ViewUrgent:
			if item.IsUrgent(now) {
				filtered = append(filtered, item)
			}
		case models.ViewCompleted:
			if item.Completed {
				filtered = append(filtered, item)
			}
		}
	}
	return filtered
}

func (s *HomeworkService) requireMember(ctx context.Context, classID, userID string) error {
	ok, err := s.membership.IsMember(ctx, classID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotMember, "you are not a member of this class")
	}
	return nil
}

func (s *HomeworkService) findHomework(ctx context.Context, homeworkID string) (*models.Homework, error) {
	hw, err := s.repo.FindByID(ctx, homeworkID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, wrapStore(err, "failed to load homework")
	}
	return hw, nil
}

// publishSnapshot pushes the class's full assignment list to the live
// hub. The snapshot carries no per-user completion state; clients
// overlay their own.
// Snapshot renders the class's current assignment list as the payload
// delivered to live subscribers. The list carries no per-user
// completion flags; clients overlay their own.
func (s *HomeworkService) Snapshot(ctx context.Context, classID string) ([]byte, error) {
	items, err := s.repo.ListByClass(ctx, classID, "")
	if err != nil {
		return nil, err
	}
	return json.Marshal(items)
}

func (s *HomeworkService) publishSnapshot(ctx context.Context, classID string) {
	if s.hub == nil {
		return
	}
	data, err := s.Snapshot(ctx, classID)
	if err != nil {
		s.logger.Warn("failed to build homework snapshot", zap.String("class_id", classID), zap.Error(err))
		return
	}
	s.hub.Publish(ctx, live.HomeworkTopic(classID), data)
}
