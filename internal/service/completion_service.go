package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/models"
	"github.com/classmate-app/homework-api/internal/repository"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
)

type completionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Homework, error)
	MarkComplete(ctx context.Context, userID, homeworkID string) error
	CompletedIDs(ctx context.Context, userID string) ([]string, error)
}

type proofChecker interface {
	Exists(ctx context.Context, homeworkID, userID string) (bool, error)
}

type rankingPublisher interface {
	PublishClass(ctx context.Context, classID string)
}

// CompletionService owns the per-user completion ledger and the point
// awards attached to it.
type CompletionService struct {
	repo       completionRepository
	proofs     proofChecker
	membership membershipChecker
	ranking    rankingPublisher
	logger     *zap.Logger
	metrics    *MetricsService
}

// WithMetrics attaches the instrumentation sink.
func (s *CompletionService) WithMetrics(m *MetricsService) *CompletionService {
	s.metrics = m
	return s
}

// NewCompletionService constructs a CompletionService instance.
func NewCompletionService(repo completionRepository, proofs proofChecker, membership membershipChecker, ranking rankingPublisher, logger *zap.Logger) *CompletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{repo: repo, proofs: proofs, membership: membership, ranking: ranking, logger: logger}
}

// MarkComplete records that the caller finished an assignment and
// awards one point. The caller must have attached proof first, and
// each item pays out at most once no matter how often or how
// concurrently it is submitted.
func (s *CompletionService) MarkComplete(ctx context.Context, homeworkID, userID string) error {
	hw, err := s.repo.FindByID(ctx, homeworkID)
	if err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return wrapStore(err, "failed to load homework")
	}

	ok, err := s.membership.IsMember(ctx, hw.ClassID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotMember, "you are not a member of this class")
	}

	hasProof, err := s.proofs.Exists(ctx, homeworkID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check proof")
	}
	if !hasProof {
		return appErrors.Clone(appErrors.ErrMissingProof, "attach proof before marking complete")
	}

	if err := s.repo.MarkComplete(ctx, userID, homeworkID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return appErrors.Clone(appErrors.ErrAlreadyCompleted, "homework is already marked complete")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark complete")
	}

	s.logger.Info("homework completed",
		zap.String("homework_id", homeworkID),
		zap.String("user_id", userID))
	s.metrics.CompletionAwarded()

	if s.ranking != nil {
		s.ranking.PublishClass(ctx, hw.ClassID)
	}
	return nil
}

// CompletedIDs returns the identifiers of everything the caller has
// completed.
func (s *CompletionService) CompletedIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.repo.CompletedIDs(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list completions")
	}
	return ids, nil
}
