package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/models"
	"github.com/classmate-app/homework-api/internal/repository"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/sanitize"
)

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// joinCodeAttempts bounds the regeneration loop on code collisions.
const joinCodeAttempts = 5

type classRepository interface {
	Create(ctx context.Context, class *models.Class) error
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindByJoinCode(ctx context.Context, code string) (*models.Class, error)
	FindByMember(ctx context.Context, userID string) (*models.Class, error)
	AddMember(ctx context.Context, classID, userID string) (bool, error)
	IsMember(ctx context.Context, classID, userID string) (bool, error)
	Members(ctx context.Context, classID string) ([]models.ClassMemberDetail, error)
	MemberCount(ctx context.Context, classID string) (int, error)
}

// ClassService manages classes and their rosters.
type ClassService struct {
	repo   classRepository
	logger *zap.Logger
}

// NewClassService constructs a ClassService instance.
func NewClassService(repo classRepository, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, logger: logger}
}

// Create opens a new class with a fresh join code and enrolls the
// creator. Code collisions regenerate rather than fail, up to a small
// bound.
func (s *ClassService) Create(ctx context.Context, userID, name string) (*models.Class, error) {
	name = sanitize.Clean(name, 100)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name is required")
	}

	var lastErr error
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate join code")
		}
		class := &models.Class{Name: name, JoinCode: code, CreatorID: userID}
		err = s.repo.Create(ctx, class)
		if err == nil {
			s.logger.Info("class created",
				zap.String("class_id", class.ID),
				zap.String("creator_id", userID))
			return class, nil
		}
		if errors.Is(err, repository.ErrDuplicate) {
			lastErr = err
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate a unique join code")
}

// JoinByCode enrolls the caller into the class behind a join code.
// Codes are matched case insensitively. Joining a class the caller
// already belongs to is not an error; the class is returned either way
// with alreadyMember reporting which case occurred.
func (s *ClassService) JoinByCode(ctx context.Context, userID, code string) (*models.Class, bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != models.JoinCodeLength {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "join code must be 6 characters")
	}

	class, err := s.repo.FindByJoinCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrClassNotFound, "no class matches that join code")
		}
		return nil, false, wrapStore(err, "failed to look up join code")
	}

	added, err := s.repo.AddMember(ctx, class.ID, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join class")
	}
	if added {
		s.logger.Info("member joined class",
			zap.String("class_id", class.ID),
			zap.String("user_id", userID))
	}
	return class, !added, nil
}

// MyClass returns the class the caller belongs to.
func (s *ClassService) MyClass(ctx context.Context, userID string) (*models.Class, error) {
	class, err := s.repo.FindByMember(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrClassNotFound, "you have not joined a class yet")
		}
		return nil, wrapStore(err, "failed to load class")
	}
	return class, nil
}

// Detail returns the class with its member count. Only members may
// look.
func (s *ClassService) Detail(ctx context.Context, classID, userID string) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrClassNotFound, "class not found")
		}
		return nil, wrapStore(err, "failed to load class")
	}

	if err := s.requireMember(ctx, classID, userID); err != nil {
		return nil, err
	}

	count, err := s.repo.MemberCount(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count members")
	}
	return &models.ClassDetail{Class: *class, MemberCount: count}, nil
}

// Members lists the roster of a class. Only members may look.
func (s *ClassService) Members(ctx context.Context, classID, userID string) ([]models.ClassMemberDetail, error) {
	if err := s.requireMember(ctx, classID, userID); err != nil {
		return nil, err
	}
	members, err := s.repo.Members(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, nil
}

// RequireMember rejects callers that do not belong to the class.
func (s *ClassService) RequireMember(ctx context.Context, classID, userID string) error {
	return s.requireMember(ctx, classID, userID)
}

func (s *ClassService) requireMember(ctx context.Context, classID, userID string) error {
	ok, err := s.repo.IsMember(ctx, classID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotMember, "you are not a member of this class")
	}
	return nil
}

func generateJoinCode() (string, error) {
	buf := make([]byte, models.JoinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, models.JoinCodeLength)
	for i, b := range buf {
		code[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(code), nil
}
