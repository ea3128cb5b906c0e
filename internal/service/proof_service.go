package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/live"
	"github.com/classmate-app/homework-api/internal/models"
	"github.com/classmate-app/homework-api/internal/repository"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/imaging"
	"github.com/classmate-app/homework-api/pkg/sanitize"
	"github.com/classmate-app/homework-api/pkg/storage"
)

type proofRepository interface {
	Create(ctx context.Context, proof *models.Proof) error
	FindByHomeworkAndUser(ctx context.Context, homeworkID, userID string) (*models.Proof, error)
	ListByHomework(ctx context.Context, homeworkID string) ([]models.ProofDetail, error)
	Delete(ctx context.Context, homeworkID, userID string) (string, error)
	Vote(ctx context.Context, homeworkID, targetUserID, voterID string, isValid bool) (models.VoteOutcome, string, error)
	CreateReport(ctx context.Context, report *models.Report) error
}

type homeworkFinder interface {
	FindByID(ctx context.Context, id string) (*models.Homework, error)
}

// ProofService handles proof uploads, peer voting and reports. Images
// go through the bounded recompression pipeline before touching disk,
// and every mutation republishes the homework's proof snapshot.
type ProofService struct {
	repo      proofRepository
	homework  homeworkFinder
	members   membershipChecker
	processor *imaging.Processor
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	hub       *live.Hub
	logger    *zap.Logger
	metrics   *MetricsService
}

// WithMetrics attaches the instrumentation sink.
func (s *ProofService) WithMetrics(m *MetricsService) *ProofService {
	s.metrics = m
	return s
}

// NewProofService constructs a ProofService instance.
func NewProofService(repo proofRepository, homework homeworkFinder, members membershipChecker, processor *imaging.Processor, store *storage.LocalStorage, signer *storage.SignedURLSigner, hub *live.Hub, logger *zap.Logger) *ProofService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProofService{
		repo:      repo,
		homework:  homework,
		members:   members,
		processor: processor,
		store:     store,
		signer:    signer,
		hub:       hub,
		logger:    logger,
	}
}

// Attach processes and stores a proof photo for the caller. One proof
// per user per homework item; a second upload is rejected, not
// replaced. The image lands on disk before the row is written, and the
// file is removed again when the row loses the uniqueness race.
func (s *ProofService) Attach(ctx context.Context, homeworkID, userID, userName string, image io.Reader) (*models.Proof, error) {
	hw, err := s.findHomework(ctx, homeworkID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, hw.ClassID, userID); err != nil {
		return nil, err
	}

	result, err := s.processor.Process(image)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_%s_%s.jpg", homeworkID, userID, uuid.NewString())
	relPath, err := s.store.Save(filename, result.Data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store proof image")
	}

	proof := &models.Proof{
		HomeworkID: homeworkID,
		UserID:     userID,
		UserName:   userName,
		ImagePath:  relPath,
	}
	if err := s.repo.Create(ctx, proof); err != nil {
		if removeErr := s.store.Delete(relPath); removeErr != nil {
			s.logger.Warn("failed to remove orphaned proof image", zap.String("path", relPath), zap.Error(removeErr))
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateProof, "you already attached proof for this homework")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save proof")
	}

	s.logger.Info("proof attached",
		zap.String("homework_id", homeworkID),
		zap.String("user_id", userID),
		zap.Int("width", result.Width),
		zap.Int("height", result.Height))
	s.metrics.ProofUploaded()

	s.decorate(proof)
	s.publishSnapshot(ctx, homeworkID)
	return proof, nil
}

// List returns every proof for a homework item with vote tallies and
// short-lived signed image links.
func (s *ProofService) List(ctx context.Context, homeworkID, userID string) ([]models.ProofDetail, error) {
	hw, err := s.findHomework(ctx, homeworkID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, hw.ClassID, userID); err != nil {
		return nil, err
	}

	proofs, err := s.repo.ListByHomework(ctx, homeworkID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list proofs")
	}
	for i := range proofs {
		s.decorate(&proofs[i].Proof)
	}
	return proofs, nil
}

// Remove deletes the caller's own proof and its stored image.
func (s *ProofService) Remove(ctx context.Context, homeworkID, userID string) error {
	imagePath, err := s.repo.Delete(ctx, homeworkID, userID)
	if err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "no proof to remove")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove proof")
	}
	s.removeImage(imagePath)
	s.publishSnapshot(ctx, homeworkID)
	return nil
}

// Vote records the caller's validity judgment on another member's
// proof. Voting on one's own proof is rejected, each voter votes at
// most once, and the fifth invalidity vote removes the proof together
// with its image.
func (s *ProofService) Vote(ctx context.Context, homeworkID, targetUserID, voterID string, isValid bool) (models.VoteOutcome, error) {
	if targetUserID == voterID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "you cannot vote on your own proof")
	}

	hw, err := s.findHomework(ctx, homeworkID)
	if err != nil {
		return "", err
	}
	if err := s.requireMember(ctx, hw.ClassID, voterID); err != nil {
		return "", err
	}

	outcome, imagePath, err := s.repo.Vote(ctx, homeworkID, targetUserID, voterID, isValid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "proof not found")
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return "", appErrors.Clone(appErrors.ErrAlreadyVoted, "you already voted on this proof")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record vote")
	}

	s.metrics.VoteRecorded()
	if outcome == models.VoteProofRemoved {
		s.metrics.ProofRemoved()
		s.logger.Info("proof removed by vote",
			zap.String("homework_id", homeworkID),
			zap.String("target_user_id", targetUserID))
		s.removeImage(imagePath)
	}

	s.publishSnapshot(ctx, homeworkID)
	return outcome, nil
}

// Report files a moderation report against another member's proof.
func (s *ProofService) Report(ctx context.Context, homeworkID, reportedUserID, reporterID, reporterName, reason string) (*models.Report, error) {
	if reportedUserID == reporterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot report yourself")
	}

	hw, err := s.findHomework(ctx, homeworkID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, hw.ClassID, reporterID); err != nil {
		return nil, err
	}

	reason = sanitize.Clean(reason, 500)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required")
	}

	report := &models.Report{
		HomeworkID:     homeworkID,
		ReportedUserID: reportedUserID,
		ReporterID:     reporterID,
		ReporterName:   reporterName,
		Reason:         reason,
		Status:         models.ReportStatusPending,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to file report")
	}
	return report, nil
}

// OpenImage resolves a signed proof link to the stored file.
func (s *ProofService) OpenImage(token string) (io.ReadCloser, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid image link")
	}
	f, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "image not found")
	}
	return f, nil
}

func (s *ProofService) findHomework(ctx context.Context, homeworkID string) (*models.Homework, error) {
	hw, err := s.homework.FindByID(ctx, homeworkID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, wrapStore(err, "failed to load homework")
	}
	return hw, nil
}

func (s *ProofService) requireMember(ctx context.Context, classID, userID string) error {
	ok, err := s.members.IsMember(ctx, classID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotMember, "you are not a member of this class")
	}
	return nil
}

// decorate attaches a short-lived signed URL in place of the raw
// storage path.
func (s *ProofService) decorate(proof *models.Proof) {
	if s.signer == nil {
		return
	}
	url, _, err := s.signer.Generate(proof.ID, proof.ImagePath)
	if err != nil {
		s.logger.Warn("failed to sign proof image url", zap.String("proof_id", proof.ID), zap.Error(err))
		return
	}
	proof.ImageURL = url
}

func (s *ProofService) removeImage(path string) {
	if path == "" {
		return
	}
	if err := s.store.Delete(path); err != nil {
		s.logger.Warn("failed to delete proof image", zap.String("path", path), zap.Error(err))
	}
}

// Snapshot renders the assignment's current proof list, decorated with
// signed image URLs, as the payload delivered to live subscribers.
func (s *ProofService) Snapshot(ctx context.Context, homeworkID string) ([]byte, error) {
	proofs, err := s.repo.ListByHomework(ctx, homeworkID)
	if err != nil {
		return nil, err
	}
	for i := range proofs {
		s.decorate(&proofs[i].Proof)
	}
	return json.Marshal(proofs)
}

func (s *ProofService) publishSnapshot(ctx context.Context, homeworkID string) {
	if s.hub == nil {
		return
	}
	data, err := s.Snapshot(ctx, homeworkID)
	if err != nil {
		s.logger.Warn("failed to build proof snapshot", zap.String("homework_id", homeworkID), zap.Error(err))
		return
	}
	s.hub.Publish(ctx, live.ProofTopic(homeworkID), data)
}
