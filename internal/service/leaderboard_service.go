package service

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/live"
	"github.com/classmate-app/homework-api/internal/models"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/export"
)

// GlobalLeaderboardLimit caps the cross-class ranking.
const GlobalLeaderboardLimit = 50

type leaderboardRepository interface {
	ClassLeaderboard(ctx context.Context, classID string) ([]models.LeaderboardEntry, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// LeaderboardService serves the point rankings and their exports.
type LeaderboardService struct {
	repo       leaderboardRepository
	membership membershipChecker
	hub        *live.Hub
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewLeaderboardService constructs a LeaderboardService instance.
func NewLeaderboardService(repo leaderboardRepository, membership membershipChecker, hub *live.Hub, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{
		repo:       repo,
		membership: membership,
		hub:        hub,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// Class returns the full ranking of one class. Only members may look.
func (s *LeaderboardService) Class(ctx context.Context, classID, userID string) ([]models.LeaderboardEntry, error) {
	ok, err := s.membership.IsMember(ctx, classID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotMember, "you are not a member of this class")
	}

	entries, err := s.repo.ClassLeaderboard(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	assignRanks(entries)
	return entries, nil
}

// Global returns the cross-class top scorers.
func (s *LeaderboardService) Global(ctx context.Context) ([]models.LeaderboardEntry, error) {
	entries, err := s.repo.GlobalLeaderboard(ctx, GlobalLeaderboardLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	assignRanks(entries)
	return entries, nil
}

// ExportClass renders the class ranking as CSV or PDF.
func (s *LeaderboardService) ExportClass(ctx context.Context, classID, userID, format string) ([]byte, string, error) {
	entries, err := s.Class(ctx, classID, userID)
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{
		Headers: []string{"Rank", "Name", "Points", "Completed"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, entry := range entries {
		data.Rows = append(data.Rows, map[string]string{
			"Rank":      strconv.Itoa(entry.Rank),
			"Name":      entry.DisplayName,
			"Points":    strconv.Itoa(entry.Points),
			"Completed": strconv.Itoa(entry.CompletedCount),
		})
	}

	switch format {
	case "csv":
		out, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return out, "text/csv", nil
	case "pdf":
		out, err := s.pdf.Render(data, "Class Leaderboard")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// Snapshot renders the class's current ranking as the payload
// delivered to live subscribers.
func (s *LeaderboardService) Snapshot(ctx context.Context, classID string) ([]byte, error) {
	entries, err := s.repo.ClassLeaderboard(ctx, classID)
	if err != nil {
		return nil, err
	}
	assignRanks(entries)
	return json.Marshal(entries)
}

// PublishClass pushes the class ranking snapshot to the live hub.
func (s *LeaderboardService) PublishClass(ctx context.Context, classID string) {
	if s.hub == nil {
		return
	}
	data, err := s.Snapshot(ctx, classID)
	if err != nil {
		s.logger.Warn("failed to build leaderboard snapshot", zap.String("class_id", classID), zap.Error(err))
		return
	}
	s.hub.Publish(ctx, live.LeaderboardTopic(classID), data)
}

// assignRanks numbers entries in storage order, which is points
// descending with name as the tiebreak.
func assignRanks(entries []models.LeaderboardEntry) {
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
