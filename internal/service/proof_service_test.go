package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classmate-app/homework-api/internal/models"
	"github.com/classmate-app/homework-api/internal/repository"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/imaging"
	"github.com/classmate-app/homework-api/pkg/storage"
)

type mockProofRepo struct {
	proofs  map[string]*models.Proof
	votes   map[string]map[string]bool
	reports []*models.Report
	nextID  int
}

func newMockProofRepo() *mockProofRepo {
	return &mockProofRepo{
		proofs: map[string]*models.Proof{},
		votes:  map[string]map[string]bool{},
	}
}

func proofKey(homeworkID, userID string) string {
	return homeworkID + "/" + userID
}

func (m *mockProofRepo) Create(ctx context.Context, proof *models.Proof) error {
	key := proofKey(proof.HomeworkID, proof.UserID)
	if _, ok := m.proofs[key]; ok {
		return repository.ErrDuplicate
	}
	m.nextID++
	proof.ID = fmt.Sprintf("p%d", m.nextID)
	proof.UploadedAt = time.Now()
	cp := *proof
	m.proofs[key] = &cp
	return nil
}

func (m *mockProofRepo) FindByHomeworkAndUser(ctx context.Context, homeworkID, userID string) (*models.Proof, error) {
	if proof, ok := m.proofs[proofKey(homeworkID, userID)]; ok {
		cp := *proof
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProofRepo) ListByHomework(ctx context.Context, homeworkID string) ([]models.ProofDetail, error) {
	details := []models.ProofDetail{}
	for key, proof := range m.proofs {
		if !strings.HasPrefix(key, homeworkID+"/") {
			continue
		}
		detail := models.ProofDetail{Proof: *proof}
		for _, isValid := range m.votes[proof.ID] {
			if isValid {
				detail.ValidVotes++
			} else {
				detail.InvalidVotes++
			}
		}
		details = append(details, detail)
	}
	return details, nil
}

func (m *mockProofRepo) Delete(ctx context.Context, homeworkID, userID string) (string, error) {
	key := proofKey(homeworkID, userID)
	proof, ok := m.proofs[key]
	if !ok {
		return "", sql.ErrNoRows
	}
	delete(m.proofs, key)
	return proof.ImagePath, nil
}

func (m *mockProofRepo) Vote(ctx context.Context, homeworkID, targetUserID, voterID string, isValid bool) (models.VoteOutcome, string, error) {
	key := proofKey(homeworkID, targetUserID)
	proof, ok := m.proofs[key]
	if !ok {
		return "", "", sql.ErrNoRows
	}
	if _, voted := m.votes[proof.ID][voterID]; voted {
		return "", "", repository.ErrDuplicate
	}
	if m.votes[proof.ID] == nil {
		m.votes[proof.ID] = map[string]bool{}
	}
	m.votes[proof.ID][voterID] = isValid

	invalid := 0
	for _, v := range m.votes[proof.ID] {
		if !v {
			invalid++
		}
	}
	if invalid >= models.InvalidVoteThreshold {
		delete(m.proofs, key)
		return models.VoteProofRemoved, proof.ImagePath, nil
	}
	return models.VoteRecorded, "", nil
}

func (m *mockProofRepo) CreateReport(ctx context.Context, report *models.Report) error {
	report.ID = fmt.Sprintf("r%d", len(m.reports)+1)
	m.reports = append(m.reports, report)
	return nil
}

func testJPEG(t *testing.T) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for x := 0; x < 120; x++ {
		for y := 0; y < 80; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, img, nil))
	return buf
}

func proofFixture(t *testing.T) (*ProofService, *mockProofRepo, string) {
	t.Helper()
	repo := newMockProofRepo()
	hwRepo := newMockHomeworkRepo()
	hwRepo.items["hw1"] = &models.Homework{ID: "hw1", ClassID: "c1", Subject: "Math", Deadline: time.Now().Add(time.Hour)}

	members := map[string]bool{}
	for _, u := range []string{"u1", "u2", "v1", "v2", "v3", "v4", "v5"} {
		members["c1/"+u] = true
	}

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	processor := imaging.NewProcessor(0, 0, 0)

	svc := NewProofService(repo, hwRepo, &staticMembership{members: members}, processor, store, signer, nil, zap.NewNop())
	return svc, repo, dir
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	}))
	return files
}

func TestAttachStoresImageAndSignsURL(t *testing.T) {
	svc, repo, dir := proofFixture(t)

	proof, err := svc.Attach(context.Background(), "hw1", "u1", "Ana", testJPEG(t))
	require.NoError(t, err)
	assert.NotEmpty(t, proof.ID)
	assert.NotEmpty(t, proof.ImageURL)
	assert.Len(t, storedFiles(t, dir), 1)
	assert.Contains(t, repo.proofs, proofKey("hw1", "u1"))
}

func TestAttachSecondUploadRejectedAndFileCleaned(t *testing.T) {
	svc, _, dir := proofFixture(t)

	_, err := svc.Attach(context.Background(), "hw1", "u1", "Ana", testJPEG(t))
	require.NoError(t, err)

	_, err = svc.Attach(context.Background(), "hw1", "u1", "Ana", testJPEG(t))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateProof.Code, appErrors.FromError(err).Code)
	assert.Len(t, storedFiles(t, dir), 1, "the rejected upload must not leave a file behind")
}

func TestAttachRejectsNonImage(t *testing.T) {
	svc, _, dir := proofFixture(t)

	_, err := svc.Attach(context.Background(), "hw1", "u1", "Ana", strings.NewReader("definitely not a jpeg"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, appErrors.FromError(err).Code)
	assert.Empty(t, storedFiles(t, dir))
}

func TestVoteOnOwnProofForbidden(t *testing.T) {
	svc, _, _ := proofFixture(t)

	_, err := svc.Attach(context.Background(), "hw1", "u1", "Ana", testJPEG(t))
	require.NoError(t, err)

	_, err = svc.Vote(context.Background(), "hw1", "u1", "u1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestVoteTwiceRejected(t *testing.T) {
	svc, _, _ := proofFixture(t)

	_, err := svc.Attach(context.Background(), "hw1", "u1", "Ana", testJPEG(t))
	require.NoError(t, err)

	outcome, err := svc.Vote(context.Background(), "hw1", "u1", "u2", true)
	require.NoError(t, err)
	assert.Equal(t, models.VoteRecorded, outcome)

	_, err = svc.Vote(context.Background(), "hw1", "u1", "u2", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyVoted.Code, appErrors.FromError(err).Code)
}

func TestFifthInvalidVoteRemovesProofAndImage(t *testing.T) {
	svc, repo, dir := proofFixture(t)

	_, err := svc.Attach(context.Background(), "hw1", "u1", "Ana", testJPEG(t))
	require.NoError(t, err)

	voters := []string{"v1", "v2", "v3", "v4", "v5"}
	for i, voter := range voters {
		outcome, err := svc.Vote(context.Background(), "hw1", "u1", voter, false)
		require.NoError(t, err)
		if i < len(voters)-1 {
			assert.Equal(t, models.VoteRecorded, outcome)
		} else {
			assert.Equal(t, models.VoteProofRemoved, outcome)
		}
	}

	assert.NotContains(t, repo.proofs, proofKey("hw1", "u1"))
	assert.Empty(t, storedFiles(t, dir), "the removed proof's image must be deleted")

	_, err = svc.Vote(context.Background(), "hw1", "u1", "u2", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRemoveOwnProof(t *testing.T) {
	svc, _, dir := proofFixture(t)

	_, err := svc.Attach(context.Background(), "hw1", "u1", "Ana", testJPEG(t))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), "hw1", "u1"))
	assert.Empty(t, storedFiles(t, dir))

	err = svc.Remove(context.Background(), "hw1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportRequiresReason(t *testing.T) {
	svc, repo, _ := proofFixture(t)

	_, err := svc.Attach(context.Background(), "hw1", "u1", "Ana", testJPEG(t))
	require.NoError(t, err)

	_, err = svc.Report(context.Background(), "hw1", "u1", "u2", "Ben", "   ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	report, err := svc.Report(context.Background(), "hw1", "u1", "u2", "Ben", "copied from the internet")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	require.Len(t, repo.reports, 1)
}
