package models

import "time"

// InvalidVoteThreshold is the number of invalidity votes that removes a
// proof.
const InvalidVoteThreshold = 5

// Proof is one user's photographic evidence for one homework item. At
// most one proof exists per (homework, user) pair.
type Proof struct {
	ID         string    `db:"id" json:"id"`
	HomeworkID string    `db:"homework_id" json:"homework_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	UserName   string    `db:"user_name" json:"user_name"`
	ImagePath  string    `db:"image_path" json:"-"`
	ImageURL   string    `db:"-" json:"image_url,omitempty"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// Validate checks a proof row read from the backend.
func (p *Proof) Validate() error {
	if p.ID == "" || p.HomeworkID == "" || p.UserID == "" || p.ImagePath == "" {
		return ErrMissingFields
	}
	return nil
}

// ProofVote records one voter's validity judgment on a proof.
type ProofVote struct {
	ProofID string    `db:"proof_id" json:"proof_id"`
	VoterID string    `db:"voter_id" json:"voter_id"`
	IsValid bool      `db:"is_valid" json:"is_valid"`
	VotedAt time.Time `db:"voted_at" json:"voted_at"`
}

// ProofDetail decorates a proof with its vote tallies.
type ProofDetail struct {
	Proof
	ValidVotes   int `db:"valid_votes" json:"valid_votes"`
	InvalidVotes int `db:"invalid_votes" json:"invalid_votes"`
}

// VoteOutcome describes what a recorded vote did.
type VoteOutcome string

const (
	// VoteRecorded means the vote was stored and the proof survives.
	VoteRecorded VoteOutcome = "recorded"
	// VoteProofRemoved means the vote pushed the proof over the
	// invalidity threshold and the proof was deleted.
	VoteProofRemoved VoteOutcome = "proof_removed"
)
