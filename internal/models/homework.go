package models

import "time"

// UrgentWindow is how far ahead a deadline may be for an item to count
// as urgent.
const UrgentWindow = 24 * time.Hour

// MaxDeadlineAhead bounds how far in the future a deadline may be set.
const MaxDeadlineAhead = 365 * 24 * time.Hour

// HomeworkView names the derived filters over the homework set.
type HomeworkView string

const (
	ViewAll       HomeworkView = "all"
	ViewPending   HomeworkView = "pending"
	ViewUrgent    HomeworkView = "urgent"
	ViewCompleted HomeworkView = "completed"
)

// Valid reports whether the view name is one of the known filters.
func (v HomeworkView) Valid() bool {
	switch v {
	case ViewAll, ViewPending, ViewUrgent, ViewCompleted:
		return true
	}
	return false
}

// CreateHomeworkRequest carries a new assignment payload.
type CreateHomeworkRequest struct {
	Subject     string    `json:"subject" validate:"required,max=100"`
	Description string    `json:"description" validate:"required,max=1000"`
	Deadline    time.Time `json:"deadline" validate:"required"`
}

// Homework is one assignment posted to a class. Items are append-only:
// there is no edit or delete path after creation.
type Homework struct {
	ID          string    `db:"id" json:"id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	Subject     string    `db:"subject" json:"subject"`
	Description string    `db:"description" json:"description"`
	Deadline    time.Time `db:"deadline" json:"deadline"`
	AuthorID    string    `db:"author_id" json:"author_id"`
	AuthorName  string    `db:"author_name" json:"author_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Validate checks a homework row read from the backend.
func (h *Homework) Validate() error {
	if h.ID == "" || h.ClassID == "" || h.Subject == "" || h.Deadline.IsZero() {
		return ErrMissingFields
	}
	return nil
}

// IsUrgent reports whether the deadline falls within the urgent window
// of now. Past-deadline items are never urgent; they are overdue.
func (h *Homework) IsUrgent(now time.Time) bool {
	if h.Deadline.Before(now) {
		return false
	}
	return !h.Deadline.After(now.Add(UrgentWindow))
}

// IsOverdue reports whether the deadline has passed.
func (h *Homework) IsOverdue(now time.Time) bool {
	return h.Deadline.Before(now)
}

// HomeworkDetail decorates an item with the caller's completion state
// and proof count for list rendering.
type HomeworkDetail struct {
	Homework
	Completed  bool `db:"completed" json:"completed"`
	ProofCount int  `db:"proof_count" json:"proof_count"`
}

// Completion is one row of the per-user completion ledger.
type Completion struct {
	UserID      string    `db:"user_id" json:"user_id"`
	HomeworkID  string    `db:"homework_id" json:"homework_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// DeadlineCount aggregates homework deadlines per calendar day for the
// month view.
type DeadlineCount struct {
	Day   time.Time `db:"day" json:"day"`
	Count int       `db:"count" json:"count"`
}
