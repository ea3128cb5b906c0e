package models

import "time"

// ReportStatus tracks moderation state of a report. The core only ever
// writes pending reports; resolution happens outside the app.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "PENDING"
	ReportStatusResolved ReportStatus = "RESOLVED"
)

// Report is a complaint about another user's proof.
type Report struct {
	ID             string       `db:"id" json:"id"`
	HomeworkID     string       `db:"homework_id" json:"homework_id"`
	ReportedUserID string       `db:"reported_user_id" json:"reported_user_id"`
	ReporterID     string       `db:"reporter_id" json:"reporter_id"`
	ReporterName   string       `db:"reporter_name" json:"reporter_name"`
	Reason         string       `db:"reason" json:"reason"`
	Status         ReportStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}
