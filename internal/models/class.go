package models

import "time"

// JoinCodeLength is the length of the generated class join code.
const JoinCodeLength = 6

// Class represents a group of users sharing a homework feed, joined by
// a short code.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	JoinCode  string    `db:"join_code" json:"join_code"`
	CreatorID string    `db:"creator_id" json:"creator_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Validate checks a class row read from the backend.
func (c *Class) Validate() error {
	if c.ID == "" || c.Name == "" || len(c.JoinCode) != JoinCodeLength {
		return ErrMissingFields
	}
	return nil
}

// ClassMember is one membership record. Membership is a separate
// relation keyed by (class_id, user_id) rather than an embedded array so
// join and leave are single conditional inserts/deletes.
type ClassMember struct {
	ClassID  string    `db:"class_id" json:"class_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// ClassMemberDetail joins the member row with display data for rosters.
type ClassMemberDetail struct {
	ClassMember
	DisplayName string `db:"display_name" json:"display_name"`
	Points      int    `db:"points" json:"points"`
}

// ClassDetail extends Class with the member count for the class card.
type ClassDetail struct {
	Class
	MemberCount int `db:"member_count" json:"member_count"`
}
