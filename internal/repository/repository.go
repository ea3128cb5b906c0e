package repository

import "errors"

// Sentinel errors distinguishing conditional-write outcomes. The
// concurrency-sensitive mutations (join, complete, vote, proof attach)
// are expressed as atomic conditional statements, and these sentinels
// report which branch the database took.
var (
	// ErrDuplicate means the conditional insert hit an existing row.
	ErrDuplicate = errors.New("row already exists")
	// ErrNotFound mirrors sql.ErrNoRows for multi-statement operations
	// where the missing row is detected mid-transaction.
	ErrNotFound = errors.New("row not found")
)
