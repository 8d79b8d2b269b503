package domain

import "time"

// Journal entry statuses
const (
	JournalStatusCompleted = "completed"
	JournalStatusRejected  = "rejected"
	JournalStatusFailed    = "failed"
	JournalStatusMismatch  = "mismatch"
)

// JournalEntry records the outcome of one pipeline run
type JournalEntry struct {
	ID          int64
	RequestID   string
	URL         string
	Destination string
	FinalPath   string
	Bytes       int64
	Checksum    string
	Status      string
	ErrorKind   string
	Detail      string
	StartedAt   time.Time
	FinishedAt  time.Time
}
