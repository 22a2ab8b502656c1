package models

import "time"

// Task is a deferred HTTP call stored in the outbox. It becomes visible to the
// dispatcher only once the transaction that created it commits.
type Task struct {
	ID            string
	Queue         string
	URL           string
	Params        map[string]string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CompletedAt   *time.Time
	FailedAt      *time.Time
	CreatedAt     time.Time
}
