package models

import (
	"time"

	"github.com/google/uuid"
)

// WeakArea is a topic the upstream quiz/lesson analyzer flagged the learner as
// struggling with. The review engine never creates or deletes weak areas; it
// only marks them resolved when the associated card reaches mastery.
type WeakArea struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Subject       string     `json:"subject"`
	GradeLevel    int        `json:"grade_level"`
	Topic         string     `json:"topic"`
	ErrorCategory *string    `json:"error_category"`
	ErrorCount    int        `json:"error_count"`
	AttemptCount  int        `json:"attempt_count"`
	LastErrorAt   time.Time  `json:"last_error_at"`
	IsResolved    bool       `json:"is_resolved"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IngestWeakAreaRequest is the payload the upstream analyzer delivers, either
// via POST /weak-areas or through the redis ingest queue.
type IngestWeakAreaRequest struct {
	UserID        uuid.UUID `json:"user_id"`
	Subject       string    `json:"subject"`
	GradeLevel    int       `json:"grade_level"`
	Topic         string    `json:"topic"`
	ErrorCategory *string   `json:"error_category"`
	ErrorCount    int       `json:"error_count"`
	AttemptCount  int       `json:"attempt_count"`
}
