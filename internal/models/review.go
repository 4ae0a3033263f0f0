package models

import (
	"time"

	"github.com/google/uuid"
)

// ReviewCard holds the SM-2 scheduling state for one weak area. Exactly one
// card exists per weak area (unique index on weak_area_id).
type ReviewCard struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	WeakAreaID        uuid.UUID  `json:"weak_area_id"`
	EaseFactor        float64    `json:"ease_factor"`
	IntervalDays      int        `json:"interval_days"`
	Repetitions       int        `json:"repetitions"`
	NextReviewAt      time.Time  `json:"next_review_at"`
	LastReviewedAt    *time.Time `json:"last_reviewed_at"`
	TotalReviews      int        `json:"total_reviews"`
	SuccessfulReviews int        `json:"successful_reviews"`
	FailedReviews     int        `json:"failed_reviews"`
	AverageScore      float64    `json:"average_score"`
	IsMastered        bool       `json:"is_mastered"`
	MasteredAt        *time.Time `json:"mastered_at"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`

	// Joined from weak_areas for session display; not persisted on the card.
	Topic      string  `json:"topic,omitempty"`
	Subject    string  `json:"subject,omitempty"`
	GradeLevel int     `json:"grade_level,omitempty"`
	Category   *string `json:"error_category,omitempty"`
}

// ReviewEvent is the append-only audit record of one review attempt, including
// the scheduling state that resulted from it.
type ReviewEvent struct {
	ID              uuid.UUID `json:"id"`
	CardID          uuid.UUID `json:"card_id"`
	UserID          uuid.UUID `json:"user_id"`
	Quality         int       `json:"quality"`
	IsCorrect       bool      `json:"is_correct"`
	Question        string    `json:"question"`
	ExpectedAnswer  string    `json:"expected_answer"`
	UserAnswer      string    `json:"user_answer"`
	Feedback        string    `json:"feedback"`
	TimeSpentSecs   int       `json:"time_spent_seconds"`
	NewEaseFactor   float64   `json:"new_ease_factor"`
	NewIntervalDays int       `json:"new_interval_days"`
	CreatedAt       time.Time `json:"created_at"`
}

type SubmitReviewRequest struct {
	Answer        string `json:"answer"`
	TimeSpentSecs int    `json:"time_spent_seconds"`
}

// ReviewOutcome is returned to the client after a review is recorded.
type ReviewOutcome struct {
	CardID          uuid.UUID `json:"card_id"`
	Quality         int       `json:"quality"`
	IsCorrect       bool      `json:"is_correct"`
	Feedback        string    `json:"feedback"`
	NewEaseFactor   float64   `json:"new_ease_factor"`
	NewIntervalDays int       `json:"new_interval_days"`
	NextReviewAt    time.Time `json:"next_review_at"`
	IsMastered      bool      `json:"is_mastered"`
}

// ReviewQuestion is the generated question/expected-answer pair presented to
// the learner. The expected answer never leaves the server before grading.
type ReviewQuestion struct {
	CardID         uuid.UUID `json:"card_id"`
	Question       string    `json:"question"`
	ExpectedAnswer string    `json:"-"`
	Topic          string    `json:"topic"`
	Subject        string    `json:"subject"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type ReviewStats struct {
	TotalCards        int     `json:"total_cards"`
	DueToday          int     `json:"due_today"`
	MasteredCards     int     `json:"mastered_cards"`
	AverageEaseFactor float64 `json:"average_ease_factor"`
	TotalReviews      int     `json:"total_reviews"`
	SuccessRate       float64 `json:"success_rate"`
}

// ForecastBucket is one calendar day of upcoming review load. Buckets are
// dense: days with nothing due are present with a zero count.
type ForecastBucket struct {
	Date     string `json:"date"` // YYYY-MM-DD
	DueCount int    `json:"due_count"`
}
