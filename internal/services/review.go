package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mentora-backend/internal/models"
	"mentora-backend/internal/repository"
	"mentora-backend/internal/srs"
)

const (
	// MasteryThreshold is the cumulative successful-review count at which a
	// card is mastered and its weak area resolved.
	MasteryThreshold = 5

	// DefaultDueLimit bounds a review session when the caller passes no limit.
	DefaultDueLimit = 10
	maxDueLimit     = 50

	// DefaultForecastDays is the horizon for the upcoming-load forecast.
	DefaultForecastDays = 7
	maxForecastDays     = 90
)

// ReviewService is the scheduling engine: card lifecycle, due-queue
// selection, the review-recording transaction, and stats/forecast reads.
type ReviewService struct {
	cardRepo  *repository.ReviewCardRepo
	eventRepo *repository.ReviewEventRepo
}

func NewReviewService(cardRepo *repository.ReviewCardRepo, eventRepo *repository.ReviewEventRepo) *ReviewService {
	return &ReviewService{
		cardRepo:  cardRepo,
		eventRepo: eventRepo,
	}
}

// EnsureCards creates a review card for every unresolved weak area of the
// user that has none, and returns how many were created. Safe to call
// repeatedly and concurrently.
func (s *ReviewService) EnsureCards(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	created, err := s.cardRepo.EnsureCards(ctx, userID, now)
	if err != nil {
		return 0, &StorageError{Op: "ensure cards", Err: err}
	}
	return created, nil
}

// DueCards returns the user's review queue as of now: active, non-mastered
// cards past their next-review time, most overdue first, hardest first among
// ties. An empty queue is a normal result, not an error.
func (s *ReviewService) DueCards(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.ReviewCard, error) {
	if limit <= 0 {
		limit = DefaultDueLimit
	}
	if limit > maxDueLimit {
		limit = maxDueLimit
	}

	cards, err := s.cardRepo.DueCards(ctx, userID, now, limit)
	if err != nil {
		return nil, &StorageError{Op: "due cards", Err: err}
	}
	return cards, nil
}

// DueCount reports how many cards are due without fetching them.
func (s *ReviewService) DueCount(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	count, err := s.cardRepo.DueCount(ctx, userID, now)
	if err != nil {
		return 0, &StorageError{Op: "due count", Err: err}
	}
	return count, nil
}

// ReviewSubmission carries everything RecordReview persists about one
// attempt: what was asked, what was answered, and how the evaluator graded it.
type ReviewSubmission struct {
	Question       string
	ExpectedAnswer string
	UserAnswer     string
	Quality        int
	Feedback       string
	TimeSpentSecs  int
}

// RecordReview applies one graded review to a card as a single transaction:
// SM-2 recurrence, counter updates, the mastery transition (which resolves
// the weak area in the same transaction), and the append-only event record.
// Either everything commits or nothing does.
func (s *ReviewService) RecordReview(ctx context.Context, cardID, userID uuid.UUID, sub ReviewSubmission, now time.Time) (*models.ReviewOutcome, error) {
	// Boundary check: the calculator clamps internally, but a rating outside
	// 0..5 arriving here means the caller bypassed the evaluator contract.
	if sub.Quality < 0 || sub.Quality > 5 {
		return nil, &ValidationError{Fields: map[string]string{"quality": "Quality must be between 0 and 5"}}
	}

	tx, err := s.cardRepo.Begin(ctx)
	if err != nil {
		return nil, &StorageError{Op: "begin review transaction", Err: err}
	}
	defer tx.Rollback(ctx)

	card, err := s.cardRepo.GetForUpdate(ctx, tx, cardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Review card not found"}
		}
		return nil, &StorageError{Op: "load card", Err: err}
	}

	if card.UserID != userID {
		return nil, &ForbiddenError{Message: "Card belongs to another learner"}
	}
	if !card.IsActive {
		return nil, &NotFoundError{Message: "Review card is no longer active"}
	}

	newlyMastered := applyReview(card, sub.Quality, now)

	if err := s.cardRepo.UpdateScheduling(ctx, tx, card); err != nil {
		return nil, &StorageError{Op: "update card", Err: err}
	}

	if newlyMastered {
		if err := s.cardRepo.ResolveWeakArea(ctx, tx, card.WeakAreaID, now); err != nil {
			return nil, &StorageError{Op: "resolve weak area", Err: err}
		}
	}

	event := &models.ReviewEvent{
		CardID:          card.ID,
		UserID:          userID,
		Quality:         sub.Quality,
		IsCorrect:       sub.Quality >= srs.PassingQuality,
		Question:        sub.Question,
		ExpectedAnswer:  sub.ExpectedAnswer,
		UserAnswer:      sub.UserAnswer,
		Feedback:        sub.Feedback,
		TimeSpentSecs:   sub.TimeSpentSecs,
		NewEaseFactor:   card.EaseFactor,
		NewIntervalDays: card.IntervalDays,
	}
	if err := s.eventRepo.Append(ctx, tx, event); err != nil {
		return nil, &StorageError{Op: "append review event", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &StorageError{Op: "commit review transaction", Err: err}
	}

	return &models.ReviewOutcome{
		CardID:          card.ID,
		Quality:         sub.Quality,
		IsCorrect:       event.IsCorrect,
		Feedback:        sub.Feedback,
		NewEaseFactor:   card.EaseFactor,
		NewIntervalDays: card.IntervalDays,
		NextReviewAt:    card.NextReviewAt,
		IsMastered:      card.IsMastered,
	}, nil
}

// applyReview mutates card with the outcome of one review and reports
// whether this review crossed the mastery threshold. Pure with respect to
// storage, so the transition rules are testable without a database.
func applyReview(card *models.ReviewCard, quality int, now time.Time) (newlyMastered bool) {
	next := srs.NextState(quality, srs.State{
		EaseFactor:   card.EaseFactor,
		IntervalDays: card.IntervalDays,
		Repetitions:  card.Repetitions,
	})

	// Running mean uses the pre-increment review count as its weight.
	card.AverageScore = (card.AverageScore*float64(card.TotalReviews) + float64(srs.ClampQuality(quality))) / float64(card.TotalReviews+1)

	card.EaseFactor = next.EaseFactor
	card.IntervalDays = next.IntervalDays
	card.Repetitions = next.Repetitions
	card.NextReviewAt = now.AddDate(0, 0, next.IntervalDays)
	reviewedAt := now
	card.LastReviewedAt = &reviewedAt

	card.TotalReviews++
	if quality >= srs.PassingQuality {
		card.SuccessfulReviews++
	} else {
		card.FailedReviews++
	}

	// Mastery is monotone: failures after the threshold never revert it.
	if !card.IsMastered && card.SuccessfulReviews >= MasteryThreshold {
		card.IsMastered = true
		masteredAt := now
		card.MasteredAt = &masteredAt
		return true
	}
	return false
}

// Stats aggregates the user's active cards: totals, due-today count, average
// ease, and rolling success rate.
func (s *ReviewService) Stats(ctx context.Context, userID uuid.UUID, now time.Time) (*models.ReviewStats, error) {
	stats, err := s.cardRepo.Stats(ctx, userID, now)
	if err != nil {
		return nil, &StorageError{Op: "stats", Err: err}
	}
	return stats, nil
}

// Upcoming buckets the user's scheduled reviews by calendar day from now
// through now + horizonDays inclusive. Days with nothing due appear with a
// zero count.
func (s *ReviewService) Upcoming(ctx context.Context, userID uuid.UUID, now time.Time, horizonDays int) ([]models.ForecastBucket, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultForecastDays
	}
	if horizonDays > maxForecastDays {
		horizonDays = maxForecastDays
	}

	times, err := s.cardRepo.UpcomingTimes(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "upcoming", Err: err}
	}

	return forecastBuckets(times, now, horizonDays), nil
}

// forecastBuckets produces one dense bucket per day. Overdue cards land in
// the "today" bucket; anything beyond the horizon is dropped.
func forecastBuckets(times []time.Time, now time.Time, horizonDays int) []models.ForecastBucket {
	today := now.Truncate(24 * time.Hour)

	buckets := make([]models.ForecastBucket, horizonDays+1)
	for i := range buckets {
		buckets[i] = models.ForecastBucket{
			Date: today.AddDate(0, 0, i).Format("2006-01-02"),
		}
	}

	for _, t := range times {
		day := int(t.Truncate(24 * time.Hour).Sub(today).Hours() / 24)
		if day < 0 {
			day = 0
		}
		if day > horizonDays {
			continue
		}
		buckets[day].DueCount++
	}

	return buckets
}
