package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mentora-backend/internal/models"
)

type ReviewCardRepo struct {
	pool *pgxpool.Pool
}

func NewReviewCardRepo(pool *pgxpool.Pool) *ReviewCardRepo {
	return &ReviewCardRepo{pool: pool}
}

// EnsureCards creates one card for every unresolved weak area of the user
// that has none yet, seeded so the new card is reviewable immediately.
// Idempotent: the unique index on weak_area_id makes a concurrent duplicate
// insert a no-op rather than a race.
func (r *ReviewCardRepo) EnsureCards(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO review_cards (id, user_id, weak_area_id, ease_factor, interval_days, repetitions, next_review_at)
		SELECT gen_random_uuid(), wa.user_id, wa.id, 2.5, 1, 0, $2
		FROM weak_areas wa
		WHERE wa.user_id = $1
		  AND wa.is_resolved = FALSE
		  AND NOT EXISTS (SELECT 1 FROM review_cards c WHERE c.weak_area_id = wa.id)
		ON CONFLICT (weak_area_id) DO NOTHING
	`, userID, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DueCards returns up to limit active, non-mastered cards whose next review
// time has passed, most overdue first, lowest ease first among ties.
func (r *ReviewCardRepo) DueCards(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*models.ReviewCard, error) {
	query := `
		SELECT c.id, c.user_id, c.weak_area_id, c.ease_factor, c.interval_days, c.repetitions,
			c.next_review_at, c.last_reviewed_at, c.total_reviews, c.successful_reviews, c.failed_reviews,
			c.average_score, c.is_mastered, c.mastered_at, c.is_active, c.created_at,
			wa.topic, wa.subject, wa.grade_level, wa.error_category
		FROM review_cards c
		JOIN weak_areas wa ON wa.id = c.weak_area_id
		WHERE c.user_id = $1
		  AND c.is_active = TRUE
		  AND c.is_mastered = FALSE
		  AND c.next_review_at <= $2
		ORDER BY c.next_review_at ASC, c.ease_factor ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, userID, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCards(rows)
}

func (r *ReviewCardRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewCard, error) {
	query := cardSelect + ` WHERE c.id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanCard(row)
}

// GetForUpdate reads a card inside tx with a row lock, serializing concurrent
// reviews of the same card while leaving other cards untouched.
func (r *ReviewCardRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.ReviewCard, error) {
	query := `
		SELECT c.id, c.user_id, c.weak_area_id, c.ease_factor, c.interval_days, c.repetitions,
			c.next_review_at, c.last_reviewed_at, c.total_reviews, c.successful_reviews, c.failed_reviews,
			c.average_score, c.is_mastered, c.mastered_at, c.is_active, c.created_at
		FROM review_cards c
		WHERE c.id = $1
		FOR UPDATE`

	c := &models.ReviewCard{}
	err := tx.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.WeakAreaID, &c.EaseFactor, &c.IntervalDays, &c.Repetitions,
		&c.NextReviewAt, &c.LastReviewedAt, &c.TotalReviews, &c.SuccessfulReviews, &c.FailedReviews,
		&c.AverageScore, &c.IsMastered, &c.MasteredAt, &c.IsActive, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateScheduling persists the card's post-review state inside tx.
func (r *ReviewCardRepo) UpdateScheduling(ctx context.Context, tx pgx.Tx, c *models.ReviewCard) error {
	_, err := tx.Exec(ctx, `
		UPDATE review_cards SET
			ease_factor = $1, interval_days = $2, repetitions = $3,
			next_review_at = $4, last_reviewed_at = $5,
			total_reviews = $6, successful_reviews = $7, failed_reviews = $8,
			average_score = $9, is_mastered = $10, mastered_at = $11
		WHERE id = $12
	`, c.EaseFactor, c.IntervalDays, c.Repetitions,
		c.NextReviewAt, c.LastReviewedAt,
		c.TotalReviews, c.SuccessfulReviews, c.FailedReviews,
		c.AverageScore, c.IsMastered, c.MasteredAt, c.ID)
	return err
}

// ResolveWeakArea marks the weak area resolved inside the same transaction
// that records the mastery transition.
func (r *ReviewCardRepo) ResolveWeakArea(ctx context.Context, tx pgx.Tx, weakAreaID uuid.UUID, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE weak_areas SET is_resolved = TRUE, resolved_at = $1 WHERE id = $2
	`, at, weakAreaID)
	return err
}

func (r *ReviewCardRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Stats aggregates over the user's active cards.
func (r *ReviewCardRepo) Stats(ctx context.Context, userID uuid.UUID, now time.Time) (*models.ReviewStats, error) {
	stats := &models.ReviewStats{}

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_mastered = FALSE AND next_review_at <= $2),
			COUNT(*) FILTER (WHERE is_mastered = TRUE),
			COALESCE(AVG(ease_factor), 0),
			COALESCE(SUM(total_reviews), 0),
			COALESCE(SUM(successful_reviews), 0)::float8
		FROM review_cards
		WHERE user_id = $1 AND is_active = TRUE
	`, userID, now).Scan(
		&stats.TotalCards, &stats.DueToday, &stats.MasteredCards,
		&stats.AverageEaseFactor, &stats.TotalReviews, &stats.SuccessRate,
	)
	if err != nil {
		return nil, err
	}

	// SuccessRate currently holds the successful-review sum; convert it to a
	// percentage, guarding the empty history case.
	successful := stats.SuccessRate
	if stats.TotalReviews > 0 {
		stats.SuccessRate = successful / float64(stats.TotalReviews) * 100
	} else {
		stats.SuccessRate = 0
	}

	return stats, nil
}

// UpcomingTimes returns the next-review timestamps of every active,
// non-mastered card of the user. Bucketing into calendar days happens in the
// service so it can be tested without a database.
func (r *ReviewCardRepo) UpcomingTimes(ctx context.Context, userID uuid.UUID) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT next_review_at FROM review_cards
		WHERE user_id = $1 AND is_active = TRUE AND is_mastered = FALSE
		ORDER BY next_review_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// DueCount is used by the reminder scheduler and the ingest worker.
func (r *ReviewCardRepo) DueCount(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM review_cards
		WHERE user_id = $1 AND is_active = TRUE AND is_mastered = FALSE AND next_review_at <= $2
	`, userID, now).Scan(&count)
	return count, err
}

const cardSelect = `
	SELECT c.id, c.user_id, c.weak_area_id, c.ease_factor, c.interval_days, c.repetitions,
		c.next_review_at, c.last_reviewed_at, c.total_reviews, c.successful_reviews, c.failed_reviews,
		c.average_score, c.is_mastered, c.mastered_at, c.is_active, c.created_at,
		wa.topic, wa.subject, wa.grade_level, wa.error_category
	FROM review_cards c
	JOIN weak_areas wa ON wa.id = c.weak_area_id`

func scanCard(row pgx.Row) (*models.ReviewCard, error) {
	c := &models.ReviewCard{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.WeakAreaID, &c.EaseFactor, &c.IntervalDays, &c.Repetitions,
		&c.NextReviewAt, &c.LastReviewedAt, &c.TotalReviews, &c.SuccessfulReviews, &c.FailedReviews,
		&c.AverageScore, &c.IsMastered, &c.MasteredAt, &c.IsActive, &c.CreatedAt,
		&c.Topic, &c.Subject, &c.GradeLevel, &c.Category,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanCards(rows pgx.Rows) ([]*models.ReviewCard, error) {
	cards := []*models.ReviewCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
