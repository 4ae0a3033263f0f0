package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mentora-backend/internal/models"
)

type ReviewEventRepo struct {
	pool *pgxpool.Pool
}

func NewReviewEventRepo(pool *pgxpool.Pool) *ReviewEventRepo {
	return &ReviewEventRepo{pool: pool}
}

// Append inserts the immutable record of one review attempt inside tx. Events
// are never updated or deleted.
func (r *ReviewEventRepo) Append(ctx context.Context, tx pgx.Tx, e *models.ReviewEvent) error {
	e.ID = uuid.New()

	query := `
		INSERT INTO review_events (id, card_id, user_id, quality, is_correct, question, expected_answer,
			user_answer, feedback, time_spent_seconds, new_ease_factor, new_interval_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	return tx.QueryRow(ctx, query,
		e.ID, e.CardID, e.UserID, e.Quality, e.IsCorrect, e.Question, e.ExpectedAnswer,
		e.UserAnswer, e.Feedback, e.TimeSpentSecs, e.NewEaseFactor, e.NewIntervalDays,
	).Scan(&e.CreatedAt)
}

func (r *ReviewEventRepo) ListByCard(ctx context.Context, cardID uuid.UUID, limit int) ([]*models.ReviewEvent, error) {
	query := `
		SELECT id, card_id, user_id, quality, is_correct, question, expected_answer,
			user_answer, feedback, time_spent_seconds, new_ease_factor, new_interval_days, created_at
		FROM review_events
		WHERE card_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, cardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.ReviewEvent
	for rows.Next() {
		e := &models.ReviewEvent{}
		err := rows.Scan(
			&e.ID, &e.CardID, &e.UserID, &e.Quality, &e.IsCorrect, &e.Question, &e.ExpectedAnswer,
			&e.UserAnswer, &e.Feedback, &e.TimeSpentSecs, &e.NewEaseFactor, &e.NewIntervalDays, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
