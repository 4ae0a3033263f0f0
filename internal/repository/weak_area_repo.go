package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mentora-backend/internal/models"
)

type WeakAreaRepo struct {
	pool *pgxpool.Pool
}

func NewWeakAreaRepo(pool *pgxpool.Pool) *WeakAreaRepo {
	return &WeakAreaRepo{pool: pool}
}

// reopenCardResetQuery returns a reopened area's card to the rotation. It must
// match both mastered and deactivated cards: EnsureCards never inserts a
// second card for an area, so a card left inactive here would keep the topic
// out of the due queue permanently.
const reopenCardResetQuery = `
	UPDATE review_cards SET
		is_mastered = FALSE, mastered_at = NULL, is_active = TRUE,
		ease_factor = 2.5, interval_days = 1, repetitions = 0,
		next_review_at = $2
	WHERE weak_area_id = $1 AND (is_mastered = TRUE OR is_active = FALSE)`

// Upsert records a weak area delivered by the upstream analyzer. A repeat
// delivery for the same (user, subject, topic) accumulates error and attempt
// counts and reopens the area if it had been resolved. Reopening starts a new
// learning episode: a previously mastered or deactivated card is reset to
// fresh scheduling state in the same transaction, so the area re-enters the
// review rotation.
func (r *WeakAreaRepo) Upsert(ctx context.Context, wa *models.WeakArea) error {
	if wa.ID == uuid.Nil {
		wa.ID = uuid.New()
	}
	if wa.LastErrorAt.IsZero() {
		wa.LastErrorAt = time.Now()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO weak_areas (id, user_id, subject, grade_level, topic, error_category, error_count, attempt_count, last_error_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, subject, topic) DO UPDATE SET
			error_count = weak_areas.error_count + EXCLUDED.error_count,
			attempt_count = weak_areas.attempt_count + EXCLUDED.attempt_count,
			error_category = COALESCE(EXCLUDED.error_category, weak_areas.error_category),
			last_error_at = EXCLUDED.last_error_at,
			is_resolved = FALSE,
			resolved_at = NULL
		RETURNING id, is_resolved, resolved_at, created_at`

	err = tx.QueryRow(ctx, query,
		wa.ID, wa.UserID, wa.Subject, wa.GradeLevel, wa.Topic, wa.ErrorCategory,
		wa.ErrorCount, wa.AttemptCount, wa.LastErrorAt,
	).Scan(&wa.ID, &wa.IsResolved, &wa.ResolvedAt, &wa.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, reopenCardResetQuery, wa.ID, wa.LastErrorAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *WeakAreaRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WeakArea, error) {
	wa := &models.WeakArea{}
	query := `SELECT id, user_id, subject, grade_level, topic, error_category, error_count, attempt_count,
			last_error_at, is_resolved, resolved_at, created_at
		FROM weak_areas WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&wa.ID, &wa.UserID, &wa.Subject, &wa.GradeLevel, &wa.Topic, &wa.ErrorCategory,
		&wa.ErrorCount, &wa.AttemptCount, &wa.LastErrorAt, &wa.IsResolved, &wa.ResolvedAt, &wa.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return wa, nil
}

func (r *WeakAreaRepo) ListByUser(ctx context.Context, userID uuid.UUID, includeResolved bool) ([]*models.WeakArea, error) {
	query := `SELECT id, user_id, subject, grade_level, topic, error_category, error_count, attempt_count,
			last_error_at, is_resolved, resolved_at, created_at
		FROM weak_areas
		WHERE user_id = $1 AND ($2 OR is_resolved = FALSE)
		ORDER BY last_error_at DESC`

	rows, err := r.pool.Query(ctx, query, userID, includeResolved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []*models.WeakArea
	for rows.Next() {
		wa := &models.WeakArea{}
		err := rows.Scan(
			&wa.ID, &wa.UserID, &wa.Subject, &wa.GradeLevel, &wa.Topic, &wa.ErrorCategory,
			&wa.ErrorCount, &wa.AttemptCount, &wa.LastErrorAt, &wa.IsResolved, &wa.ResolvedAt, &wa.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		areas = append(areas, wa)
	}
	return areas, rows.Err()
}

// Counts returns total and unresolved weak-area counts for the dashboard.
func (r *WeakAreaRepo) Counts(ctx context.Context, userID uuid.UUID) (total, unresolved int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_resolved = FALSE)
		FROM weak_areas WHERE user_id = $1
	`, userID).Scan(&total, &unresolved)
	return total, unresolved, err
}

// Deactivate retires the card attached to a weak area when the area is
// externally invalidated. Rows are never deleted, only deactivated.
func (r *WeakAreaRepo) Deactivate(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE review_cards SET is_active = FALSE
		WHERE weak_area_id = $1 AND user_id = $2
	`, id, userID)
	return err
}
