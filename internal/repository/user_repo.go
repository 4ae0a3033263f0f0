package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mentora-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, grade_level)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	user.ID = uuid.New()
	user.IsActive = true
	user.DueRemindersOn = true

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.GradeLevel,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, full_name, grade_level, due_reminders_enabled, is_active, created_at, last_login_at
		FROM users WHERE email = $1`

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.GradeLevel,
		&user.DueRemindersOn, &user.IsActive, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, full_name, grade_level, due_reminders_enabled, is_active, created_at, last_login_at
		FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.GradeLevel,
		&user.DueRemindersOn, &user.IsActive, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) SetDueReminders(ctx context.Context, userID uuid.UUID, enabled bool) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET due_reminders_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

// ReminderRecipient is a user eligible for a due-review reminder email.
type ReminderRecipient struct {
	ID                 uuid.UUID
	Email              string
	FullName           string
	LastReminderSentAt *time.Time
}

// ListReminderRecipients returns active users with reminders enabled who have
// at least one card due as of now.
func (r *UserRepo) ListReminderRecipients(ctx context.Context, now time.Time) ([]ReminderRecipient, error) {
	query := `
		SELECT u.id, u.email, u.full_name, u.last_reminder_sent_at
		FROM users u
		WHERE u.is_active = TRUE
		  AND u.due_reminders_enabled = TRUE
		  AND EXISTS (
			SELECT 1 FROM review_cards c
			WHERE c.user_id = u.id
			  AND c.is_active = TRUE
			  AND c.is_mastered = FALSE
			  AND c.next_review_at <= $1
		  )`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []ReminderRecipient
	for rows.Next() {
		var rec ReminderRecipient
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.FullName, &rec.LastReminderSentAt); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *UserRepo) SetReminderSentAt(ctx context.Context, userID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_reminder_sent_at = $1 WHERE id = $2", at, userID)
	return err
}
