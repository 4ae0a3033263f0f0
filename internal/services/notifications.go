package services

import (
	"context"
	"log"
	"time"

	"mentora-backend/internal/repository"
)

const (
	dueReminderInterval      = 24 * time.Hour
	notificationPollInterval = 1 * time.Hour
)

// NotificationScheduler emails learners whose review queue is non-empty, at
// most once per day per learner. It reads due counts only; scheduling state
// is never touched from here.
type NotificationScheduler struct {
	userRepo *repository.UserRepo
	cardRepo *repository.ReviewCardRepo
	email    *EmailService
	stopChan chan struct{}
}

func NewNotificationScheduler(userRepo *repository.UserRepo, cardRepo *repository.ReviewCardRepo, email *EmailService) *NotificationScheduler {
	return &NotificationScheduler{
		userRepo: userRepo,
		cardRepo: cardRepo,
		email:    email,
		stopChan: make(chan struct{}),
	}
}

func (s *NotificationScheduler) Start() {
	if s.userRepo == nil || s.email == nil {
		return
	}

	go s.loop()

	log.Printf("Notification scheduler started")
}

func (s *NotificationScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *NotificationScheduler) loop() {
	// Run on startup as well as by interval.
	s.sendDueReminders(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(notificationPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sendDueReminders(context.Background(), time.Now().UTC())
		}
	}
}

func (s *NotificationScheduler) sendDueReminders(ctx context.Context, now time.Time) {
	recipients, err := s.userRepo.ListReminderRecipients(ctx, now)
	if err != nil {
		log.Printf("due reminders: failed to list recipients: %v", err)
		return
	}

	for _, recipient := range recipients {
		if recipient.LastReminderSentAt != nil && now.Sub(*recipient.LastReminderSentAt) < dueReminderInterval {
			continue
		}

		dueCount, countErr := s.cardRepo.DueCount(ctx, recipient.ID, now)
		if countErr != nil {
			log.Printf("due reminders: failed to count due cards for user %s: %v", recipient.ID, countErr)
			continue
		}
		if dueCount == 0 {
			continue
		}

		if err := s.email.SendDueReviewsEmail(recipient.Email, recipient.FullName, dueCount); err != nil {
			log.Printf("due reminders: failed to send to %s: %v", recipient.Email, err)
			continue
		}

		if err := s.userRepo.SetReminderSentAt(ctx, recipient.ID, now); err != nil {
			log.Printf("due reminders: failed to persist last sent at for user %s: %v", recipient.ID, err)
		}
	}
}
