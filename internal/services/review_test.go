package services

import (
	"math"
	"testing"
	"time"

	"mentora-backend/internal/models"
	"mentora-backend/internal/srs"
)

func newTestCard() *models.ReviewCard {
	return &models.ReviewCard{
		EaseFactor:   srs.InitialEaseFactor,
		IntervalDays: 1,
		Repetitions:  0,
		IsActive:     true,
	}
}

func TestApplyReview_CountersAndAverage(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	card := newTestCard()

	applyReview(card, 5, now)
	if card.TotalReviews != 1 || card.SuccessfulReviews != 1 || card.FailedReviews != 0 {
		t.Errorf("after quality 5: counters = %d/%d/%d", card.TotalReviews, card.SuccessfulReviews, card.FailedReviews)
	}
	if card.AverageScore != 5 {
		t.Errorf("expected average 5, got %v", card.AverageScore)
	}

	applyReview(card, 2, now)
	if card.TotalReviews != 2 || card.SuccessfulReviews != 1 || card.FailedReviews != 1 {
		t.Errorf("after quality 2: counters = %d/%d/%d", card.TotalReviews, card.SuccessfulReviews, card.FailedReviews)
	}
	// (5*1 + 2) / 2: the running mean divides by the pre-increment count + 1.
	if math.Abs(card.AverageScore-3.5) > 1e-9 {
		t.Errorf("expected average 3.5, got %v", card.AverageScore)
	}

	applyReview(card, 4, now)
	// (3.5*2 + 4) / 3
	want := (3.5*2 + 4) / 3
	if math.Abs(card.AverageScore-want) > 1e-9 {
		t.Errorf("expected average %v, got %v", want, card.AverageScore)
	}
}

func TestApplyReview_FailureNeverResetsCumulativeCounters(t *testing.T) {
	now := time.Now()
	card := newTestCard()

	applyReview(card, 5, now)
	applyReview(card, 4, now)
	applyReview(card, 0, now)

	if card.Repetitions != 0 {
		t.Errorf("expected repetition chain reset, got %d", card.Repetitions)
	}
	if card.IntervalDays != 1 {
		t.Errorf("expected interval reset to 1, got %d", card.IntervalDays)
	}
	if card.SuccessfulReviews != 2 {
		t.Errorf("successful reviews must survive a failure, got %d", card.SuccessfulReviews)
	}
	if card.FailedReviews != 1 {
		t.Errorf("expected 1 failed review, got %d", card.FailedReviews)
	}
}

func TestApplyReview_MasteryTransition(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	card := newTestCard()

	// Four successes: still short of the threshold.
	for i := 0; i < MasteryThreshold-1; i++ {
		if got := applyReview(card, 4, now); got {
			t.Fatalf("review %d should not trigger mastery", i+1)
		}
	}
	if card.IsMastered {
		t.Fatal("card mastered before threshold")
	}

	// The fifth success crosses the threshold, even at the lowest passing
	// quality.
	if got := applyReview(card, 3, now); !got {
		t.Fatal("fifth successful review should report a new mastery transition")
	}
	if !card.IsMastered {
		t.Fatal("card should be mastered")
	}
	if card.MasteredAt == nil || !card.MasteredAt.Equal(now) {
		t.Errorf("expected mastered_at %v, got %v", now, card.MasteredAt)
	}
}

func TestApplyReview_MasteryIsMonotone(t *testing.T) {
	now := time.Now()
	card := newTestCard()

	for i := 0; i < MasteryThreshold; i++ {
		applyReview(card, 5, now)
	}
	if !card.IsMastered {
		t.Fatal("setup: card should be mastered")
	}
	masteredAt := *card.MasteredAt

	// Subsequent failures never revert mastery, and never re-report the
	// transition.
	for _, q := range []int{0, 1, 2, 0} {
		if got := applyReview(card, q, now.Add(time.Hour)); got {
			t.Errorf("quality %d after mastery reported a new transition", q)
		}
		if !card.IsMastered {
			t.Fatalf("quality %d reverted mastery", q)
		}
	}
	if !card.MasteredAt.Equal(masteredAt) {
		t.Errorf("mastered_at changed from %v to %v", masteredAt, card.MasteredAt)
	}
}

func TestApplyReview_SchedulesNextReview(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	card := newTestCard()
	card.EaseFactor = 2.6
	card.IntervalDays = 6
	card.Repetitions = 2

	applyReview(card, 4, now)

	wantInterval := int(math.Round(6 * 2.6))
	if card.IntervalDays != wantInterval {
		t.Errorf("expected interval %d, got %d", wantInterval, card.IntervalDays)
	}
	wantNext := now.AddDate(0, 0, wantInterval)
	if !card.NextReviewAt.Equal(wantNext) {
		t.Errorf("expected next review at %v, got %v", wantNext, card.NextReviewAt)
	}
	if card.LastReviewedAt == nil || !card.LastReviewedAt.Equal(now) {
		t.Errorf("expected last reviewed at %v, got %v", now, card.LastReviewedAt)
	}
}

func TestForecastBuckets_DenseOutput(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	times := []time.Time{
		now.Add(-48 * time.Hour),          // overdue, lands in today's bucket
		now.Add(2 * time.Hour),            // today
		now.AddDate(0, 0, 2),              // day 2
		now.AddDate(0, 0, 2).Add(time.Hour),
		now.AddDate(0, 0, 7),              // last day of horizon
		now.AddDate(0, 0, 12),             // beyond horizon, dropped
	}

	buckets := forecastBuckets(times, now, 7)

	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets (day 0 through 7), got %d", len(buckets))
	}

	wantCounts := []int{2, 0, 2, 0, 0, 0, 0, 1}
	for i, want := range wantCounts {
		if buckets[i].DueCount != want {
			t.Errorf("day %d: expected %d due, got %d", i, want, buckets[i].DueCount)
		}
	}

	// Dates are consecutive calendar days.
	for i, b := range buckets {
		want := now.Truncate(24 * time.Hour).AddDate(0, 0, i).Format("2006-01-02")
		if b.Date != want {
			t.Errorf("day %d: expected date %s, got %s", i, want, b.Date)
		}
	}
}

func TestForecastBuckets_EmptySchedule(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	buckets := forecastBuckets(nil, now, 3)
	if len(buckets) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(buckets))
	}
	for i, b := range buckets {
		if b.DueCount != 0 {
			t.Errorf("day %d: expected 0 due, got %d", i, b.DueCount)
		}
	}
}
