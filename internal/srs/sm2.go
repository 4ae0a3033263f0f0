// Package srs implements the SM-2 spaced-repetition recurrence used to
// schedule weak-area review cards.
package srs

import "math"

const (
	// InitialEaseFactor seeds newly created cards.
	InitialEaseFactor = 2.5
	// MinEaseFactor is the floor below which a card's ease never drops.
	MinEaseFactor = 1.3
	// MaxIntervalDays caps how far out a review can be scheduled.
	MaxIntervalDays = 365

	// PassingQuality is the lowest quality rating counted as a successful
	// recall. Anything below it resets the repetition chain.
	PassingQuality = 3

	failureEasePenalty = 0.2
)

// State is a card's scheduling state as seen by the recurrence.
type State struct {
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
}

// NewState returns the scheduling state seeded onto a freshly created card.
func NewState() State {
	return State{EaseFactor: InitialEaseFactor, IntervalDays: 1, Repetitions: 0}
}

// ClampQuality forces a rating into the 0..5 range the recurrence expects.
func ClampQuality(quality int) int {
	if quality < 0 {
		return 0
	}
	if quality > 5 {
		return 5
	}
	return quality
}

// NextState applies one review with the given quality rating (0..5) and
// returns the resulting scheduling state. Pure function, no clock access.
//
// Failed recalls (quality < 3) reset the repetition chain: interval back to
// one day, ease reduced by a flat penalty. Successful recalls follow the
// standard SM-2 progression: 1 day, 6 days, then interval * ease, with the
// ease factor adjusted by EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)).
func NextState(quality int, cur State) State {
	q := ClampQuality(quality)

	next := State{}
	if q < PassingQuality {
		next.EaseFactor = cur.EaseFactor - failureEasePenalty
		next.IntervalDays = 1
		next.Repetitions = 0
	} else {
		qf := float64(q)
		next.EaseFactor = cur.EaseFactor + (0.1 - (5-qf)*(0.08+(5-qf)*0.02))
		if next.EaseFactor < MinEaseFactor {
			next.EaseFactor = MinEaseFactor
		}
		next.Repetitions = cur.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(cur.IntervalDays) * next.EaseFactor))
		}
	}

	if next.EaseFactor < MinEaseFactor {
		next.EaseFactor = MinEaseFactor
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}
	if next.IntervalDays > MaxIntervalDays {
		next.IntervalDays = MaxIntervalDays
	}

	return next
}
