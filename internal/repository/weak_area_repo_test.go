package repository

import (
	"strings"
	"testing"
)

// A deactivated card must come back when its weak area is re-ingested: there
// is only ever one card per area, so the reopen reset is the sole path that
// can reactivate it.
func TestReopenCardResetQuery_CoversDeactivatedCards(t *testing.T) {
	q := strings.Join(strings.Fields(reopenCardResetQuery), " ")

	if !strings.Contains(q, "(is_mastered = TRUE OR is_active = FALSE)") {
		t.Fatalf("reset predicate must match mastered and deactivated cards, got: %s", q)
	}
	if !strings.Contains(q, "is_active = TRUE,") {
		t.Fatalf("reset must reactivate the card, got: %s", q)
	}
	for _, reset := range []string{"is_mastered = FALSE", "ease_factor = 2.5", "interval_days = 1", "repetitions = 0"} {
		if !strings.Contains(q, reset) {
			t.Errorf("reset missing %q", reset)
		}
	}
}
