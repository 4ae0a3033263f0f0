package services

import "testing"

func TestParseEvaluation_PlainJSON(t *testing.T) {
	raw := `{"quality": 4, "is_correct": true, "feedback": "Nearly perfect, just name the units."}`

	ev, err := parseEvaluation(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Quality != 4 {
		t.Errorf("expected quality 4, got %d", ev.Quality)
	}
	if !ev.IsCorrect {
		t.Error("expected is_correct true")
	}
}

func TestParseEvaluation_FencedJSON(t *testing.T) {
	raw := "```json\n{\"quality\": 2, \"is_correct\": false, \"feedback\": \"Close, but the sign flips.\"}\n```"

	ev, err := parseEvaluation(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Quality != 2 || ev.IsCorrect {
		t.Errorf("unexpected evaluation: %+v", ev)
	}
}

func TestParseEvaluation_JSONBuriedInProse(t *testing.T) {
	raw := `Here is the grading you asked for: {"quality": 5, "is_correct": true, "feedback": "Excellent."} Hope that helps!`

	ev, err := parseEvaluation(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Quality != 5 {
		t.Errorf("expected quality 5, got %d", ev.Quality)
	}
}

func TestParseEvaluation_OutOfRangeQualityClamped(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`{"quality": 9, "is_correct": true, "feedback": "ok"}`, 5},
		{`{"quality": -1, "is_correct": false, "feedback": "ok"}`, 0},
	}

	for _, tc := range tests {
		ev, err := parseEvaluation(tc.raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.Quality != tc.want {
			t.Errorf("expected quality clamped to %d, got %d", tc.want, ev.Quality)
		}
	}
}

func TestParseEvaluation_Garbage(t *testing.T) {
	if _, err := parseEvaluation("I cannot grade this answer."); err == nil {
		t.Error("expected error for non-JSON response")
	}
}

func TestParseGeneratedQuestion(t *testing.T) {
	raw := "```json\n{\"question\": \"Why does ice float on water?\", \"expected_answer\": \"Water expands as it freezes, so ice is less dense than liquid water.\"}\n```"

	q, err := parseGeneratedQuestion(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Question == "" || q.ExpectedAnswer == "" {
		t.Errorf("unexpected question: %+v", q)
	}
}

func TestParseGeneratedQuestion_MissingFields(t *testing.T) {
	tests := []string{
		`{"question": "", "expected_answer": "something"}`,
		`{"question": "What is x?", "expected_answer": ""}`,
		`{}`,
	}

	for _, raw := range tests {
		if _, err := parseGeneratedQuestion(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}
