package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mentora-backend/internal/models"
	"mentora-backend/internal/services"
)

// ─── Error Mapping Tests ───

func TestHandleServiceError_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"quality": "bad"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", &services.ConflictError{Message: "exists"}, http.StatusConflict, "CONFLICT"},
		{"not found", &services.NotFoundError{Message: "missing"}, http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", &services.UnauthorizedError{Message: "bad creds"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", &services.ForbiddenError{Message: "not yours"}, http.StatusForbidden, "FORBIDDEN"},
		{"rate limited", &services.RateLimitError{Message: "slow down"}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"storage", &services.StorageError{Op: "commit", Err: errors.New("conn reset")}, http.StatusServiceUnavailable, "STORAGE_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", "req-123")

			handleServiceError(rr, req, tc.err)

			if rr.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rr.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Error.Code != tc.wantCode {
				t.Errorf("Expected code %q, got %q", tc.wantCode, resp.Error.Code)
			}
			if resp.Error.RequestID != "req-123" {
				t.Errorf("Expected request ID to be echoed, got %q", resp.Error.RequestID)
			}
		})
	}
}

func TestHandleServiceError_StorageDetailsHidden(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handleServiceError(rr, req, &services.StorageError{Op: "load card", Err: errors.New("dial tcp 10.0.0.5:5432")})

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if bytes.Contains([]byte(resp.Error.Message), []byte("10.0.0.5")) {
		t.Error("Storage error message leaked internal details to the client")
	}
}

func TestHandleServiceError_ValidationFields(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	handleServiceError(rr, req, &services.ValidationError{Fields: map[string]string{
		"subject": "Subject is required",
		"topic":   "Topic is required",
	}})

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error.Fields["subject"] != "Subject is required" {
		t.Errorf("Expected subject field error, got %q", resp.Error.Fields["subject"])
	}
	if len(resp.Error.Fields) != 2 {
		t.Errorf("Expected 2 field errors, got %d", len(resp.Error.Fields))
	}
}

// ─── JSON Helper Tests ───

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusCreated, map[string]int{"cards_created": 3})

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", rr.Header().Get("Content-Type"))
	}

	var result map[string]int
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["cards_created"] != 3 {
		t.Errorf("Expected cards_created 3, got %d", result["cards_created"])
	}
}

// ─── Request Parsing Tests ───

func TestSubmitReviewRequest_Parsing(t *testing.T) {
	body := map[string]interface{}{
		"answer":             "Photosynthesis converts light into chemical energy.",
		"time_spent_seconds": 42,
	}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/cards/abc/submit", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	var parsed models.SubmitReviewRequest
	if err := json.NewDecoder(req.Body).Decode(&parsed); err != nil {
		t.Fatalf("Failed to parse request body: %v", err)
	}

	if parsed.Answer != "Photosynthesis converts light into chemical energy." {
		t.Errorf("Unexpected answer: %q", parsed.Answer)
	}
	if parsed.TimeSpentSecs != 42 {
		t.Errorf("Expected time_spent_seconds 42, got %d", parsed.TimeSpentSecs)
	}
}

func TestIngestWeakAreaRequest_Parsing(t *testing.T) {
	body := map[string]interface{}{
		"subject":        "math",
		"grade_level":    7,
		"topic":          "fractions",
		"error_category": "conceptual",
		"error_count":    2,
		"attempt_count":  5,
	}
	jsonBody, _ := json.Marshal(body)

	var parsed models.IngestWeakAreaRequest
	if err := json.NewDecoder(bytes.NewReader(jsonBody)).Decode(&parsed); err != nil {
		t.Fatalf("Failed to parse request body: %v", err)
	}

	if parsed.Subject != "math" || parsed.Topic != "fractions" {
		t.Errorf("Unexpected subject/topic: %q/%q", parsed.Subject, parsed.Topic)
	}
	if parsed.GradeLevel != 7 {
		t.Errorf("Expected grade_level 7, got %d", parsed.GradeLevel)
	}
	if parsed.ErrorCategory == nil || *parsed.ErrorCategory != "conceptual" {
		t.Errorf("Expected error_category 'conceptual', got %v", parsed.ErrorCategory)
	}
}

// ─── Response Shape Tests ───

func TestReviewQuestion_HidesExpectedAnswer(t *testing.T) {
	q := models.ReviewQuestion{
		Question:       "Explain why 1/2 + 1/3 is not 2/5.",
		ExpectedAnswer: "Fractions need a common denominator before adding.",
		Topic:          "fractions",
		Subject:        "math",
	}

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("Failed to marshal question: %v", err)
	}

	if bytes.Contains(data, []byte("common denominator")) {
		t.Error("Expected answer leaked into the client response")
	}
	if !bytes.Contains(data, []byte("Explain why")) {
		t.Error("Question text missing from the client response")
	}
}
