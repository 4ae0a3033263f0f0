package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mentora-backend/internal/middleware"
	"mentora-backend/internal/models"
)

type stubCardStore struct {
	card *models.ReviewCard
	err  error
}

func (s *stubCardStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewCard, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.card, nil
}

func cardRequest(userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/cards/x/question", nil)
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

func TestLoadOwnedCard_MissingCardIs404(t *testing.T) {
	h := &ReviewHandler{cardRepo: &stubCardStore{err: pgx.ErrNoRows}}

	rr := httptest.NewRecorder()
	_, ok := h.loadOwnedCard(rr, cardRequest(uuid.New()), uuid.New())

	if ok {
		t.Fatalf("expected load to fail")
	}
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "NOT_FOUND") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestLoadOwnedCard_StorageFailureIs503(t *testing.T) {
	h := &ReviewHandler{cardRepo: &stubCardStore{err: errors.New("connection refused")}}

	rr := httptest.NewRecorder()
	_, ok := h.loadOwnedCard(rr, cardRequest(uuid.New()), uuid.New())

	if ok {
		t.Fatalf("expected load to fail")
	}
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "STORAGE_ERROR") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "connection refused") {
		t.Fatalf("driver details must not leak to clients: %s", rr.Body.String())
	}
}

func TestLoadOwnedCard_ForeignCardIs403(t *testing.T) {
	owner := uuid.New()
	h := &ReviewHandler{cardRepo: &stubCardStore{card: &models.ReviewCard{ID: uuid.New(), UserID: owner}}}

	rr := httptest.NewRecorder()
	_, ok := h.loadOwnedCard(rr, cardRequest(uuid.New()), uuid.New())

	if ok {
		t.Fatalf("expected load to fail")
	}
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
}

func TestLoadOwnedCard_OwnerSucceeds(t *testing.T) {
	owner := uuid.New()
	want := &models.ReviewCard{ID: uuid.New(), UserID: owner}
	h := &ReviewHandler{cardRepo: &stubCardStore{card: want}}

	rr := httptest.NewRecorder()
	card, ok := h.loadOwnedCard(rr, cardRequest(owner), want.ID)

	if !ok {
		t.Fatalf("expected load to succeed, body: %s", rr.Body.String())
	}
	if card.ID != want.ID {
		t.Fatalf("expected card %s, got %s", want.ID, card.ID)
	}
}
