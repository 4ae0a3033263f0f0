package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"mentora-backend/internal/middleware"
	"mentora-backend/internal/models"
)

type stubUserStore struct {
	user       *models.User
	setErr     error
	setCalled  bool
	setEnabled bool
}

func (s *stubUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil {
		return nil, errors.New("user not found")
	}
	return s.user, nil
}

func (s *stubUserStore) SetDueReminders(ctx context.Context, userID uuid.UUID, enabled bool) error {
	s.setCalled = true
	s.setEnabled = enabled
	return s.setErr
}

func settingsRequest(userID uuid.UUID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/api/v1/user/settings", strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUserHandler_UpdateSettings_DisablesReminders(t *testing.T) {
	userID := uuid.New()
	store := &stubUserStore{user: &models.User{ID: userID, DueRemindersOn: true}}
	h := &UserHandler{users: store}

	rr := httptest.NewRecorder()
	h.UpdateSettings(rr, settingsRequest(userID, `{"due_reminders_enabled":false}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !store.setCalled {
		t.Fatalf("expected SetDueReminders to be called")
	}
	if store.setEnabled {
		t.Fatalf("expected reminders to be disabled")
	}
}

func TestUserHandler_UpdateSettings_MissingField(t *testing.T) {
	userID := uuid.New()
	store := &stubUserStore{user: &models.User{ID: userID}}
	h := &UserHandler{users: store}

	rr := httptest.NewRecorder()
	h.UpdateSettings(rr, settingsRequest(userID, `{}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if store.setCalled {
		t.Fatalf("settings should not be written for an empty body")
	}
}

func TestUserHandler_UpdateSettings_RepoFailure(t *testing.T) {
	userID := uuid.New()
	store := &stubUserStore{
		user:   &models.User{ID: userID},
		setErr: errors.New("db unavailable"),
	}
	h := &UserHandler{users: store}

	rr := httptest.NewRecorder()
	h.UpdateSettings(rr, settingsRequest(userID, `{"due_reminders_enabled":true}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
}

func TestUserHandler_GetSettings_ReturnsCurrentValue(t *testing.T) {
	userID := uuid.New()
	store := &stubUserStore{user: &models.User{ID: userID, DueRemindersOn: true}}
	h := &UserHandler{users: store}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/settings", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))

	rr := httptest.NewRecorder()
	h.GetSettings(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"due_reminders_enabled":true`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}
