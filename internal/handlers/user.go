package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"mentora-backend/internal/middleware"
	"mentora-backend/internal/models"
	"mentora-backend/internal/repository"
)

type userStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetDueReminders(ctx context.Context, userID uuid.UUID, enabled bool) error
}

// UserHandler serves the profile and notification settings surface.
type UserHandler struct {
	users userStore
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"due_reminders_enabled": user.DueRemindersOn})
}

// UpdateSettings toggles the due-review reminder emails that the notification
// scheduler sends.
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		DueRemindersOn *bool `json:"due_reminders_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DueRemindersOn == nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "due_reminders_enabled is required", r))
		return
	}

	if err := h.users.SetDueReminders(r.Context(), userID, *req.DueRemindersOn); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update settings", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"due_reminders_enabled": *req.DueRemindersOn})
}
