package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mentora-backend/internal/middleware"
	"mentora-backend/internal/models"
	"mentora-backend/internal/repository"
	"mentora-backend/internal/worker"
)

type WeakAreaHandler struct {
	weakAreas *repository.WeakAreaRepo
	redis     *redis.Client
}

func NewWeakAreaHandler(weakAreas *repository.WeakAreaRepo, redisClient *redis.Client) *WeakAreaHandler {
	return &WeakAreaHandler{weakAreas: weakAreas, redis: redisClient}
}

// Ingest records one observed mistake. Repeated mistakes on the same
// (subject, topic) accumulate onto the existing weak area. Card creation is
// handed to the worker queue so the caller is not blocked on it.
func (h *WeakAreaHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.IngestWeakAreaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	req.Subject = strings.TrimSpace(req.Subject)
	req.Topic = strings.TrimSpace(req.Topic)

	fields := map[string]string{}
	if req.Subject == "" {
		fields["subject"] = "Subject is required"
	}
	if req.Topic == "" {
		fields["topic"] = "Topic is required"
	}
	if req.GradeLevel < 0 || req.GradeLevel > 12 {
		fields["grade_level"] = "Grade level must be between 0 and 12"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid weak area", fields, r))
		return
	}

	if req.ErrorCount <= 0 {
		req.ErrorCount = 1
	}
	if req.AttemptCount < req.ErrorCount {
		req.AttemptCount = req.ErrorCount
	}

	area := &models.WeakArea{
		UserID:        userID,
		Subject:       req.Subject,
		GradeLevel:    req.GradeLevel,
		Topic:         req.Topic,
		ErrorCategory: req.ErrorCategory,
		ErrorCount:    req.ErrorCount,
		AttemptCount:  req.AttemptCount,
		LastErrorAt:   time.Now().UTC(),
	}
	if err := h.weakAreas.Upsert(r.Context(), area); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record weak area", r))
		return
	}

	// Card creation is best effort here; the due-queue read path ensures
	// cards on demand as well.
	worker.EnqueueIngest(r.Context(), h.redis, userID)

	writeJSON(w, http.StatusCreated, area)
}

// List returns the caller's weak areas, unresolved only unless asked.
func (h *WeakAreaHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	includeResolved := r.URL.Query().Get("include_resolved") == "true"

	areas, err := h.weakAreas.ListByUser(r.Context(), userID, includeResolved)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch weak areas", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"weak_areas": areas})
}

// Deactivate retires a weak area and its card from the review rotation
// without destroying the history.
func (h *WeakAreaHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	areaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid weak area ID", r))
		return
	}

	area, err := h.weakAreas.GetByID(r.Context(), areaID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Weak area not found", r))
		return
	}
	if area.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	if err := h.weakAreas.Deactivate(r.Context(), areaID, userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to deactivate weak area", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Weak area deactivated"})
}
