package handlers

import (
	"net/http"
	"time"

	"mentora-backend/internal/middleware"
	"mentora-backend/internal/repository"
	"mentora-backend/internal/services"
)

type DashboardHandler struct {
	reviews   *services.ReviewService
	weakAreas *repository.WeakAreaRepo
}

func NewDashboardHandler(reviews *services.ReviewService, weakAreas *repository.WeakAreaRepo) *DashboardHandler {
	return &DashboardHandler{reviews: reviews, weakAreas: weakAreas}
}

// Stats combines the review aggregates with weak-area progress for the
// learner's dashboard.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	now := time.Now().UTC()

	reviewStats, err := h.reviews.Stats(r.Context(), userID, now)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	total, unresolved, err := h.weakAreas.Counts(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch weak area counts", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": reviewStats,
		"weak_areas": map[string]int{
			"total":      total,
			"unresolved": unresolved,
			"resolved":   total - unresolved,
		},
	})
}
