package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"mentora-backend/internal/middleware"
	"mentora-backend/internal/models"
	"mentora-backend/internal/repository"
	"mentora-backend/internal/services"
)

type cardStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewCard, error)
}

type ReviewHandler struct {
	reviews   *services.ReviewService
	gemini    *services.GeminiService
	cardRepo  cardStore
	eventRepo *repository.ReviewEventRepo
	redis     *redis.Client
}

func NewReviewHandler(
	reviews *services.ReviewService,
	gemini *services.GeminiService,
	cardRepo *repository.ReviewCardRepo,
	eventRepo *repository.ReviewEventRepo,
	redisClient *redis.Client,
) *ReviewHandler {
	return &ReviewHandler{
		reviews:   reviews,
		gemini:    gemini,
		cardRepo:  cardRepo,
		eventRepo: eventRepo,
		redis:     redisClient,
	}
}

// Due returns today's review queue. Cards are ensured first, so a weak area
// ingested a moment ago is immediately reviewable.
func (h *ReviewHandler) Due(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	now := time.Now().UTC()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be a non-negative integer", r))
			return
		}
		limit = n
	}

	created, err := h.reviews.EnsureCards(r.Context(), userID, now)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	cards, err := h.reviews.DueCards(r.Context(), userID, now, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cards":         cards,
		"cards_created": created,
	})
}

// EnsureCards exposes card creation on its own, for callers that want the
// created count without pulling the queue.
func (h *ReviewHandler) EnsureCards(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	created, err := h.reviews.EnsureCards(r.Context(), userID, time.Now().UTC())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"cards_created": created})
}

// Question generates (or replays from cache) the recall question for a card.
// The expected answer stays server-side until the attempt is graded.
func (h *ReviewHandler) Question(w http.ResponseWriter, r *http.Request) {
	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid card ID", r))
		return
	}

	card, ok := h.loadOwnedCard(w, r, cardID)
	if !ok {
		return
	}

	if card.IsMastered || !card.IsActive {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Card is no longer reviewable", r))
		return
	}

	// Replay a cached question rather than generating a fresh one; the
	// pre-generation worker may already have filled it.
	cacheKey := services.QuestionCacheKey(cardID)
	var generated services.GeneratedQuestion
	cached, err := h.redis.Get(r.Context(), cacheKey).Result()
	if err == nil && json.Unmarshal([]byte(cached), &generated) == nil {
		writeJSON(w, http.StatusOK, questionResponse(card, &generated))
		return
	}

	q, err := h.gemini.GenerateQuestion(r.Context(), card.Topic, card.Subject, card.Category, card.GradeLevel)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("AI_ERROR", "Failed to generate a review question", r))
		return
	}

	payload, _ := json.Marshal(q)
	h.redis.Set(r.Context(), cacheKey, string(payload), services.QuestionCacheTTL)

	writeJSON(w, http.StatusOK, questionResponse(card, q))
}

// Submit grades the learner's answer and records the review. The evaluator
// runs first; if it fails, no review is recorded.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid card ID", r))
		return
	}

	var req models.SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Answer) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Answer is required", r))
		return
	}

	card, ok := h.loadOwnedCard(w, r, cardID)
	if !ok {
		return
	}

	cacheKey := services.QuestionCacheKey(cardID)
	cached, err := h.redis.Get(r.Context(), cacheKey).Result()
	if err != nil {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "No active question for this card. Request a question first.", r))
		return
	}
	var question services.GeneratedQuestion
	if err := json.Unmarshal([]byte(cached), &question); err != nil {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "No active question for this card. Request a question first.", r))
		return
	}

	evaluation, err := h.gemini.EvaluateAnswer(r.Context(), question.Question, question.ExpectedAnswer, req.Answer, card.Topic, card.GradeLevel)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("AI_ERROR", "Failed to evaluate the answer", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	outcome, err := h.reviews.RecordReview(r.Context(), cardID, userID, services.ReviewSubmission{
		Question:       question.Question,
		ExpectedAnswer: question.ExpectedAnswer,
		UserAnswer:     req.Answer,
		Quality:        evaluation.Quality,
		Feedback:       evaluation.Feedback,
		TimeSpentSecs:  req.TimeSpentSecs,
	}, time.Now().UTC())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// The question was consumed by this attempt.
	h.redis.Del(r.Context(), cacheKey)

	if outcome.IsMastered && !card.IsMastered {
		h.publish(r, userID, models.WSMessage{
			Type:    "card_mastered",
			Payload: models.CardMasteredEvent{CardID: card.ID, Topic: card.Topic},
		})
	}

	writeJSON(w, http.StatusOK, outcome)
}

// History returns the audit trail of one card's review attempts.
func (h *ReviewHandler) History(w http.ResponseWriter, r *http.Request) {
	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid card ID", r))
		return
	}

	if _, ok := h.loadOwnedCard(w, r, cardID); !ok {
		return
	}

	events, err := h.eventRepo.ListByCard(r.Context(), cardID, 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch review history", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	stats, err := h.reviews.Stats(r.Context(), userID, time.Now().UTC())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *ReviewHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "days must be a non-negative integer", r))
			return
		}
		days = n
	}

	buckets, err := h.reviews.Upcoming(r.Context(), userID, time.Now().UTC(), days)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"forecast": buckets})
}

// loadOwnedCard fetches a card and enforces ownership, writing the error
// response itself when the check fails.
func (h *ReviewHandler) loadOwnedCard(w http.ResponseWriter, r *http.Request, cardID uuid.UUID) (*models.ReviewCard, bool) {
	card, err := h.cardRepo.GetByID(r.Context(), cardID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Review card not found", r))
		return nil, false
	}
	if err != nil {
		handleServiceError(w, r, &services.StorageError{Op: "load review card", Err: err})
		return nil, false
	}

	userID := middleware.GetUserID(r.Context())
	if card.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return card, true
}

func (h *ReviewHandler) publish(r *http.Request, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	h.redis.Publish(r.Context(), models.UserChannel(userID), string(data))
}

func questionResponse(card *models.ReviewCard, q *services.GeneratedQuestion) models.ReviewQuestion {
	return models.ReviewQuestion{
		CardID:      card.ID,
		Question:    q.Question,
		Topic:       card.Topic,
		Subject:     card.Subject,
		GeneratedAt: time.Now().UTC(),
	}
}
