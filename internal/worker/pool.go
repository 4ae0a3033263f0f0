package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mentora-backend/internal/models"
	"mentora-backend/internal/services"
)

const (
	ingestQueue = "queue:weakarea-ingest"
	pregenQueue = "queue:question-pregen"
)

// task is the unit of queued work. Both queues carry the same payload; the
// queue name decides what happens to it.
type task struct {
	UserID uuid.UUID `json:"user_id"`
}

// Pool runs the background side of the review pipeline: turning freshly
// ingested weak areas into cards, and pre-generating questions for due cards
// so sessions start without waiting on the LLM.
type Pool struct {
	redis       *redis.Client
	reviews     *services.ReviewService
	gemini      *services.GeminiService
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, reviews *services.ReviewService, gemini *services.GeminiService, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		reviews:     reviews,
		gemini:      gemini,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{ingestQueue, pregenQueue}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// EnqueueIngest schedules card creation for a user whose weak areas just
// changed. Callers treat failure as non-fatal; the due-queue read path
// ensures cards on demand as well.
func EnqueueIngest(ctx context.Context, redisClient *redis.Client, userID uuid.UUID) error {
	return enqueue(ctx, redisClient, ingestQueue, userID)
}

// EnqueuePregen schedules question pre-generation for a user's due cards.
func EnqueuePregen(ctx context.Context, redisClient *redis.Client, userID uuid.UUID) error {
	return enqueue(ctx, redisClient, pregenQueue, userID)
}

func enqueue(ctx context.Context, redisClient *redis.Client, queue string, userID uuid.UUID) error {
	payload, err := json.Marshal(task{UserID: userID})
	if err != nil {
		return err
	}
	return redisClient.LPush(ctx, queue, string(payload)).Err()
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		queue := result[0]

		var t task
		if err := json.Unmarshal([]byte(result[1]), &t); err != nil {
			log.Printf("Worker %d: failed to parse task: %v", id, err)
			continue
		}

		// Collapse duplicate enqueues for the same user; whichever worker
		// holds the lock handles the whole batch.
		lockKey := fmt.Sprintf("task_lock:%s:%s", queue, t.UserID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 5*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		var processErr error
		switch queue {
		case ingestQueue:
			processErr = p.processIngest(ctx, &t)
		case pregenQueue:
			processErr = p.processPregen(ctx, &t)
		default:
			processErr = fmt.Errorf("unknown queue: %s", queue)
		}

		if processErr != nil {
			log.Printf("Worker %d: task for user %s on %s failed: %v", id, t.UserID, queue, processErr)
		}

		p.redis.Del(ctx, lockKey)
	}
}

// processIngest creates cards for the user's uncovered weak areas, tells the
// client its queue changed, and chains question pre-generation.
func (p *Pool) processIngest(ctx context.Context, t *task) error {
	now := time.Now().UTC()

	created, err := p.reviews.EnsureCards(ctx, t.UserID, now)
	if err != nil {
		return fmt.Errorf("failed to ensure cards: %w", err)
	}

	if created > 0 {
		due, err := p.reviews.DueCount(ctx, t.UserID, now)
		if err != nil {
			return fmt.Errorf("failed to count due cards: %w", err)
		}

		p.publish(ctx, t.UserID, models.WSMessage{
			Type: "reviews_ready",
			Payload: models.ReviewsReadyEvent{
				NewCards: created,
				DueCount: due,
			},
		})
	}

	if err := EnqueuePregen(ctx, p.redis, t.UserID); err != nil {
		log.Printf("Failed to enqueue question pre-generation for user %s: %v", t.UserID, err)
	}

	return nil
}

// processPregen generates and caches a question for each due card that has
// none. A fresh ingest or a session start both land here, so a learner
// usually never waits on generation mid-session.
func (p *Pool) processPregen(ctx context.Context, t *task) error {
	now := time.Now().UTC()

	cards, err := p.reviews.DueCards(ctx, t.UserID, now, 0)
	if err != nil {
		return fmt.Errorf("failed to fetch due cards: %w", err)
	}

	for _, card := range cards {
		cacheKey := services.QuestionCacheKey(card.ID)

		exists, err := p.redis.Exists(ctx, cacheKey).Result()
		if err == nil && exists > 0 {
			continue
		}

		q, err := p.gemini.GenerateQuestion(ctx, card.Topic, card.Subject, card.Category, card.GradeLevel)
		if err != nil {
			log.Printf("Question pre-generation failed for card %s: %v", card.ID, err)
			continue
		}

		payload, _ := json.Marshal(q)
		p.redis.Set(ctx, cacheKey, string(payload), services.QuestionCacheTTL)
	}

	return nil
}

func (p *Pool) publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	p.redis.Publish(ctx, models.UserChannel(userID), string(data))
}
