package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"

	"google.golang.org/api/option"

	"mentora-backend/internal/srs"
)

// GeminiService implements the two LLM collaborators of the review flow: the
// question generator and the answer evaluator. Scheduling math never depends
// on it; a failure here aborts the flow before the review engine is touched.
type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.4)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GeneratedQuestion is the generator's output: the question shown to the
// learner and the reference answer it will be graded against.
type GeneratedQuestion struct {
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expected_answer"`
}

// QuestionCacheTTL bounds how long a generated question stays answerable; the
// graded question must be exactly the one that was presented.
const QuestionCacheTTL = time.Hour

// QuestionCacheKey is the Redis key under which a card's pending question is
// cached, shared by the HTTP handler and the pre-generation worker.
func QuestionCacheKey(cardID uuid.UUID) string {
	return "review_question:" + cardID.String()
}

// GenerateQuestion produces a free-recall question for a weak-area topic.
func (s *GeminiService) GenerateQuestion(ctx context.Context, topic, subject string, category *string, gradeLevel int) (*GeneratedQuestion, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildQuestionPrompt(topic, subject, category, gradeLevel)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	q, err := parseGeneratedQuestion(extractText(resp))
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Evaluation is the evaluator's grading of one free-text answer. Quality is
// the sole input the scheduler consumes; the rest is recorded for the
// learner and the audit trail.
type Evaluation struct {
	Quality   int    `json:"quality"`
	IsCorrect bool   `json:"is_correct"`
	Feedback  string `json:"feedback"`
}

// EvaluateAnswer grades the learner's answer against the expected one on the
// 0-5 recall scale.
func (s *GeminiService) EvaluateAnswer(ctx context.Context, question, expectedAnswer, userAnswer, topic string, gradeLevel int) (*Evaluation, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildEvaluationPrompt(question, expectedAnswer, userAnswer, topic, gradeLevel)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	ev, err := parseEvaluation(extractText(resp))
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// stripJSONFence removes the markdown code fence Gemini sometimes wraps
// around JSON output despite instructions not to.
func stripJSONFence(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

func parseGeneratedQuestion(raw string) (*GeneratedQuestion, error) {
	raw = stripJSONFence(raw)

	var q GeneratedQuestion
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse question response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &q); err != nil {
			return nil, fmt.Errorf("failed to parse question response: %w", err)
		}
	}

	if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.ExpectedAnswer) == "" {
		return nil, fmt.Errorf("question response missing required fields")
	}
	return &q, nil
}

func parseEvaluation(raw string) (*Evaluation, error) {
	raw = stripJSONFence(raw)

	var ev Evaluation
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse evaluation response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &ev); err != nil {
			return nil, fmt.Errorf("failed to parse evaluation response: %w", err)
		}
	}

	ev.Quality = srs.ClampQuality(ev.Quality)
	return &ev, nil
}

func buildQuestionPrompt(topic, subject string, category *string, gradeLevel int) string {
	var b strings.Builder

	b.WriteString("You are a tutor helping a learner strengthen a topic they keep getting wrong.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Subject: %s\n", subject))
	b.WriteString(fmt.Sprintf("Topic: %s\n", topic))
	if category != nil && *category != "" {
		b.WriteString(fmt.Sprintf("Typical error pattern: %s\n", *category))
	}
	if gradeLevel > 0 {
		b.WriteString(fmt.Sprintf("Grade level: %d\n", gradeLevel))
	}

	b.WriteString(`
Write ONE open-ended recall question that tests understanding of the topic,
answerable in a few sentences without any reference material.

Rules:
- The question must require explaining or applying the concept, not yes/no
- Phrase it at the learner's grade level
- expected_answer must be a model answer under 80 words

JSON schema:
{"question": "string", "expected_answer": "string"}
`)

	return b.String()
}

func buildEvaluationPrompt(question, expectedAnswer, userAnswer, topic string, gradeLevel int) string {
	var b strings.Builder

	b.WriteString("You are grading a learner's free-text answer to a review question.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Topic: %s\n", topic))
	if gradeLevel > 0 {
		b.WriteString(fmt.Sprintf("Grade level: %d\n", gradeLevel))
	}
	b.WriteString(fmt.Sprintf("Question: %s\n", question))
	b.WriteString(fmt.Sprintf("Reference answer: %s\n", expectedAnswer))
	b.WriteString(fmt.Sprintf("Learner's answer: %s\n", userAnswer))

	b.WriteString(`
Grade recall quality on the 0-5 scale:
5 = perfect answer, fluent recall
4 = correct with minor gaps or hesitation
3 = correct core idea but incomplete or imprecise
2 = wrong, though the learner was close
1 = wrong, but some fragment was remembered
0 = no meaningful recall

Rules:
- is_correct is true only for quality 3 or higher
- feedback is 1-3 encouraging sentences at the learner's grade level,
  pointing at what to fix

JSON schema:
{"quality": int, "is_correct": bool, "feedback": "string"}
`)

	return b.String()
}
