package models

import "github.com/google/uuid"

// WebSocket message types pushed through the redis pub/sub relay.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// UserChannel is the redis pub/sub channel carrying one user's push events.
func UserChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

// ReviewsReadyEvent is published when the ingest worker creates new cards.
type ReviewsReadyEvent struct {
	NewCards int `json:"new_cards"`
	DueCount int `json:"due_count"`
}

// CardMasteredEvent is published when a review crosses the mastery threshold.
type CardMasteredEvent struct {
	CardID uuid.UUID `json:"card_id"`
	Topic  string    `json:"topic"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
