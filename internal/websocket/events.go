package websocket

import "github.com/scythe504/kartquiz-backend/internal/quiz"

// Catalog and teardown payloads. Room payloads live in package internal.

type SavedQuizzesData struct {
	Quizzes []quiz.SavedQuiz `json:"quizzes"`
}

// QuizResultData answers save-quiz and delete-quiz.
type QuizResultData struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

type QuizLoadedData struct {
	Success bool            `json:"success"`
	Quiz    *quiz.SavedQuiz `json:"quiz,omitempty"`
	Message string          `json:"message,omitempty"`
}

type HostDisconnectedData struct {
	RoomCode string `json:"roomCode"`
}

// Error codes carried by the error event.
const (
	CodeNotFound     = "not-found"
	CodeConflict     = "conflict"
	CodeUnauthorized = "unauthorized"
	CodeInvalidState = "invalid-state"
	CodeBadRequest   = "bad-request"
	CodeInternal     = "internal"
)

// Room-closed reasons.
const (
	ReasonExpired  = "expired"
	ReasonReplaced = "replaced"
)
