package internal

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Inbound intents.
const (
	IntentCreateRoom      = "create-room"
	IntentSetQuestions    = "set-questions"
	IntentJoinRoom        = "join-room"
	IntentLeaveRoom       = "leave-room"
	IntentStartQuiz       = "start-quiz"
	IntentSubmitGuess     = "submit-guess"
	IntentShowResults     = "show-results"
	IntentNextQuestion    = "next-question"
	IntentGetSavedQuizzes = "get-saved-quizzes"
	IntentSaveQuiz        = "save-quiz"
	IntentLoadQuiz        = "load-quiz"
	IntentDeleteQuiz      = "delete-quiz"
)

// Outbound events.
const (
	EventConnected         = "connected"
	EventRoomCreated       = "room-created"
	EventQuestionsSet      = "questions-set"
	EventJoinSuccess       = "join-success"
	EventJoinError         = "join-error"
	EventPlayerListUpdated = "player-list-updated"
	EventQuizStarted       = "quiz-started"
	EventGuessSubmitted    = "guess-submitted"
	EventGuessCountUpdated = "guess-count-updated"
	EventResultsReady      = "results-ready"
	EventNextQuestionReady = "next-question-ready"
	EventQuizFinished      = "quiz-finished"
	EventHostDisconnected  = "host-disconnected"
	EventRoomClosed        = "room-closed"
	EventSavedQuizzesList  = "saved-quizzes-list"
	EventQuizSaved         = "quiz-saved"
	EventQuizLoaded        = "quiz-loaded"
	EventQuizDeleted       = "quiz-deleted"
	EventError             = "error"
)

// Inbound payloads.

type RoomRequest struct {
	RoomCode string `json:"roomCode"`
}

type CreateRoomData struct {
	RoomCode  string `json:"roomCode"`
	QuizTitle string `json:"quizTitle"`
	HostName  string `json:"hostName"`
}

type SetQuestionsData struct {
	RoomCode  string     `json:"roomCode"`
	Questions []Question `json:"questions"`
}

type JoinRoomData struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// SubmitGuessData carries pointers so a guess without coordinates is told
// apart from one at (0, 0).
type SubmitGuessData struct {
	RoomCode string   `json:"roomCode"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

type SaveQuizData struct {
	Id        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

type QuizRequest struct {
	Id       string `json:"id"`
	RoomCode string `json:"roomCode,omitempty"`
}

// Outbound payloads.

type ConnectedData struct {
	PlayerID string `json:"playerId"`
}

type RoomCreatedData struct {
	RoomCode string `json:"roomCode"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
}

type QuestionsSetData struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

type JoinSuccessData struct {
	RoomCode  string `json:"roomCode"`
	PlayerID  string `json:"playerId"`
	QuizTitle string `json:"quizTitle"`
	Color     string `json:"color"`
}

type JoinErrorData struct {
	Message string `json:"message"`
}

type PlayerListData struct {
	Players []Player `json:"players"`
}

type SuccessData struct {
	Success bool `json:"success"`
}

type RoomClosedData struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason,omitempty"`
}

type ErrorData struct {
	Intent  string `json:"intent"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
