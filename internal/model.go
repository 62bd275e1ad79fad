package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrMissingField reports a required field absent from a decoded payload.
var ErrMissingField = errors.New("missing required field")

const (
	DefaultHostName   = "Quiz Master"
	DefaultPlayerName = "Player"
	EarthRadiusKm     = 6371.0
	MaxPoints         = 1000
)

type GamePhase string

const (
	PhaseLobby    GamePhase = "lobby"
	PhaseQuestion GamePhase = "question"
	PhaseResults  GamePhase = "results"
	PhaseFinished GamePhase = "finished"
)

// Question is a single map question. CorrectLat/CorrectLng never leave the
// server before results are shown.
type Question struct {
	Text        string  `json:"text" yaml:"text"`
	ImageURL    string  `json:"imageUrl,omitempty" yaml:"image_url"`
	AudioURL    string  `json:"audioUrl,omitempty" yaml:"audio_url"`
	CorrectLat  float64 `json:"correctLat" yaml:"correct_lat"`
	CorrectLng  float64 `json:"correctLng" yaml:"correct_lng"`
	MaxDistance float64 `json:"maxDistance" yaml:"max_distance"`
	TimeLimit   int     `json:"timeLimit,omitempty" yaml:"time_limit"`
}

// UnmarshalJSON rejects questions without correctLat, correctLng or
// maxDistance, which would otherwise decode as an unscorable (0, 0) answer.
func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	var wire struct {
		plain
		CorrectLat  *float64 `json:"correctLat"`
		CorrectLng  *float64 `json:"correctLng"`
		MaxDistance *float64 `json:"maxDistance"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	var missing []string
	if wire.CorrectLat == nil {
		missing = append(missing, "correctLat")
	}
	if wire.CorrectLng == nil {
		missing = append(missing, "correctLng")
	}
	if wire.MaxDistance == nil {
		missing = append(missing, "maxDistance")
	}
	if len(missing) > 0 {
		return fmt.Errorf("question %q: %w: %s", wire.Text, ErrMissingField, strings.Join(missing, ", "))
	}

	*q = Question(wire.plain)
	q.CorrectLat = *wire.CorrectLat
	q.CorrectLng = *wire.CorrectLng
	q.MaxDistance = *wire.MaxDistance
	return nil
}

func (q Question) Answer() Coordinate {
	return Coordinate{Lat: q.CorrectLat, Lng: q.CorrectLng}
}

type Host struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type Room struct {
	Code  string `json:"roomCode"`
	Title string `json:"title"`
	Host  Host   `json:"host"`

	Players      map[string]*Player `json:"-"`
	Participants map[string]*Player `json:"-"` // everyone who ever joined

	// Game State
	Questions    []Question            `json:"-"`
	CurrentIndex int                   `json:"current_index"`
	Phase        GamePhase             `json:"phase"`
	Guesses      map[string]Coordinate `json:"-"`
	Scores       map[string]int        `json:"-"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Closed       bool      `json:"-"`

	// Concurrency control
	Mu sync.Mutex `json:"-"`
}

// QuestionView is the public projection of a question sent to every
// connection in a room.
type QuestionView struct {
	QuestionNumber int     `json:"questionNumber"`
	TotalQuestions int     `json:"totalQuestions"`
	Text           string  `json:"text"`
	ImageURL       string  `json:"imageUrl,omitempty"`
	AudioURL       string  `json:"audioUrl,omitempty"`
	MaxDistance    float64 `json:"maxDistance"`
	TimeLimit      int     `json:"timeLimit"`
}

type GuessProgress struct {
	GuessCount   int `json:"guessCount"`
	TotalPlayers int `json:"totalPlayers"`
}

type PlayerResult struct {
	PlayerID    string     `json:"playerId"`
	PlayerName  string     `json:"playerName"`
	PlayerColor string     `json:"playerColor"`
	Guess       Coordinate `json:"guess"`
	Distance    int        `json:"distance"`
	Points      int        `json:"points"`
	TotalScore  int        `json:"totalScore"`
}

type RoundResults struct {
	CorrectAnswer  Coordinate     `json:"correctAnswer"`
	Results        []PlayerResult `json:"results"`
	QuestionNumber int            `json:"questionNumber"`
	TotalQuestions int            `json:"totalQuestions"`
}

type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
	PlayerColor string `json:"playerColor,omitempty"`
	Score       int    `json:"score"`
	Position    int    `json:"position"`
	Connected   bool   `json:"connected"`
}

type FinalResults struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Winner      *LeaderboardEntry  `json:"winner,omitempty"`
}

// Advancement is the outcome of moving past a results screen: exactly one of
// Next or Final is set.
type Advancement struct {
	Next  *QuestionView
	Final *FinalResults
}

func (a Advancement) Finished() bool {
	return a.Final != nil
}

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}

type RoomSummary struct {
	RoomCode  string    `json:"roomCode"`
	Title     string    `json:"title"`
	Phase     GamePhase `json:"phase"`
	Players   int       `json:"players"`
	Questions int       `json:"questions"`
}
