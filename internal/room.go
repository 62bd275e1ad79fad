package internal

import (
	"sort"
	"time"
)

func NewRoom(code, title string, host Host, now time.Time) *Room {
	if host.Name == "" {
		host.Name = DefaultHostName
	}
	return &Room{
		Code:         code,
		Title:        title,
		Host:         host,
		Players:      make(map[string]*Player),
		Participants: make(map[string]*Player),
		Questions:    make([]Question, 0),
		CurrentIndex: 0,
		Phase:        PhaseLobby,
		Guesses:      make(map[string]Coordinate),
		Scores:       make(map[string]int),
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Methods (Room Struct)
func (r *Room) IsHost(id string) bool {
	return r.Host.Id == id
}

func (r *Room) HasPlayer(id string) bool {
	_, ok := r.Players[id]
	return ok
}

func (r *Room) GetPlayerCount() int {
	return len(r.Players)
}

// CurrentQuestion returns nil when the index is outside the question list.
func (r *Room) CurrentQuestion() *Question {
	if r.CurrentIndex < 0 || r.CurrentIndex >= len(r.Questions) {
		return nil
	}
	return &r.Questions[r.CurrentIndex]
}

func (r *Room) QuestionView() QuestionView {
	q := r.CurrentQuestion()
	if q == nil {
		return QuestionView{QuestionNumber: r.CurrentIndex + 1, TotalQuestions: len(r.Questions)}
	}
	return QuestionView{
		QuestionNumber: r.CurrentIndex + 1,
		TotalQuestions: len(r.Questions),
		Text:           q.Text,
		ImageURL:       q.ImageURL,
		AudioURL:       q.AudioURL,
		MaxDistance:    q.MaxDistance,
		TimeLimit:      q.TimeLimit,
	}
}

// PlayerList returns the public roster ordered by name, then id.
func (r *Room) PlayerList() []Player {
	players := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p.ToPublicPlayer())
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Name != players[j].Name {
			return players[i].Name < players[j].Name
		}
		return players[i].Id < players[j].Id
	})
	return players
}

// Audience returns the connection ids that receive room broadcasts: the host
// followed by every current player.
func (r *Room) Audience() []string {
	ids := make([]string, 0, len(r.Players)+1)
	ids = append(ids, r.Host.Id)
	for id := range r.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids[1:])
	return ids
}

func (r *Room) ResetGuesses() {
	r.Guesses = make(map[string]Coordinate)
}

func (r *Room) Touch(now time.Time) {
	r.LastActivity = now
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		RoomCode:  r.Code,
		Title:     r.Title,
		Phase:     r.Phase,
		Players:   len(r.Players),
		Questions: len(r.Questions),
	}
}
