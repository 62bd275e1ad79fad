package game

import (
	"fmt"
	"strings"

	"github.com/scythe504/kartquiz-backend/internal"
)

// =============================================================================
// GAME FLOW - LOBBY & INITIALIZATION
// =============================================================================
//
// Every function in this package that takes a *internal.Room expects the
// caller to hold room.Mu (see Registry.WithRoom).

// RequireHost reports ErrUnauthorized unless id is the room's host.
func RequireHost(room *internal.Room, id string) error {
	if !room.IsHost(id) {
		return fmt.Errorf("room %s: %w", room.Code, ErrUnauthorized)
	}
	return nil
}

// RequirePlayer reports ErrNotInRoom unless id is on the room's roster.
func RequirePlayer(room *internal.Room, id string) error {
	if !room.HasPlayer(id) {
		return fmt.Errorf("room %s: %w", room.Code, ErrNotInRoom)
	}
	return nil
}

func requirePhase(room *internal.Room, want internal.GamePhase) error {
	if room.Phase != want {
		return fmt.Errorf("room %s is in %s, want %s: %w", room.Code, room.Phase, want, ErrInvalidState)
	}
	return nil
}

// SetQuestions replaces the room's question list. Questions are frozen once
// the quiz leaves the lobby.
func SetQuestions(room *internal.Room, questions []internal.Question) error {
	if err := requirePhase(room, internal.PhaseLobby); err != nil {
		return err
	}

	for i, q := range questions {
		if !q.Answer().Valid() {
			return fmt.Errorf("question %d answer (%v, %v): %w", i+1, q.CorrectLat, q.CorrectLng, ErrInvalidCoordinate)
		}
	}

	room.Questions = append([]internal.Question(nil), questions...)
	return nil
}

// AddPlayer puts id on the roster with a random display color. Joining again
// with the same id keeps the color and score and updates the name.
func AddPlayer(room *internal.Room, id, name string, src internal.Source) (*internal.Player, error) {
	if room.IsHost(id) {
		return nil, fmt.Errorf("room %s: %w", room.Code, ErrHostCannotJoin)
	}
	if room.Phase == internal.PhaseFinished {
		return nil, fmt.Errorf("room %s has finished: %w", room.Code, ErrInvalidState)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = internal.DefaultPlayerName
	}

	player, known := room.Participants[id]
	if known {
		player.Name = name
	} else {
		player = &internal.Player{
			Id:    id,
			Name:  name,
			Color: internal.PlayerColor(src),
		}
		room.Participants[id] = player
	}

	room.Players[id] = player
	if _, ok := room.Scores[id]; !ok {
		room.Scores[id] = 0
	}

	return player, nil
}

// StartQuiz moves a lobby room to its first question.
func StartQuiz(room *internal.Room) (internal.QuestionView, error) {
	if err := requirePhase(room, internal.PhaseLobby); err != nil {
		return internal.QuestionView{}, err
	}
	if len(room.Questions) == 0 {
		return internal.QuestionView{}, fmt.Errorf("room %s: %w", room.Code, ErrNoQuestions)
	}

	room.Phase = internal.PhaseQuestion
	room.CurrentIndex = 0
	room.ResetGuesses()

	return room.QuestionView(), nil
}

// RemovePlayer drops id from the roster and the current guesses. The
// cumulative score stays so the final leaderboard still lists the player.
func RemovePlayer(room *internal.Room, id string) bool {
	if !room.HasPlayer(id) {
		return false
	}
	delete(room.Players, id)
	delete(room.Guesses, id)
	return true
}
