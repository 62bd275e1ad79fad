package game

import (
	"fmt"
	"math"
	"sort"

	"github.com/scythe504/kartquiz-backend/internal"
)

// =============================================================================
// GAME FLOW - ROUND MANAGEMENT
// =============================================================================

// ShowResults scores every guess of the current question, adds the points to
// the cumulative scores and moves the room to the results phase. Players who
// did not guess keep their score.
func ShowResults(room *internal.Room) (internal.RoundResults, error) {
	if err := requirePhase(room, internal.PhaseQuestion); err != nil {
		return internal.RoundResults{}, err
	}
	question := room.CurrentQuestion()
	if question == nil {
		return internal.RoundResults{}, fmt.Errorf("room %s question %d: %w", room.Code, room.CurrentIndex+1, ErrInvalidState)
	}

	room.Phase = internal.PhaseResults
	answer := question.Answer()

	// score in id order so equal totals keep a stable order
	ids := make([]string, 0, len(room.Guesses))
	for id := range room.Guesses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]internal.PlayerResult, 0, len(ids))
	for _, id := range ids {
		guess := room.Guesses[id]
		distance := Distance(answer, guess)
		points := CalculatePoints(distance, question.MaxDistance)

		room.Scores[id] += points

		result := internal.PlayerResult{
			PlayerID:   id,
			Guess:      guess,
			Distance:   int(math.Round(distance)),
			Points:     points,
			TotalScore: room.Scores[id],
		}
		if p, ok := room.Participants[id]; ok {
			result.PlayerName = p.Name
			result.PlayerColor = p.Color
		}
		results = append(results, result)
	}
	sortResults(results)

	return internal.RoundResults{
		CorrectAnswer:  answer,
		Results:        results,
		QuestionNumber: room.CurrentIndex + 1,
		TotalQuestions: len(room.Questions),
	}, nil
}

// Advance leaves the results screen. It always clears the guesses, then
// either opens the next question or finishes the quiz with a leaderboard.
func Advance(room *internal.Room) (internal.Advancement, error) {
	if err := requirePhase(room, internal.PhaseResults); err != nil {
		return internal.Advancement{}, err
	}

	room.ResetGuesses()

	if room.CurrentIndex+1 < len(room.Questions) {
		room.CurrentIndex++
		room.Phase = internal.PhaseQuestion
		view := room.QuestionView()
		return internal.Advancement{Next: &view}, nil
	}

	room.CurrentIndex = len(room.Questions)
	room.Phase = internal.PhaseFinished
	final := CalculateFinalResults(room)
	return internal.Advancement{Final: &final}, nil
}
