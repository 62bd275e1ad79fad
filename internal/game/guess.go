package game

import (
	"fmt"

	"github.com/scythe504/kartquiz-backend/internal"
)

// =============================================================================
// GUESS HANDLING
// =============================================================================

// SubmitGuess records (or overwrites) a player's guess for the current
// question and reports how many players have answered.
func SubmitGuess(room *internal.Room, id string, guess internal.Coordinate) (internal.GuessProgress, error) {
	if err := RequirePlayer(room, id); err != nil {
		return internal.GuessProgress{}, err
	}
	if err := requirePhase(room, internal.PhaseQuestion); err != nil {
		return internal.GuessProgress{}, err
	}
	if !guess.Valid() {
		return internal.GuessProgress{}, fmt.Errorf("guess (%v, %v): %w", guess.Lat, guess.Lng, ErrInvalidCoordinate)
	}

	room.Guesses[id] = guess

	return internal.GuessProgress{
		GuessCount:   len(room.Guesses),
		TotalPlayers: len(room.Players),
	}, nil
}
